package memrepo

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
)

type UserRepository struct {
	a access
}

func (r *UserRepository) CreateUser(_ context.Context, args repoargs.CreateUser) (*domain.User, error) {
	var user domain.User
	var err error
	r.a.run(func(s *Store) {
		if _, ok := s.userByPhone[args.Phone]; ok {
			err = fmt.Errorf("[memrepo/creating user with phone `%s`] %w", args.Phone, domain.ErrDuplicateKey)
			return
		}
		s.userSeq++
		now := s.now()
		user = domain.User{
			ID:                s.userSeq,
			CreatedAt:         now,
			UpdatedAt:         now,
			Phone:             args.Phone,
			FullName:          args.FullName,
			Role:              args.Role,
			EncryptedPassword: args.EncryptedPassword,
		}
		s.users[user.ID] = user
		s.userByPhone[user.Phone] = user.ID
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindUserByPhone(_ context.Context, phone string) (*domain.User, error) {
	var user domain.User
	var ok bool
	r.a.run(func(s *Store) {
		var id int64
		if id, ok = s.userByPhone[phone]; ok {
			user = s.users[id]
		}
	})
	if !ok {
		return nil, fmt.Errorf("[memrepo/finding user by phone `%s`] %w", phone, domain.ErrRecordNotFound)
	}
	return &user, nil
}

func (r *UserRepository) FindUserByID(_ context.Context, id int64) (*domain.User, error) {
	var user domain.User
	var ok bool
	r.a.run(func(s *Store) {
		user, ok = s.users[id]
	})
	if !ok {
		return nil, fmt.Errorf("[memrepo/finding user by id %d] %w", id, domain.ErrRecordNotFound)
	}
	return &user, nil
}

type ListingRepository struct {
	a access
}

func (r *ListingRepository) Create(_ context.Context, args repoargs.CreateListing) (*domain.Listing, error) {
	var listing domain.Listing
	var err error
	r.a.run(func(s *Store) {
		if _, ok := s.users[args.PartnerID]; !ok {
			err = fmt.Errorf("[memrepo/creating listing for partner %d] %w", args.PartnerID, domain.ErrRecordNotFound)
			return
		}
		s.listingSeq++
		listing = domain.Listing{
			ID:          s.listingSeq,
			CreatedAt:   s.now(),
			PartnerID:   args.PartnerID,
			Title:       args.Title,
			Description: args.Description,
			Price:       args.Price,
			PriceUnit:   args.PriceUnit,
			Category:    args.Category,
			IsAvailable: true,
		}
		s.listings[listing.ID] = listing
	})
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *ListingRepository) FindByID(_ context.Context, id int64) (*domain.Listing, error) {
	var listing domain.Listing
	var ok bool
	r.a.run(func(s *Store) {
		listing, ok = s.listings[id]
	})
	if !ok {
		return nil, fmt.Errorf("[memrepo/finding listing by id %d] %w", id, domain.ErrRecordNotFound)
	}
	return &listing, nil
}

func (r *ListingRepository) ListAvailable(_ context.Context, limit uint) ([]domain.Listing, error) {
	var res []domain.Listing
	r.a.run(func(s *Store) {
		for _, l := range s.listings {
			if l.IsAvailable {
				res = append(res, l)
			}
		}
	})
	slices.SortFunc(res, func(a, b domain.Listing) int { return cmp.Compare(b.ID, a.ID) })
	if uint(len(res)) > limit {
		res = res[:limit]
	}
	return res, nil
}
