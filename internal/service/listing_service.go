package service

import (
	"context"
	"fmt"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/escrow-ledger/pkg/uow"
)

const defaultListingsLimit uint = 50

type ListingService struct {
	listingRepo ListingRepository
	userRepo    UserRepository
}

func NewListingService(u uow.UOW) (*ListingService, error) {
	listingRepo, err := uow.GetRepositoryAs[ListingRepository](u, uow.RepositoryName(repoargs.ListingRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	userRepo, err := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &ListingService{listingRepo: listingRepo, userRepo: userRepo}, nil
}

type CreateListingArgs struct {
	PartnerID   int64
	Title       string
	Description string
	Price       int64
	PriceUnit   string
	Category    string
}

// Create публикует объявление. Публиковать может только исполнитель.
func (l *ListingService) Create(ctx context.Context, args CreateListingArgs) (*domain.Listing, error) {
	if args.Price <= 0 {
		return nil, fmt.Errorf("creating listing: price %d: %w", args.Price, domain.ErrInvalidAmount)
	}
	partner, err := l.userRepo.FindUserByID(ctx, args.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("creating listing: %w", err)
	}
	if partner.Role != domain.RoleArtisan {
		return nil, fmt.Errorf("creating listing: user %d is not an artisan: %w", partner.ID, domain.ErrUnauthorized)
	}
	listing, err := l.listingRepo.Create(ctx, repoargs.CreateListing{
		PartnerID:   args.PartnerID,
		Title:       args.Title,
		Description: args.Description,
		Price:       args.Price,
		PriceUnit:   args.PriceUnit,
		Category:    args.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("creating listing: %w", err)
	}
	return listing, nil
}

func (l *ListingService) GetByID(ctx context.Context, id int64) (*domain.Listing, error) {
	listing, err := l.listingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting listing %d: %w", id, err)
	}
	return listing, nil
}

// ListAvailable доступные объявления, новые первыми.
func (l *ListingService) ListAvailable(ctx context.Context) ([]domain.Listing, error) {
	listings, err := l.listingRepo.ListAvailable(ctx, defaultListingsLimit)
	if err != nil {
		return nil, fmt.Errorf("listing available: %w", err)
	}
	return listings, nil
}
