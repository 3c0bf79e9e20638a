package memrepo

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
)

type EscrowRepository struct {
	a access
}

func (r *EscrowRepository) Create(_ context.Context, args repoargs.CreateEscrow) (*domain.EscrowAccount, error) {
	var escrow domain.EscrowAccount
	var err error
	r.a.run(func(s *Store) {
		if _, ok := s.orders[args.OrderID]; !ok {
			err = fmt.Errorf("[memrepo/creating escrow for order %d] %w", args.OrderID, domain.ErrRecordNotFound)
			return
		}
		if _, ok := s.escrows[args.OrderID]; ok {
			err = fmt.Errorf("[memrepo/creating escrow for order %d] %w", args.OrderID, domain.ErrDuplicateKey)
			return
		}
		s.escrowSeq++
		escrow = domain.EscrowAccount{
			ID:               s.escrowSeq,
			CreatedAt:        s.now(),
			OrderID:          args.OrderID,
			Amount:           args.Amount,
			CommissionAmount: args.CommissionAmount,
			ArtisanPayout:    args.ArtisanPayout,
			Status:           domain.EscrowStatusLocked,
			LockedAt:         args.LockedAt,
		}
		s.escrows[args.OrderID] = escrow
	})
	if err != nil {
		return nil, err
	}
	return &escrow, nil
}

func (r *EscrowRepository) FindByOrderID(_ context.Context, orderID int64) (*domain.EscrowAccount, error) {
	var escrow domain.EscrowAccount
	var ok bool
	r.a.run(func(s *Store) {
		escrow, ok = s.escrows[orderID]
	})
	if !ok {
		return nil, fmt.Errorf("[memrepo/finding escrow by order %d] %w", orderID, domain.ErrRecordNotFound)
	}
	return &escrow, nil
}

func (r *EscrowRepository) FindByOrderIDForUpdate(ctx context.Context, orderID int64) (*domain.EscrowAccount, error) {
	return r.FindByOrderID(ctx, orderID)
}

func (r *EscrowRepository) MarkReleased(_ context.Context, args repoargs.SettleEscrow) (*domain.EscrowAccount, error) {
	return r.settle(args, domain.EscrowStatusReleased)
}

func (r *EscrowRepository) MarkRefunded(_ context.Context, args repoargs.SettleEscrow) (*domain.EscrowAccount, error) {
	return r.settle(args, domain.EscrowStatusRefunded)
}

// settle условный перевод из LOCKED, как UPDATE ... WHERE status = 'LOCKED' в pgrepo.
func (r *EscrowRepository) settle(args repoargs.SettleEscrow, to domain.EscrowStatusType) (*domain.EscrowAccount, error) {
	var escrow domain.EscrowAccount
	var ok bool
	r.a.run(func(s *Store) {
		escrow, ok = s.escrows[args.OrderID]
		if !ok || escrow.Status != domain.EscrowStatusLocked {
			ok = false
			return
		}
		at := args.At
		by := args.By
		escrow.Status = to
		escrow.ReleasedBy = &by
		escrow.Reason = args.Reason
		if to == domain.EscrowStatusReleased {
			escrow.ReleasedAt = &at
		} else {
			escrow.RefundedAt = &at
		}
		s.escrows[args.OrderID] = escrow
	})
	if !ok {
		return nil, fmt.Errorf("[memrepo/settling escrow of order %d as %s] %w", args.OrderID, to, domain.ErrRecordNotFound)
	}
	return &escrow, nil
}

func (r *EscrowRepository) GetByUserID(_ context.Context, userID int64) ([]domain.EscrowAccount, error) {
	var res []domain.EscrowAccount
	r.a.run(func(s *Store) {
		for orderID, e := range s.escrows {
			o := s.orders[orderID]
			if o.ClientID == userID || o.PartnerID == userID {
				res = append(res, e)
			}
		}
	})
	slices.SortFunc(res, func(a, b domain.EscrowAccount) int {
		if c := b.LockedAt.Compare(a.LockedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return res, nil
}
