package memrepo

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
)

type OrderRepository struct {
	a access
}

func (r *OrderRepository) CreateOrder(_ context.Context, args repoargs.CreateOrder) (*domain.Order, error) {
	var order domain.Order
	var err error
	r.a.run(func(s *Store) {
		if _, ok := s.listings[args.ListingID]; !ok {
			err = fmt.Errorf("[memrepo/creating order for listing %d] %w", args.ListingID, domain.ErrRecordNotFound)
			return
		}
		s.orderSeq++
		now := s.now()
		order = domain.Order{
			ID:                 s.orderSeq,
			CreatedAt:          now,
			UpdatedAt:          now,
			ClientID:           args.ClientID,
			PartnerID:          args.PartnerID,
			ListingID:          args.ListingID,
			TotalAmount:        args.TotalAmount,
			Status:             domain.OrderStatusPending,
			DeliveryNeeded:     args.DeliveryNeeded,
			DeliveryAddress:    args.DeliveryAddress,
			ProblemDescription: args.ProblemDescription,
		}
		s.orders[order.ID] = order
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) FindByID(_ context.Context, id int64) (*domain.Order, error) {
	var order domain.Order
	var ok bool
	r.a.run(func(s *Store) {
		order, ok = s.orders[id]
	})
	if !ok {
		return nil, fmt.Errorf("[memrepo/finding order by id %d] %w", id, domain.ErrRecordNotFound)
	}
	return &order, nil
}

// FindByIDForUpdate транзакции хранилища и так выполняются по одной.
func (r *OrderRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *OrderRepository) GetByUserID(_ context.Context, userID int64) ([]domain.Order, error) {
	var res []domain.Order
	r.a.run(func(s *Store) {
		for _, o := range s.orders {
			if o.ClientID == userID || o.PartnerID == userID {
				res = append(res, o)
			}
		}
	})
	slices.SortFunc(res, func(a, b domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return res, nil
}

func (r *OrderRepository) UpdateState(_ context.Context, order *domain.Order) (*domain.Order, error) {
	var updated domain.Order
	var ok bool
	r.a.run(func(s *Store) {
		updated, ok = s.orders[order.ID]
		if !ok {
			return
		}
		updated.Status = order.Status
		updated.FundedAt = order.FundedAt
		updated.DeliveredAt = order.DeliveredAt
		updated.Reminder1SentAt = order.Reminder1SentAt
		updated.Reminder2SentAt = order.Reminder2SentAt
		updated.ReminderFinalSentAt = order.ReminderFinalSentAt
		updated.CompletedAt = order.CompletedAt
		updated.CancelledAt = order.CancelledAt
		updated.DisputeRaisedAt = order.DisputeRaisedAt
		updated.DisputeReason = order.DisputeReason
		updated.UpdatedAt = s.now()
		s.orders[order.ID] = updated
	})
	if !ok {
		return nil, fmt.Errorf("[memrepo/updating state of order %d] %w", order.ID, domain.ErrRecordNotFound)
	}
	return &updated, nil
}

func (r *OrderRepository) GetReminderCandidates(
	_ context.Context,
	args repoargs.ReminderCandidates,
) ([]domain.Order, error) {
	var res []domain.Order
	r.a.run(func(s *Store) {
		for _, o := range s.orders {
			if o.Status == args.From && deliveredNotAfter(o, args.DeliveredBefore) && o.ReminderSentAt(args.Step) == nil &&
				args.After.Admits(o) {
				res = append(res, o)
			}
		}
	})
	return limitByDelivery(res, args.Limit), nil
}

func (r *OrderRepository) GetForAutoRelease(
	_ context.Context,
	args repoargs.AutoReleaseCandidates,
) ([]domain.Order, error) {
	var res []domain.Order
	r.a.run(func(s *Store) {
		for _, o := range s.orders {
			if slices.Contains(domain.ReleasableStatuses, o.Status) && deliveredNotAfter(o, args.DeliveredBefore) &&
				args.After.Admits(o) {
				res = append(res, o)
			}
		}
	})
	return limitByDelivery(res, args.Limit), nil
}

func (r *OrderRepository) UpdateEnrichment(_ context.Context, args repoargs.OrderEnrichment) error {
	var ok bool
	r.a.run(func(s *Store) {
		var o domain.Order
		if o, ok = s.orders[args.OrderID]; !ok {
			return
		}
		o.AITitle = args.Title
		o.AICategory = args.Category
		o.AITags = args.Tags
		o.UpdatedAt = s.now()
		s.orders[o.ID] = o
	})
	if !ok {
		return fmt.Errorf("[memrepo/updating enrichment of order %d] %w", args.OrderID, domain.ErrRecordNotFound)
	}
	return nil
}

func deliveredNotAfter(o domain.Order, t time.Time) bool {
	return o.DeliveredAt != nil && !o.DeliveredAt.After(t)
}

func limitByDelivery(orders []domain.Order, limit uint) []domain.Order {
	slices.SortFunc(orders, func(a, b domain.Order) int {
		if c := a.DeliveredAt.Compare(*b.DeliveredAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if uint(len(orders)) > limit {
		orders = orders[:limit]
	}
	return orders
}
