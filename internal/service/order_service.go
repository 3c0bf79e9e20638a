package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/escrow-ledger/pkg/uow"
)

// OrderService жизненный цикл заказа. Допустимость каждого перехода проверяется по таблице
// domain.CheckTransition; переходы с движением денег (отмена оплаченного заказа) выполняются в той же
// транзакции, что и смена статуса.
type OrderService struct {
	uow         uow.UOW
	orderRepo   OrderRepository
	escrowRepo  EscrowRepository
	listingRepo ListingRepository
	opts        Options
}

func NewOrderService(u uow.UOW, opts Options) (*OrderService, error) {
	orderRepo, err := uow.GetRepositoryAs[OrderRepository](u, uow.RepositoryName(repoargs.OrderRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	escrowRepo, err := uow.GetRepositoryAs[EscrowRepository](u, uow.RepositoryName(repoargs.EscrowRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	listingRepo, err := uow.GetRepositoryAs[ListingRepository](u, uow.RepositoryName(repoargs.ListingRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &OrderService{
		uow:         u,
		orderRepo:   orderRepo,
		escrowRepo:  escrowRepo,
		listingRepo: listingRepo,
		opts:        opts.withDefaults(),
	}, nil
}

type CreateOrderArgs struct {
	ClientID           int64
	ListingID          int64
	DeliveryNeeded     bool
	DeliveryAddress    string
	ProblemDescription string
}

// Create создает заказ в статусе PENDING. Сумма и исполнитель берутся из объявления. Если у заказа есть
// описание проблемы, после создания его id передается в очередь обогащения.
func (o *OrderService) Create(ctx context.Context, args CreateOrderArgs) (*domain.Order, error) {
	listing, err := o.listingRepo.FindByID(ctx, args.ListingID)
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}
	if listing.PartnerID == args.ClientID {
		return nil, fmt.Errorf("creating order: own listing: %w", domain.ErrUnauthorized)
	}
	if !listing.IsAvailable {
		return nil, fmt.Errorf("creating order: listing %d is not available: %w", listing.ID, domain.ErrStateConflict)
	}
	if args.DeliveryNeeded && args.DeliveryAddress == "" {
		return nil, fmt.Errorf("creating order: delivery address is required: %w", domain.ErrValidation)
	}

	order, err := o.orderRepo.CreateOrder(ctx, repoargs.CreateOrder{
		ClientID:           args.ClientID,
		PartnerID:          listing.PartnerID,
		ListingID:          listing.ID,
		TotalAmount:        listing.Price,
		DeliveryNeeded:     args.DeliveryNeeded,
		DeliveryAddress:    args.DeliveryAddress,
		ProblemDescription: args.ProblemDescription,
	})
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	notify(ctx, o.opts.Notifier, order.PartnerID, domain.NotifyOrderCreated, map[string]any{
		"order_id":     order.ID,
		"total_amount": order.TotalAmount,
	})
	if order.ProblemDescription != "" {
		o.opts.Enrichment.Enqueue(order.ID)
	}
	return order, nil
}

// Accept исполнитель принимает заказ.
func (o *OrderService) Accept(ctx context.Context, orderID int64, actor domain.Actor) (*domain.Order, error) {
	order, err := o.transition(ctx, orderID, actor, domain.OpAccept, nil)
	if err != nil {
		return nil, err
	}
	notify(ctx, o.opts.Notifier, order.ClientID, domain.NotifyOrderAccepted, map[string]any{"order_id": order.ID})
	return order, nil
}

// StartWork исполнитель начал работу по оплаченному заказу.
func (o *OrderService) StartWork(ctx context.Context, orderID int64, actor domain.Actor) (*domain.Order, error) {
	order, err := o.transition(ctx, orderID, actor, domain.OpStartWork, nil)
	if err != nil {
		return nil, err
	}
	notify(ctx, o.opts.Notifier, order.ClientID, domain.NotifyWorkStarted, map[string]any{"order_id": order.ID})
	return order, nil
}

// DeclareFinished исполнитель сдал работу. delivered_at - точка отсчета всех сроков планировщика.
func (o *OrderService) DeclareFinished(ctx context.Context, orderID int64, actor domain.Actor) (*domain.Order, error) {
	order, err := o.transition(ctx, orderID, actor, domain.OpDeclareFinished,
		func(_ context.Context, _ uow.TX, order *domain.Order, now time.Time) error {
			order.DeliveredAt = &now
			return nil
		})
	if err != nil {
		return nil, err
	}
	notify(ctx, o.opts.Notifier, order.ClientID, domain.NotifyWorkDelivered, map[string]any{
		"order_id":     order.ID,
		"delivered_at": order.DeliveredAt,
	})
	return order, nil
}

// Dispute открывает спор. Средства остаются на счете эскроу до решения администратора.
func (o *OrderService) Dispute(
	ctx context.Context,
	orderID int64,
	actor domain.Actor,
	reason string,
) (*domain.Order, error) {
	order, err := o.transition(ctx, orderID, actor, domain.OpDispute,
		func(_ context.Context, _ uow.TX, order *domain.Order, now time.Time) error {
			order.DisputeRaisedAt = &now
			order.DisputeReason = &reason
			return nil
		})
	if err != nil {
		return nil, err
	}
	payload := map[string]any{"order_id": order.ID, "reason": reason}
	notify(ctx, o.opts.Notifier, order.ClientID, domain.NotifyDisputeRaised, payload)
	notify(ctx, o.opts.Notifier, order.PartnerID, domain.NotifyDisputeRaised, payload)
	return order, nil
}

// Cancel отменяет заказ. Если средства уже заблокированы, они возвращаются клиенту в той же транзакции.
func (o *OrderService) Cancel(
	ctx context.Context,
	orderID int64,
	actor domain.Actor,
	reason string,
) (*domain.Order, error) {
	var refunded *domain.EscrowAccount
	order, err := o.transition(ctx, orderID, actor, domain.OpCancel,
		func(c context.Context, tx uow.TX, order *domain.Order, now time.Time) error {
			order.CancelledAt = &now
			if order.FundedAt == nil {
				return nil
			}
			var refundErr error
			refunded, refundErr = refundEscrow(c, tx, order, reason, domain.TriggerCancel, now)
			return refundErr
		})
	if err != nil {
		return nil, err
	}
	payload := map[string]any{"order_id": order.ID, "reason": reason}
	notify(ctx, o.opts.Notifier, order.ClientID, domain.NotifyOrderCancelled, payload)
	notify(ctx, o.opts.Notifier, order.PartnerID, domain.NotifyOrderCancelled, payload)
	if refunded != nil {
		notifyRefund(ctx, o.opts.Notifier, order, refunded)
	}
	return order, nil
}

type transitionFn func(ctx context.Context, tx uow.TX, order *domain.Order, now time.Time) error

// transition общий каркас перехода: блокировка строки заказа, проверка по таблице переходов, изменения
// через apply и сохранение - одной транзакцией.
func (o *OrderService) transition(
	ctx context.Context,
	orderID int64,
	actor domain.Actor,
	op domain.Operation,
	apply transitionFn,
) (*domain.Order, error) {
	var updated *domain.Order
	err := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		repo, repoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		order, findErr := repo.FindByIDForUpdate(c, orderID)
		if findErr != nil {
			return findErr //nolint:wrapcheck
		}
		role, roleErr := actor.RoleFor(order)
		if roleErr != nil {
			return roleErr //nolint:wrapcheck
		}
		next, checkErr := domain.CheckTransition(op, order.Status, role)
		if checkErr != nil {
			return checkErr //nolint:wrapcheck
		}
		if apply != nil {
			if applyErr := apply(c, tx, order, o.opts.Now()); applyErr != nil {
				return applyErr
			}
		}
		order.Status = next
		var updErr error
		updated, updErr = repo.UpdateState(c, order)
		return updErr //nolint:wrapcheck
	})
	if err != nil {
		return nil, txErr(fmt.Sprintf("%s order %d", op, orderID), err)
	}
	return updated, nil
}

// ReminderCandidates заказы, которым пора отправить напоминание шага step, начиная после курсора after.
func (o *OrderService) ReminderCandidates(
	ctx context.Context,
	step domain.ReminderStep,
	after domain.OrderCursor,
	limit uint,
) ([]domain.Order, error) {
	rule, ok := domain.ReminderRuleFor(step)
	if !ok {
		return nil, fmt.Errorf("unknown reminder step %d", step)
	}
	orders, err := o.orderRepo.GetReminderCandidates(ctx, repoargs.ReminderCandidates{
		Step:            step,
		From:            rule.From,
		DeliveredBefore: o.opts.Now().Add(-rule.Delay),
		After:           after,
		Limit:           limit,
	})
	if err != nil {
		return nil, fmt.Errorf("getting reminder %d candidates: %w", step, err)
	}
	return orders, nil
}

// AdvanceReminder продвигает заказ на шаг step лестницы напоминаний и уведомляет исполнителя.
// Под блокировкой заново проверяются статус, срок и отсутствие отметки шага. Возвращает false, если
// шаг уже пройден или срок еще не наступил; повторный вызов ничего не меняет.
func (o *OrderService) AdvanceReminder(ctx context.Context, orderID int64, step domain.ReminderStep) (bool, error) {
	rule, ok := domain.ReminderRuleFor(step)
	if !ok {
		return false, fmt.Errorf("unknown reminder step %d", step)
	}
	var advanced *domain.Order
	err := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		repo, repoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		order, findErr := repo.FindByIDForUpdate(c, orderID)
		if findErr != nil {
			return findErr //nolint:wrapcheck
		}
		now := o.opts.Now()
		if order.ReminderSentAt(step) != nil || !order.DeliveredBefore(now, rule.Delay) {
			return nil
		}
		next, checkErr := domain.CheckTransition(domain.ReminderOperation(step), order.Status, domain.ActorSystem)
		if checkErr != nil {
			return checkErr //nolint:wrapcheck
		}
		order.Status = next
		order.MarkReminderSent(step, now)
		var updErr error
		advanced, updErr = repo.UpdateState(c, order)
		return updErr //nolint:wrapcheck
	})
	if err != nil {
		return false, txErr(fmt.Sprintf("advancing reminder %d for order %d", step, orderID), err)
	}
	if advanced == nil {
		return false, nil
	}
	notify(ctx, o.opts.Notifier, advanced.PartnerID, rule.Kind, map[string]any{
		"order_id":     advanced.ID,
		"delivered_at": advanced.DeliveredAt,
		"release_at":   advanced.DeliveredAt.Add(domain.AutoReleaseDelay),
	})
	return true, nil
}

// Enrichment метаданные заказа от внешнего сервиса аннотаций.
type Enrichment struct {
	Title    string
	Category string
	Tags     []string
}

// AttachEnrichment сохраняет метаданные отдельной транзакцией, вне финансовых операций.
func (o *OrderService) AttachEnrichment(ctx context.Context, orderID int64, e Enrichment) error {
	err := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		repo, repoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		return repo.UpdateEnrichment(c, repoargs.OrderEnrichment{ //nolint:wrapcheck
			OrderID:  orderID,
			Title:    e.Title,
			Category: e.Category,
			Tags:     joinTags(e.Tags),
		})
	})
	return txErr(fmt.Sprintf("attaching enrichment to order %d", orderID), err)
}

// ProblemDescription текст для обогащения.
func (o *OrderService) ProblemDescription(ctx context.Context, orderID int64) (string, error) {
	order, err := o.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("getting order %d: %w", orderID, err)
	}
	return order.ProblemDescription, nil
}

// OrderDetails заказ со счетом эскроу, если он есть.
type OrderDetails struct {
	Order  *domain.Order
	Escrow *EscrowView
}

// GetByID заказ для отображения. Видят стороны заказа и администратор.
func (o *OrderService) GetByID(ctx context.Context, orderID int64, actor domain.Actor) (*OrderDetails, error) {
	order, err := o.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", orderID, err)
	}
	if _, roleErr := actor.RoleFor(order); roleErr != nil {
		return nil, fmt.Errorf("getting order %d: %w", orderID, roleErr)
	}
	details := &OrderDetails{Order: order}
	escrow, escrowErr := o.escrowRepo.FindByOrderID(ctx, orderID)
	switch {
	case escrowErr == nil:
		details.Escrow = &EscrowView{EscrowAccount: *escrow, TimeLockedMinutes: escrow.TimeLockedMinutes(o.opts.Now())}
	case !errors.Is(escrowErr, domain.ErrRecordNotFound):
		return nil, fmt.Errorf("getting escrow of order %d: %w", orderID, escrowErr)
	}
	return details, nil
}

// GetByUserID Возвращает заказы пользователя (как клиента и как исполнителя), новые первыми.
func (o *OrderService) GetByUserID(ctx context.Context, userID int64) ([]domain.Order, error) {
	orders, err := o.orderRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return orders, nil
}
