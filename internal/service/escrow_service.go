package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/metrics"
	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/escrow-ledger/pkg/uow"
)

// EscrowService операции со счетом эскроу: блокировка средств, выплата исполнителю, возврат клиенту.
// Каждая операция - одна транзакция uow: заказ, счет эскроу, кошельки и журнал меняются вместе или никак.
type EscrowService struct {
	uow        uow.UOW
	orderRepo  OrderRepository
	escrowRepo EscrowRepository
	opts       Options
}

func NewEscrowService(u uow.UOW, opts Options) (*EscrowService, error) {
	orderRepo, err := uow.GetRepositoryAs[OrderRepository](u, uow.RepositoryName(repoargs.OrderRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	escrowRepo, err := uow.GetRepositoryAs[EscrowRepository](u, uow.RepositoryName(repoargs.EscrowRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &EscrowService{
		uow:        u,
		orderRepo:  orderRepo,
		escrowRepo: escrowRepo,
		opts:       opts.withDefaults(),
	}, nil
}

// LockFunds блокирует сумму заказа на счете эскроу.
//
// Алгоритм работы:
//  1. Блокирует строку заказа и проверяет, что payer - клиент заказа.
//  2. Если заказ уже FUNDED, возвращает существующий счет без повторного списания.
//  3. Считает комиссию, списывает total_amount с кошелька клиента (ESCROW_LOCK), создает счет LOCKED,
//     переводит заказ в FUNDED.
//
// Ошибки: ErrRecordNotFound, ErrUnauthorized, ErrStateConflict, ErrInsufficientFunds, ErrTransientStore.
func (e *EscrowService) LockFunds(ctx context.Context, orderID int64, payer domain.Actor) (*domain.EscrowAccount, error) {
	var escrow *domain.EscrowAccount
	var locked bool
	var order *domain.Order

	err := e.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		orderRepo, escrowRepo, repoErr := escrowRepos(tx)
		if repoErr != nil {
			return repoErr
		}
		var findErr error
		if order, findErr = orderRepo.FindByIDForUpdate(c, orderID); findErr != nil {
			return findErr //nolint:wrapcheck
		}
		role, roleErr := payer.RoleFor(order)
		if roleErr != nil {
			return roleErr //nolint:wrapcheck
		}
		if role != domain.ActorClient {
			return domain.ErrUnauthorized
		}

		if order.Status == domain.OrderStatusFunded {
			var existErr error
			escrow, existErr = escrowRepo.FindByOrderID(c, orderID)
			return existErr //nolint:wrapcheck
		}

		next, checkErr := domain.CheckTransition(domain.OpLockFunds, order.Status, role)
		if checkErr != nil {
			return checkErr //nolint:wrapcheck
		}

		split, splitErr := domain.ComputeCommission(order.TotalAmount, e.opts.CommissionRate)
		if splitErr != nil {
			return splitErr //nolint:wrapcheck
		}

		wallet, walletErr := walletOf(c, tx, order.ClientID)
		if walletErr != nil {
			return walletErr
		}
		if _, debitErr := debit(c, tx, ledgerEntry{
			WalletID:  wallet.ID,
			OrderID:   ptr(order.ID),
			Amount:    split.Amount,
			Type:      domain.TransactionEscrowLock,
			Reference: orderReference(order.ID, "LOCK"),
		}); debitErr != nil {
			return debitErr
		}

		now := e.opts.Now()
		var createErr error
		escrow, createErr = escrowRepo.Create(c, repoargs.CreateEscrow{
			OrderID:          order.ID,
			Amount:           split.Amount,
			CommissionAmount: split.Commission,
			ArtisanPayout:    split.Payout,
			LockedAt:         now,
		})
		if createErr != nil {
			return createErr //nolint:wrapcheck
		}

		order.Status = next
		order.FundedAt = &now
		if _, updErr := orderRepo.UpdateState(c, order); updErr != nil {
			return updErr //nolint:wrapcheck
		}
		locked = true
		return nil
	})

	metrics.LedgerOpsTotal.WithLabelValues("lock", resultLabel(err)).Inc()
	if err != nil {
		return nil, txErr(fmt.Sprintf("locking funds for order %d", orderID), err)
	}
	if locked {
		metrics.LedgerVolume.WithLabelValues("lock").Add(float64(escrow.Amount))
		notify(ctx, e.opts.Notifier, order.PartnerID, domain.NotifyFundsLocked, map[string]any{
			"order_id": order.ID,
			"amount":   escrow.Amount,
		})
	}
	return escrow, nil
}

// ReleaseResult итог выплаты.
type ReleaseResult struct {
	Escrow     *domain.EscrowAccount
	Payout     int64
	Commission int64
}

// Release ручное подтверждение работы клиентом. Выплата с trigger_source CLIENT.
func (e *EscrowService) Release(ctx context.Context, orderID int64, client domain.Actor) (*ReleaseResult, error) {
	return e.release(ctx, orderID, client, domain.TriggerClient, 0)
}

// AutoRelease принудительная выплата планировщиком после истечения срока. Срок перепроверяется под
// блокировкой строки заказа.
func (e *EscrowService) AutoRelease(ctx context.Context, orderID int64) (*ReleaseResult, error) {
	return e.release(ctx, orderID, domain.SystemActor, domain.TriggerAutoRelease, domain.AutoReleaseDelay)
}

// release общий путь выплаты. Гонку ручной и автоматической выплаты решает условный перевод счета из
// LOCKED: проигравший получает ErrStateConflict и ничего не зачисляет.
func (e *EscrowService) release(
	ctx context.Context,
	orderID int64,
	actor domain.Actor,
	trigger domain.TriggerSource,
	minAge time.Duration,
) (*ReleaseResult, error) {
	var res ReleaseResult
	var order *domain.Order

	err := e.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		orderRepo, escrowRepo, repoErr := escrowRepos(tx)
		if repoErr != nil {
			return repoErr
		}
		var findErr error
		if order, findErr = orderRepo.FindByIDForUpdate(c, orderID); findErr != nil {
			return findErr //nolint:wrapcheck
		}
		role, roleErr := actor.RoleFor(order)
		if roleErr != nil {
			return roleErr //nolint:wrapcheck
		}
		next, checkErr := domain.CheckTransition(domain.OpRelease, order.Status, role)
		if checkErr != nil {
			return checkErr //nolint:wrapcheck
		}
		now := e.opts.Now()
		if minAge > 0 && !order.DeliveredBefore(now, minAge) {
			return fmt.Errorf("order %d is not due for auto release: %w", orderID, domain.ErrStateConflict)
		}

		escrow, escrowErr := escrowRepo.FindByOrderIDForUpdate(c, orderID)
		if escrowErr != nil {
			return escrowErr //nolint:wrapcheck
		}
		if escrow.Status != domain.EscrowStatusLocked {
			return &domain.EscrowStateError{OrderID: orderID, Status: escrow.Status}
		}
		released, settleErr := escrowRepo.MarkReleased(c, repoargs.SettleEscrow{
			OrderID: orderID,
			At:      now,
			By:      string(trigger),
		})
		if settleErr != nil {
			return settleConflict(orderID, settleErr)
		}

		partnerWallet, walletErr := walletOf(c, tx, order.PartnerID)
		if walletErr != nil {
			return walletErr
		}
		if _, creditErr := credit(c, tx, ledgerEntry{
			WalletID:  partnerWallet.ID,
			OrderID:   ptr(order.ID),
			Amount:    released.ArtisanPayout,
			Type:      domain.TransactionEscrowRelease,
			Reference: orderReference(order.ID, "RELEASE-"+string(trigger)),
		}); creditErr != nil {
			return creditErr
		}
		if e.opts.CommissionUserID != 0 {
			platformWallet, platformErr := walletOf(c, tx, e.opts.CommissionUserID)
			if platformErr != nil {
				return platformErr
			}
			if _, creditErr := credit(c, tx, ledgerEntry{
				WalletID:  platformWallet.ID,
				OrderID:   ptr(order.ID),
				Amount:    released.CommissionAmount,
				Type:      domain.TransactionCommission,
				Reference: orderReference(order.ID, "COMMISSION"),
			}); creditErr != nil {
				return creditErr
			}
		}

		order.Status = next
		order.CompletedAt = &now
		if _, updErr := orderRepo.UpdateState(c, order); updErr != nil {
			return updErr //nolint:wrapcheck
		}
		res = ReleaseResult{Escrow: released, Payout: released.ArtisanPayout, Commission: released.CommissionAmount}
		return nil
	})

	metrics.LedgerOpsTotal.WithLabelValues("release", resultLabel(err)).Inc()
	if err != nil {
		return nil, txErr(fmt.Sprintf("releasing funds for order %d", orderID), err)
	}
	metrics.ReleasesTotal.WithLabelValues(string(trigger)).Inc()
	metrics.LedgerVolume.WithLabelValues("release").Add(float64(res.Payout))
	if res.Escrow.ReleasedAt != nil {
		metrics.EscrowLockedDuration.Observe(res.Escrow.ReleasedAt.Sub(res.Escrow.LockedAt).Seconds())
	}
	notify(ctx, e.opts.Notifier, order.PartnerID, domain.NotifyFundsReleased, map[string]any{
		"order_id":   order.ID,
		"payout":     res.Payout,
		"commission": res.Commission,
		"trigger":    string(trigger),
	})
	return &res, nil
}

// Refund возврат средств клиенту администратором. Для FUNDED/IN_PROGRESS заказ отменяется, спорный заказ
// остается DISPUTED.
func (e *EscrowService) Refund(
	ctx context.Context,
	orderID int64,
	reason string,
	admin domain.Actor,
) (*domain.EscrowAccount, error) {
	var escrow *domain.EscrowAccount
	var order *domain.Order

	err := e.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		orderRepo, _, repoErr := escrowRepos(tx)
		if repoErr != nil {
			return repoErr
		}
		var findErr error
		if order, findErr = orderRepo.FindByIDForUpdate(c, orderID); findErr != nil {
			return findErr //nolint:wrapcheck
		}
		role, roleErr := admin.RoleFor(order)
		if roleErr != nil {
			return roleErr //nolint:wrapcheck
		}
		next, checkErr := domain.CheckTransition(domain.OpRefund, order.Status, role)
		if checkErr != nil {
			return checkErr //nolint:wrapcheck
		}
		now := e.opts.Now()
		var refundErr error
		if escrow, refundErr = refundEscrow(c, tx, order, reason, domain.TriggerAdmin, now); refundErr != nil {
			return refundErr
		}
		if next != order.Status {
			order.Status = next
			order.CancelledAt = &now
			if _, updErr := orderRepo.UpdateState(c, order); updErr != nil {
				return updErr //nolint:wrapcheck
			}
		}
		return nil
	})

	metrics.LedgerOpsTotal.WithLabelValues("refund", resultLabel(err)).Inc()
	if err != nil {
		return nil, txErr(fmt.Sprintf("refunding order %d", orderID), err)
	}
	metrics.LedgerVolume.WithLabelValues("refund").Add(float64(escrow.Amount))
	notifyRefund(ctx, e.opts.Notifier, order, escrow)
	return escrow, nil
}

// AutoReleaseCandidates заказы, у которых истек срок подтверждения, начиная после курсора after.
func (e *EscrowService) AutoReleaseCandidates(
	ctx context.Context,
	after domain.OrderCursor,
	limit uint,
) ([]domain.Order, error) {
	orders, err := e.orderRepo.GetForAutoRelease(ctx, repoargs.AutoReleaseCandidates{
		DeliveredBefore: e.opts.Now().Add(-domain.AutoReleaseDelay),
		After:           after,
		Limit:           limit,
	})
	if err != nil {
		return nil, fmt.Errorf("getting auto release candidates: %w", err)
	}
	return orders, nil
}

// EscrowView счет эскроу для отображения.
type EscrowView struct {
	domain.EscrowAccount
	TimeLockedMinutes int64
}

// GetByUserID счета эскроу по заказам пользователя.
func (e *EscrowService) GetByUserID(ctx context.Context, userID int64) ([]EscrowView, error) {
	escrows, err := e.escrowRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting escrows of user %d: %w", userID, err)
	}
	now := e.opts.Now()
	views := make([]EscrowView, len(escrows))
	for i := range escrows {
		views[i] = EscrowView{EscrowAccount: escrows[i], TimeLockedMinutes: escrows[i].TimeLockedMinutes(now)}
	}
	return views, nil
}

// refundEscrow переводит счет заказа в REFUNDED и возвращает полную сумму клиенту (ESCROW_REFUND).
// Комиссия при возврате не удерживается.
func refundEscrow(
	ctx context.Context,
	tx uow.TX,
	order *domain.Order,
	reason string,
	trigger domain.TriggerSource,
	now time.Time,
) (*domain.EscrowAccount, error) {
	_, escrowRepo, repoErr := escrowRepos(tx)
	if repoErr != nil {
		return nil, repoErr
	}
	escrow, err := escrowRepo.FindByOrderIDForUpdate(ctx, order.ID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if escrow.Status != domain.EscrowStatusLocked {
		return nil, &domain.EscrowStateError{OrderID: order.ID, Status: escrow.Status}
	}
	refunded, settleErr := escrowRepo.MarkRefunded(ctx, repoargs.SettleEscrow{
		OrderID: order.ID,
		At:      now,
		By:      string(trigger),
		Reason:  &reason,
	})
	if settleErr != nil {
		return nil, settleConflict(order.ID, settleErr)
	}
	clientWallet, walletErr := walletOf(ctx, tx, order.ClientID)
	if walletErr != nil {
		return nil, walletErr
	}
	if _, creditErr := credit(ctx, tx, ledgerEntry{
		WalletID:  clientWallet.ID,
		OrderID:   ptr(order.ID),
		Amount:    refunded.Amount,
		Type:      domain.TransactionEscrowRefund,
		Reference: orderReference(order.ID, "REFUND"),
	}); creditErr != nil {
		return nil, creditErr
	}
	return refunded, nil
}

func notifyRefund(ctx context.Context, n Notifier, order *domain.Order, escrow *domain.EscrowAccount) {
	notify(ctx, n, order.ClientID, domain.NotifyFundsRefunded, map[string]any{
		"order_id": order.ID,
		"amount":   escrow.Amount,
	})
}

// settleConflict условное обновление счета не нашло строку в LOCKED: счет уже закрыт другим вызовом.
func settleConflict(orderID int64, err error) error {
	if errors.Is(err, domain.ErrRecordNotFound) {
		return fmt.Errorf("escrow of order %d already settled: %w", orderID, domain.ErrStateConflict)
	}
	return err
}

func escrowRepos(tx uow.TX) (OrderRepository, EscrowRepository, error) {
	orderRepo, err := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}
	escrowRepo, err := uow.GetAs[EscrowRepository](tx, uow.RepositoryName(repoargs.EscrowRepoName))
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}
	return orderRepo, escrowRepo, nil
}

func walletOf(ctx context.Context, tx uow.TX, userID int64) (*domain.Wallet, error) {
	walletRepo, err := uow.GetAs[WalletRepository](tx, uow.RepositoryName(repoargs.WalletRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	wallet, err := walletRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return wallet, nil
}
