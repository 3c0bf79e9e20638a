package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/escrow-ledger/pkg/uow"
)

// ledgerEntry движение средств по одному кошельку. Amount всегда положительный, знак записи в журнале
// определяется направлением (debit/credit).
type ledgerEntry struct {
	WalletID  int64
	OrderID   *int64
	Amount    int64
	Type      domain.TransactionType
	Reference string
}

// debit списывает средства с кошелька и дописывает отрицательную запись в журнал. Вызывается только
// внутри транзакции uow: изменение баланса без записи в журнал невозможно.
func debit(ctx context.Context, tx uow.TX, e ledgerEntry) (*domain.Wallet, error) {
	if e.Amount <= 0 {
		return nil, fmt.Errorf("debit wallet %d: %w", e.WalletID, domain.ErrInvalidAmount)
	}
	walletRepo, transRepo, repoErr := ledgerRepos(tx)
	if repoErr != nil {
		return nil, repoErr
	}
	wallet, err := walletRepo.Debit(ctx, e.WalletID, e.Amount)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if _, err = transRepo.Create(ctx, repoargs.CreateTransaction{
		WalletID:  e.WalletID,
		OrderID:   e.OrderID,
		Amount:    -e.Amount,
		Type:      e.Type,
		Reference: e.Reference,
	}); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return wallet, nil
}

// credit зачисляет средства и дописывает положительную запись в журнал.
func credit(ctx context.Context, tx uow.TX, e ledgerEntry) (*domain.Wallet, error) {
	if e.Amount < 0 {
		return nil, fmt.Errorf("credit wallet %d: %w", e.WalletID, domain.ErrInvalidAmount)
	}
	// нулевая комиссия или выплата: движения нет, записи тоже.
	if e.Amount == 0 {
		return nil, nil
	}
	walletRepo, transRepo, repoErr := ledgerRepos(tx)
	if repoErr != nil {
		return nil, repoErr
	}
	wallet, err := walletRepo.Credit(ctx, e.WalletID, e.Amount)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if _, err = transRepo.Create(ctx, repoargs.CreateTransaction{
		WalletID:  e.WalletID,
		OrderID:   e.OrderID,
		Amount:    e.Amount,
		Type:      e.Type,
		Reference: e.Reference,
	}); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return wallet, nil
}

func ledgerRepos(tx uow.TX) (WalletRepository, TransactionRepository, error) {
	walletRepo, err := uow.GetAs[WalletRepository](tx, uow.RepositoryName(repoargs.WalletRepoName))
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}
	transRepo, err := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}
	return walletRepo, transRepo, nil
}

// orderReference ссылка записи журнала, например ORD-42-LOCK.
func orderReference(orderID int64, suffix string) string {
	return fmt.Sprintf("ORD-%d-%s", orderID, suffix)
}

// txErr приводит ошибку uow.Do к виду сервиса: сбой begin/commit - ErrTransientStore, остальное как есть.
func txErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if uow.IsTxError(err) {
		return fmt.Errorf("%s: %w: %s", op, domain.ErrTransientStore, err.Error())
	}
	return fmt.Errorf("%s: %w", op, err)
}

// resultLabel метка результата для метрик.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrStateConflict):
		return "state_conflict"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrRecordNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrTransientStore):
		return "transient"
	default:
		return "error"
	}
}

func ptr[T any](v T) *T {
	return &v
}
