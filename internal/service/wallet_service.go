package service

import (
	"context"
	"fmt"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/metrics"
	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/escrow-ledger/pkg/uow"
	"github.com/google/uuid"
)

type WalletService struct {
	uow        uow.UOW
	walletRepo WalletRepository
	transRepo  TransactionRepository
}

func NewWalletService(u uow.UOW) (*WalletService, error) {
	walletRepo, err := uow.GetRepositoryAs[WalletRepository](u, uow.RepositoryName(repoargs.WalletRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	transRepo, err := uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &WalletService{
		uow:        u,
		walletRepo: walletRepo,
		transRepo:  transRepo,
	}, nil
}

// Deposit зачисляет amount на кошелек пользователя (DEPOSIT). Внешнего платежного шлюза нет,
// баланс - внутренний учет.
func (w *WalletService) Deposit(ctx context.Context, userID int64, amount int64) (*domain.Wallet, error) {
	return w.move(ctx, "deposit", userID, amount, func(c context.Context, tx uow.TX, wallet *domain.Wallet) (*domain.Wallet, error) { //nolint:lll
		return credit(c, tx, ledgerEntry{
			WalletID:  wallet.ID,
			Amount:    amount,
			Type:      domain.TransactionDeposit,
			Reference: "DEP-" + uuid.NewString(),
		})
	})
}

// Withdraw списывает amount (WITHDRAWAL). При нехватке средств - ErrInsufficientFunds без изменений.
func (w *WalletService) Withdraw(ctx context.Context, userID int64, amount int64) (*domain.Wallet, error) {
	return w.move(ctx, "withdraw", userID, amount, func(c context.Context, tx uow.TX, wallet *domain.Wallet) (*domain.Wallet, error) { //nolint:lll
		return debit(c, tx, ledgerEntry{
			WalletID:  wallet.ID,
			Amount:    amount,
			Type:      domain.TransactionWithdrawal,
			Reference: "WDR-" + uuid.NewString(),
		})
	})
}

func (w *WalletService) move(
	ctx context.Context,
	op string,
	userID int64,
	amount int64,
	fn func(context.Context, uow.TX, *domain.Wallet) (*domain.Wallet, error),
) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%s %d: %w", op, amount, domain.ErrInvalidAmount)
	}
	var res *domain.Wallet
	err := w.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		wallet, walletErr := walletOf(c, tx, userID)
		if walletErr != nil {
			return walletErr
		}
		var moveErr error
		res, moveErr = fn(c, tx, wallet)
		return moveErr
	})
	metrics.LedgerOpsTotal.WithLabelValues(op, resultLabel(err)).Inc()
	if err != nil {
		return nil, txErr(fmt.Sprintf("%s for user %d", op, userID), err)
	}
	metrics.LedgerVolume.WithLabelValues(op).Add(float64(amount))
	return res, nil
}

func (w *WalletService) GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	wallet, err := w.walletRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting wallet of user %d: %w", userID, err)
	}
	return wallet, nil
}

// History журнал кошелька пользователя, новые записи первыми.
func (w *WalletService) History(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	wallet, err := w.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := w.transRepo.GetByWalletID(ctx, wallet.ID)
	if err != nil {
		return nil, fmt.Errorf("getting history of user %d: %w", userID, err)
	}
	return list, nil
}

// Reconcile сверяет баланс кошелька с суммой записей журнала. Возвращает баланс и сумму журнала.
func (w *WalletService) Reconcile(ctx context.Context, userID int64) (int64, int64, error) {
	wallet, err := w.GetWallet(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	sum, err := w.transRepo.SumByWalletID(ctx, wallet.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("summing ledger of user %d: %w", userID, err)
	}
	return wallet.Balance, sum, nil
}
