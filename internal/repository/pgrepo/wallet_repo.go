package pgrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const walletColumns = `id, created_at, updated_at, user_id, balance, frozen_balance`

type WalletRepository struct {
	db uow.DBTX
}

func NewWalletRepository(db uow.DBTX) *WalletRepository {
	return &WalletRepository{db: db}
}

func (w *WalletRepository) Create(ctx context.Context, userID int64) (*domain.Wallet, error) {
	row := w.db.QueryRow(ctx,
		`INSERT INTO wallets (user_id) VALUES ($1) RETURNING `+walletColumns, userID)
	wallet, err := scanWallet(row)
	if err != nil {
		return nil, convertErr(err, "creating wallet for user %d", userID)
	}
	return wallet, nil
}

func (w *WalletRepository) FindByUserID(ctx context.Context, userID int64) (*domain.Wallet, error) {
	row := w.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	wallet, err := scanWallet(row)
	if err != nil {
		return nil, convertErr(err, "finding wallet by user %d", userID)
	}
	return wallet, nil
}

// Debit списывает amount одним условным UPDATE. Если средств не хватает, строка не обновляется и
// возвращается ErrInsufficientFunds; если кошелька нет - ErrRecordNotFound.
func (w *WalletRepository) Debit(ctx context.Context, walletID int64, amount int64) (*domain.Wallet, error) {
	row := w.db.QueryRow(ctx,
		`UPDATE wallets SET balance = balance - $2, updated_at = now()
		WHERE id = $1 AND balance >= $2
		RETURNING `+walletColumns,
		walletID, amount,
	)
	wallet, err := scanWallet(row)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, convertErr(err, "debiting wallet %d", walletID)
	}

	var exists bool
	if existErr := w.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE id = $1)`, walletID).
		Scan(&exists); existErr != nil {
		return nil, convertErr(existErr, "checking wallet %d", walletID)
	}
	if !exists {
		return nil, convertErr(pgx.ErrNoRows, "debiting wallet %d", walletID)
	}
	return nil, fmt.Errorf("[repository/debiting wallet %d] %w", walletID, domain.ErrInsufficientFunds)
}

func (w *WalletRepository) Credit(ctx context.Context, walletID int64, amount int64) (*domain.Wallet, error) {
	row := w.db.QueryRow(ctx,
		`UPDATE wallets SET balance = balance + $2, updated_at = now()
		WHERE id = $1
		RETURNING `+walletColumns,
		walletID, amount,
	)
	wallet, err := scanWallet(row)
	if err != nil {
		return nil, convertErr(err, "crediting wallet %d", walletID)
	}
	return wallet, nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := row.Scan(
		&wallet.ID,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
		&wallet.UserID,
		&wallet.Balance,
		&wallet.FrozenBalance,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &wallet, nil
}
