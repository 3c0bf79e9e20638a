package pgrepo

import (
	"context"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/escrow-ledger/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, created_at, wallet_id, order_id, amount, type::text, status, reference`

// TransactionRepository журнал движения средств. Методов изменения и удаления нет, в базе то же
// гарантирует триггер transactions_no_update.
type TransactionRepository struct {
	db uow.DBTX
}

func NewTransactionRepository(db uow.DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (t *TransactionRepository) Create(
	ctx context.Context,
	args repoargs.CreateTransaction,
) (*domain.Transaction, error) {
	row := t.db.QueryRow(ctx,
		`INSERT INTO transactions (wallet_id, order_id, amount, type, status, reference)
		VALUES ($1, $2, $3, $4::transaction_type, $5, $6)
		RETURNING `+transactionColumns,
		args.WalletID, args.OrderID, args.Amount, string(args.Type), domain.TransactionStatusSuccess, args.Reference,
	)
	trans, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "creating %s transaction for wallet %d", args.Type, args.WalletID)
	}
	return trans, nil
}

// GetByWalletID история кошелька, новые первыми.
func (t *TransactionRepository) GetByWalletID(ctx context.Context, walletID int64) ([]domain.Transaction, error) {
	rows, err := t.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE wallet_id = $1 ORDER BY id DESC`, walletID)
	if err != nil {
		return nil, convertErr(err, "getting transactions of wallet %d", walletID)
	}
	return collectTransactions(rows, "scanning transactions of wallet %d", walletID)
}

func (t *TransactionRepository) GetByOrderID(ctx context.Context, orderID int64) ([]domain.Transaction, error) {
	rows, err := t.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, convertErr(err, "getting transactions of order %d", orderID)
	}
	return collectTransactions(rows, "scanning transactions of order %d", orderID)
}

// SumByWalletID сумма всех записей кошелька. Должна совпадать с балансом.
func (t *TransactionRepository) SumByWalletID(ctx context.Context, walletID int64) (int64, error) {
	var sum int64
	if err := t.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::bigint FROM transactions WHERE wallet_id = $1`, walletID,
	).Scan(&sum); err != nil {
		return 0, convertErr(err, "summing transactions of wallet %d", walletID)
	}
	return sum, nil
}

func collectTransactions(rows pgx.Rows, format string, id int64) ([]domain.Transaction, error) {
	list, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Transaction, error) {
		trans, scanErr := scanTransaction(r)
		if scanErr != nil {
			return domain.Transaction{}, scanErr
		}
		return *trans, nil
	})
	if err != nil {
		return nil, convertErr(err, format, id)
	}
	return list, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var trans domain.Transaction
	var transType string
	if err := row.Scan(
		&trans.ID,
		&trans.CreatedAt,
		&trans.WalletID,
		&trans.OrderID,
		&trans.Amount,
		&transType,
		&trans.Status,
		&trans.Reference,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	trans.Type = domain.TransactionType(transType)
	return &trans, nil
}
