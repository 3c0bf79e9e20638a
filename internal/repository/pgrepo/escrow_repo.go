package pgrepo

import (
	"context"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/escrow-ledger/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const escrowColumns = `e.id, e.created_at, e.order_id, e.amount, e.commission_amount, e.artisan_payout,
	e.status::text, e.locked_at, e.released_at, e.refunded_at, e.reason, e.released_by`

type EscrowRepository struct {
	db uow.DBTX
}

func NewEscrowRepository(db uow.DBTX) *EscrowRepository {
	return &EscrowRepository{db: db}
}

// Create создает счет в статусе LOCKED. Второй счет для того же заказа - ErrDuplicateKey.
func (e *EscrowRepository) Create(ctx context.Context, args repoargs.CreateEscrow) (*domain.EscrowAccount, error) {
	row := e.db.QueryRow(ctx,
		`INSERT INTO escrow_accounts AS e (order_id, amount, commission_amount, artisan_payout, status, locked_at)
		VALUES ($1, $2, $3, $4, 'LOCKED', $5)
		RETURNING `+escrowColumns,
		args.OrderID, args.Amount, args.CommissionAmount, args.ArtisanPayout, args.LockedAt,
	)
	escrow, err := scanEscrow(row)
	if err != nil {
		return nil, convertErr(err, "creating escrow for order %d", args.OrderID)
	}
	return escrow, nil
}

func (e *EscrowRepository) FindByOrderID(ctx context.Context, orderID int64) (*domain.EscrowAccount, error) {
	row := e.db.QueryRow(ctx, `SELECT `+escrowColumns+` FROM escrow_accounts e WHERE e.order_id = $1`, orderID)
	escrow, err := scanEscrow(row)
	if err != nil {
		return nil, convertErr(err, "finding escrow by order %d", orderID)
	}
	return escrow, nil
}

func (e *EscrowRepository) FindByOrderIDForUpdate(ctx context.Context, orderID int64) (*domain.EscrowAccount, error) {
	row := e.db.QueryRow(ctx,
		`SELECT `+escrowColumns+` FROM escrow_accounts e WHERE e.order_id = $1 FOR UPDATE`, orderID)
	escrow, err := scanEscrow(row)
	if err != nil {
		return nil, convertErr(err, "locking escrow of order %d", orderID)
	}
	return escrow, nil
}

// MarkReleased LOCKED -> RELEASED. Если счет уже не LOCKED, строка не обновится и вернется ErrRecordNotFound.
func (e *EscrowRepository) MarkReleased(ctx context.Context, args repoargs.SettleEscrow) (*domain.EscrowAccount, error) {
	row := e.db.QueryRow(ctx,
		`UPDATE escrow_accounts AS e
		SET status = 'RELEASED', released_at = $2, released_by = $3, reason = $4
		WHERE e.order_id = $1 AND e.status = 'LOCKED'
		RETURNING `+escrowColumns,
		args.OrderID, args.At, args.By, args.Reason,
	)
	escrow, err := scanEscrow(row)
	if err != nil {
		return nil, convertErr(err, "releasing escrow of order %d", args.OrderID)
	}
	return escrow, nil
}

// MarkRefunded LOCKED -> REFUNDED, условие то же, что у MarkReleased.
func (e *EscrowRepository) MarkRefunded(ctx context.Context, args repoargs.SettleEscrow) (*domain.EscrowAccount, error) {
	row := e.db.QueryRow(ctx,
		`UPDATE escrow_accounts AS e
		SET status = 'REFUNDED', refunded_at = $2, released_by = $3, reason = $4
		WHERE e.order_id = $1 AND e.status = 'LOCKED'
		RETURNING `+escrowColumns,
		args.OrderID, args.At, args.By, args.Reason,
	)
	escrow, err := scanEscrow(row)
	if err != nil {
		return nil, convertErr(err, "refunding escrow of order %d", args.OrderID)
	}
	return escrow, nil
}

// GetByUserID счета эскроу по заказам, где пользователь клиент или исполнитель.
func (e *EscrowRepository) GetByUserID(ctx context.Context, userID int64) ([]domain.EscrowAccount, error) {
	rows, err := e.db.Query(ctx,
		`SELECT `+escrowColumns+` FROM escrow_accounts e
		JOIN orders o ON o.id = e.order_id
		WHERE o.client_id = $1 OR o.partner_id = $1
		ORDER BY e.locked_at DESC, e.id DESC`, userID)
	if err != nil {
		return nil, convertErr(err, "getting escrows by userID `%d`", userID)
	}
	escrows, collectErr := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.EscrowAccount, error) {
		escrow, scanErr := scanEscrow(r)
		if scanErr != nil {
			return domain.EscrowAccount{}, scanErr
		}
		return *escrow, nil
	})
	if collectErr != nil {
		return nil, convertErr(collectErr, "scanning escrows by userID `%d`", userID)
	}
	return escrows, nil
}

func scanEscrow(row pgx.Row) (*domain.EscrowAccount, error) {
	var escrow domain.EscrowAccount
	var status string
	if err := row.Scan(
		&escrow.ID,
		&escrow.CreatedAt,
		&escrow.OrderID,
		&escrow.Amount,
		&escrow.CommissionAmount,
		&escrow.ArtisanPayout,
		&status,
		&escrow.LockedAt,
		&escrow.ReleasedAt,
		&escrow.RefundedAt,
		&escrow.Reason,
		&escrow.ReleasedBy,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	escrow.Status = domain.EscrowStatusType(status)
	return &escrow, nil
}
