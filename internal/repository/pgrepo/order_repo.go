package pgrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/escrow-ledger/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, created_at, updated_at, client_id, partner_id, listing_id, total_amount, status::text,
	delivery_needed, delivery_address, problem_description, ai_title, ai_category, ai_tags,
	funded_at, delivered_at, reminder_1_sent_at, reminder_2_sent_at, reminder_final_sent_at,
	completed_at, cancelled_at, dispute_raised_at, dispute_reason`

type OrderRepository struct {
	db uow.DBTX
}

func NewOrderRepository(db uow.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func (o *OrderRepository) CreateOrder(ctx context.Context, args repoargs.CreateOrder) (*domain.Order, error) {
	row := o.db.QueryRow(ctx,
		`INSERT INTO orders (client_id, partner_id, listing_id, total_amount, status,
			delivery_needed, delivery_address, problem_description)
		VALUES ($1, $2, $3, $4, 'PENDING', $5, $6, $7)
		RETURNING `+orderColumns,
		args.ClientID, args.PartnerID, args.ListingID, args.TotalAmount,
		args.DeliveryNeeded, args.DeliveryAddress, args.ProblemDescription,
	)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "creating order for listing %d", args.ListingID)
	}
	return order, nil
}

func (o *OrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	row := o.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "finding order by id %d", id)
	}
	return order, nil
}

// FindByIDForUpdate читает заказ с блокировкой строки до конца транзакции. Заказ блокируется первым,
// затем счет эскроу и кошельки.
func (o *OrderRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	row := o.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "locking order %d", id)
	}
	return order, nil
}

// GetByUserID Возвращает заказы, где пользователь клиент или исполнитель, новые первыми.
func (o *OrderRepository) GetByUserID(ctx context.Context, userID int64) ([]domain.Order, error) {
	rows, err := o.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		WHERE client_id = $1 OR partner_id = $1
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, convertErr(err, "getting orders by userID `%d`", userID)
	}
	orders, collectErr := collectOrders(rows)
	if collectErr != nil {
		return nil, convertErr(collectErr, "scanning orders by userID `%d`", userID)
	}
	return orders, nil
}

// UpdateState сохраняет статус и все отметки времени переходов. total_amount и стороны заказа
// не обновляются никогда.
func (o *OrderRepository) UpdateState(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	row := o.db.QueryRow(ctx,
		`UPDATE orders SET
			status = $2::order_status_type,
			funded_at = $3,
			delivered_at = $4,
			reminder_1_sent_at = $5,
			reminder_2_sent_at = $6,
			reminder_final_sent_at = $7,
			completed_at = $8,
			cancelled_at = $9,
			dispute_raised_at = $10,
			dispute_reason = $11,
			updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns,
		order.ID, string(order.Status),
		order.FundedAt, order.DeliveredAt,
		order.Reminder1SentAt, order.Reminder2SentAt, order.ReminderFinalSentAt,
		order.CompletedAt, order.CancelledAt, order.DisputeRaisedAt, order.DisputeReason,
	)
	updated, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "updating state of order %d", order.ID)
	}
	return updated, nil
}

// GetReminderCandidates выборка для шага напоминаний. Условие "отметка шага не проставлена" делает
// повторный прогон безопасным.
func (o *OrderRepository) GetReminderCandidates(
	ctx context.Context,
	args repoargs.ReminderCandidates,
) ([]domain.Order, error) {
	column, colErr := reminderColumn(args.Step)
	if colErr != nil {
		return nil, convertErr(colErr, "resolving reminder column")
	}
	safeLimit, safeLimitErr := safeConvertUintToInt32(args.Limit)
	if safeLimitErr != nil {
		return nil, convertErr(safeLimitErr, "converting limit to int32")
	}
	afterAt, afterID := cursorArgs(args.After)
	rows, err := o.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		WHERE status = $1::order_status_type AND delivered_at <= $2 AND `+column+` IS NULL
			AND ($4::timestamptz IS NULL OR (delivered_at, id) > ($4, $5))
		ORDER BY delivered_at, id
		LIMIT $3`,
		string(args.From), args.DeliveredBefore, safeLimit, afterAt, afterID,
	)
	if err != nil {
		return nil, convertErr(err, "getting reminder %d candidates", args.Step)
	}
	orders, collectErr := collectOrders(rows)
	if collectErr != nil {
		return nil, convertErr(collectErr, "scanning reminder %d candidates", args.Step)
	}
	return orders, nil
}

// GetForAutoRelease заказы в статусах выплаты, доставленные не позже DeliveredBefore. Выдача
// постраничная по ключу (delivered_at, id): следующая страница начинается после последнего заказа предыдущей.
func (o *OrderRepository) GetForAutoRelease(
	ctx context.Context,
	args repoargs.AutoReleaseCandidates,
) ([]domain.Order, error) {
	safeLimit, safeLimitErr := safeConvertUintToInt32(args.Limit)
	if safeLimitErr != nil {
		return nil, convertErr(safeLimitErr, "converting limit to int32")
	}
	statuses := make([]string, len(domain.ReleasableStatuses))
	for i, st := range domain.ReleasableStatuses {
		statuses[i] = string(st)
	}
	afterAt, afterID := cursorArgs(args.After)
	rows, err := o.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		WHERE status::text = ANY($1) AND delivered_at <= $2
			AND ($4::timestamptz IS NULL OR (delivered_at, id) > ($4, $5))
		ORDER BY delivered_at, id
		LIMIT $3`,
		statuses, args.DeliveredBefore, safeLimit, afterAt, afterID,
	)
	if err != nil {
		return nil, convertErr(err, "getting orders for auto release")
	}
	orders, collectErr := collectOrders(rows)
	if collectErr != nil {
		return nil, convertErr(collectErr, "scanning orders for auto release")
	}
	return orders, nil
}

func (o *OrderRepository) UpdateEnrichment(ctx context.Context, args repoargs.OrderEnrichment) error {
	tag, err := o.db.Exec(ctx,
		`UPDATE orders SET ai_title = $2, ai_category = $3, ai_tags = $4, updated_at = now() WHERE id = $1`,
		args.OrderID, args.Title, args.Category, args.Tags,
	)
	if err != nil {
		return convertErr(err, "updating enrichment of order %d", args.OrderID)
	}
	if tag.RowsAffected() == 0 {
		return convertErr(pgx.ErrNoRows, "updating enrichment of order %d", args.OrderID)
	}
	return nil
}

// cursorArgs параметры курсора для запроса. Нулевой курсор передается как NULL.
func cursorArgs(c domain.OrderCursor) (*time.Time, int64) {
	if c.IsZero() {
		return nil, 0
	}
	return &c.DeliveredAt, c.ID
}

func reminderColumn(step domain.ReminderStep) (string, error) {
	switch step {
	case domain.Reminder1:
		return "reminder_1_sent_at", nil
	case domain.Reminder2:
		return "reminder_2_sent_at", nil
	case domain.ReminderFinal:
		return "reminder_final_sent_at", nil
	default:
		return "", fmt.Errorf("unknown reminder step %d", step)
	}
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Order, error) { //nolint:wrapcheck
		order, err := scanOrder(r)
		if err != nil {
			return domain.Order{}, err
		}
		return *order, nil
	})
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	var status string
	if err := row.Scan(
		&order.ID,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.ClientID,
		&order.PartnerID,
		&order.ListingID,
		&order.TotalAmount,
		&status,
		&order.DeliveryNeeded,
		&order.DeliveryAddress,
		&order.ProblemDescription,
		&order.AITitle,
		&order.AICategory,
		&order.AITags,
		&order.FundedAt,
		&order.DeliveredAt,
		&order.Reminder1SentAt,
		&order.Reminder2SentAt,
		&order.ReminderFinalSentAt,
		&order.CompletedAt,
		&order.CancelledAt,
		&order.DisputeRaisedAt,
		&order.DisputeReason,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	order.Status = domain.OrderStatusType(status)
	return &order, nil
}
