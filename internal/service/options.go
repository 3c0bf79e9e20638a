package service

import (
	"context"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Options общие зависимости сервисов. Нулевые поля заменяются значениями по умолчанию.
type Options struct {
	CommissionRate decimal.Decimal
	// CommissionUserID владелец кошелька платформы. 0 - комиссия остается только на счете эскроу.
	CommissionUserID int64
	// PasswordCost стоимость bcrypt для паролей. 0 - psswd.DefaultCost.
	PasswordCost int
	Now          func() time.Time
	Notifier     Notifier
	Enrichment   EnrichmentQueue
}

func (o Options) withDefaults() Options {
	if o.CommissionRate.IsZero() {
		o.CommissionRate = domain.DefaultCommissionRate
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Notifier == nil {
		o.Notifier = nopNotifier{}
	}
	if o.Enrichment == nil {
		o.Enrichment = nopEnrichment{}
	}
	return o
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.Notification) {}

type nopEnrichment struct{}

func (nopEnrichment) Enqueue(int64) bool { return false }

// notify отправляет уведомление. Вызывается только после успешного коммита.
func notify(ctx context.Context, n Notifier, userID int64, kind domain.NotificationKind, payload map[string]any) {
	n.Notify(ctx, domain.Notification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Kind:    kind,
		Payload: payload,
	})
}
