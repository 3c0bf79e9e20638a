package repoargs

import (
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
)

type CreateOrder struct {
	ClientID           int64
	PartnerID          int64
	ListingID          int64
	TotalAmount        int64
	DeliveryNeeded     bool
	DeliveryAddress    string
	ProblemDescription string
}

// ReminderCandidates выборка заказов для шага напоминания Step: статус From,
// delivered_at <= DeliveredBefore и отметка шага еще не проставлена. Выдача начинается после After.
type ReminderCandidates struct {
	Step            domain.ReminderStep
	From            domain.OrderStatusType
	DeliveredBefore time.Time
	After           domain.OrderCursor
	Limit           uint
}

// AutoReleaseCandidates заказы в статусах выплаты с delivered_at <= DeliveredBefore, после After.
type AutoReleaseCandidates struct {
	DeliveredBefore time.Time
	After           domain.OrderCursor
	Limit           uint
}

type OrderEnrichment struct {
	OrderID  int64
	Title    string
	Category string
	Tags     string
}
