package domain

import (
	"time"
)

// Все денежные поля хранятся в минимальных единицах валюты (int64), без float.

type User struct {
	ID                int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Phone             string
	FullName          string
	Role              UserRole
	EncryptedPassword string
}

type Listing struct {
	ID          int64
	CreatedAt   time.Time
	PartnerID   int64
	Title       string
	Description string
	Price       int64
	PriceUnit   string
	Category    string
	IsAvailable bool
}

type Order struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time

	ClientID  int64
	PartnerID int64
	ListingID int64

	TotalAmount int64
	Status      OrderStatusType

	DeliveryNeeded     bool
	DeliveryAddress    string
	ProblemDescription string

	AITitle    string
	AICategory string
	AITags     string

	FundedAt            *time.Time
	DeliveredAt         *time.Time
	Reminder1SentAt     *time.Time
	Reminder2SentAt     *time.Time
	ReminderFinalSentAt *time.Time
	CompletedAt         *time.Time
	CancelledAt         *time.Time
	DisputeRaisedAt     *time.Time
	DisputeReason       *string
}

// ActorRoleFor определяет роль пользователя относительно заказа. Возвращает false, если пользователь
// не является стороной заказа.
func (o *Order) ActorRoleFor(userID int64) (ActorRole, bool) {
	switch userID {
	case o.ClientID:
		return ActorClient, true
	case o.PartnerID:
		return ActorProvider, true
	default:
		return "", false
	}
}

// ReminderSentAt возвращает отметку отправки напоминания для шага step.
func (o *Order) ReminderSentAt(step ReminderStep) *time.Time {
	switch step {
	case Reminder1:
		return o.Reminder1SentAt
	case Reminder2:
		return o.Reminder2SentAt
	case ReminderFinal:
		return o.ReminderFinalSentAt
	default:
		return nil
	}
}

type EscrowAccount struct {
	ID               int64
	CreatedAt        time.Time
	OrderID          int64
	Amount           int64
	CommissionAmount int64
	ArtisanPayout    int64
	Status           EscrowStatusType
	LockedAt         time.Time
	ReleasedAt       *time.Time
	RefundedAt       *time.Time
	Reason           *string
	ReleasedBy       *string
}

// TimeLockedMinutes сколько минут средства заблокированы. Для не LOCKED счета возвращает 0.
func (e *EscrowAccount) TimeLockedMinutes(now time.Time) int64 {
	if e.Status != EscrowStatusLocked {
		return 0
	}
	return int64(now.Sub(e.LockedAt) / time.Minute)
}

type Wallet struct {
	ID            int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	UserID        int64
	Balance       int64
	FrozenBalance int64
}

// Transaction запись журнала движения средств. После вставки не изменяется.
type Transaction struct {
	ID        int64
	CreatedAt time.Time
	WalletID  int64
	OrderID   *int64
	Amount    int64
	Type      TransactionType
	Status    string
	Reference string
}

type Notification struct {
	ID      string
	UserID  int64
	Kind    NotificationKind
	Payload map[string]any
}
