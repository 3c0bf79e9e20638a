package domain

type OrderStatusType string

const (
	OrderStatusPending       OrderStatusType = "PENDING"
	OrderStatusAccepted      OrderStatusType = "ACCEPTED"
	OrderStatusFunded        OrderStatusType = "FUNDED"
	OrderStatusInProgress    OrderStatusType = "IN_PROGRESS"
	OrderStatusDelivered     OrderStatusType = "DELIVERED"
	OrderStatusReminder1     OrderStatusType = "REMINDER_1"
	OrderStatusReminder2     OrderStatusType = "REMINDER_2"
	OrderStatusReminderFinal OrderStatusType = "REMINDER_FINAL"
	OrderStatusCompleted     OrderStatusType = "COMPLETED"
	OrderStatusDisputed      OrderStatusType = "DISPUTED"
	OrderStatusCancelled     OrderStatusType = "CANCELLED"
)

// IsTerminal возвращает true для статусов, из которых заказ больше никуда не переходит.
func (s OrderStatusType) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusDisputed, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// ReleasableStatuses статусы, из которых возможна выплата исполнителю (вручную или по таймеру).
var ReleasableStatuses = []OrderStatusType{
	OrderStatusDelivered,
	OrderStatusReminder1,
	OrderStatusReminder2,
	OrderStatusReminderFinal,
}

type EscrowStatusType string

const (
	EscrowStatusLocked   EscrowStatusType = "LOCKED"
	EscrowStatusReleased EscrowStatusType = "RELEASED"
	EscrowStatusRefunded EscrowStatusType = "REFUNDED"
	// EscrowStatusExpired зарезервирован под аудит, движок его не выставляет.
	EscrowStatusExpired EscrowStatusType = "EXPIRED"
)

type TransactionType string

const (
	TransactionDeposit       TransactionType = "DEPOSIT"
	TransactionWithdrawal    TransactionType = "WITHDRAWAL"
	TransactionEscrowLock    TransactionType = "ESCROW_LOCK"
	TransactionEscrowRelease TransactionType = "ESCROW_RELEASE"
	TransactionEscrowRefund  TransactionType = "ESCROW_REFUND"
	TransactionCommission    TransactionType = "COMMISSION"
)

const TransactionStatusSuccess = "SUCCESS"

// TriggerSource кто инициировал выплату или возврат. Пишется в escrow.released_by для аудита.
type TriggerSource string

const (
	TriggerClient      TriggerSource = "CLIENT"
	TriggerAutoRelease TriggerSource = "AUTO_RELEASE"
	TriggerAdmin       TriggerSource = "ADMIN"
	TriggerCancel      TriggerSource = "CANCELLATION"
)

type UserRole string

const (
	RoleClient  UserRole = "CLIENT"
	RoleArtisan UserRole = "ARTISAN"
	RoleAdmin   UserRole = "ADMIN"
)

// ActorRole роль участника относительно конкретного заказа.
type ActorRole string

const (
	ActorClient   ActorRole = "client"
	ActorProvider ActorRole = "provider"
	ActorAdmin    ActorRole = "admin"
	ActorSystem   ActorRole = "system"
)

type ReminderStep int

const (
	Reminder1 ReminderStep = iota + 1
	Reminder2
	ReminderFinal
)

type NotificationKind string

const (
	NotifyOrderCreated   NotificationKind = "ORDER_CREATED"
	NotifyOrderAccepted  NotificationKind = "ORDER_ACCEPTED"
	NotifyFundsLocked    NotificationKind = "FUNDS_LOCKED"
	NotifyWorkStarted    NotificationKind = "WORK_STARTED"
	NotifyWorkDelivered  NotificationKind = "WORK_DELIVERED"
	NotifyReminder1      NotificationKind = "REMINDER_1"
	NotifyReminder2      NotificationKind = "REMINDER_2"
	NotifyReminderFinal  NotificationKind = "REMINDER_FINAL"
	NotifyFundsReleased  NotificationKind = "FUNDS_RELEASED"
	NotifyDisputeRaised  NotificationKind = "DISPUTE_RAISED"
	NotifyOrderCancelled NotificationKind = "ORDER_CANCELLED"
	NotifyFundsRefunded  NotificationKind = "FUNDS_REFUNDED"
)
