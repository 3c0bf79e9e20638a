package domain

import "time"

// Все сроки отсчитываются от delivered_at.
const (
	Reminder1Delay     = 24 * time.Hour
	Reminder2Delay     = 36 * time.Hour
	ReminderFinalDelay = 47 * time.Hour
	AutoReleaseDelay   = 48 * time.Hour
)

// ReminderRule шаг лестницы напоминаний.
type ReminderRule struct {
	Step  ReminderStep
	From  OrderStatusType
	To    OrderStatusType
	Delay time.Duration
	Kind  NotificationKind
}

// ReminderLadder шаги в порядке прохождения.
var ReminderLadder = []ReminderRule{ //nolint:gochecknoglobals
	{Step: Reminder1, From: OrderStatusDelivered, To: OrderStatusReminder1, Delay: Reminder1Delay, Kind: NotifyReminder1},
	{Step: Reminder2, From: OrderStatusReminder1, To: OrderStatusReminder2, Delay: Reminder2Delay, Kind: NotifyReminder2},
	{
		Step:  ReminderFinal,
		From:  OrderStatusReminder2,
		To:    OrderStatusReminderFinal,
		Delay: ReminderFinalDelay,
		Kind:  NotifyReminderFinal,
	},
}

// ReminderRuleFor возвращает правило шага step.
func ReminderRuleFor(step ReminderStep) (ReminderRule, bool) {
	for _, r := range ReminderLadder {
		if r.Step == step {
			return r, true
		}
	}
	return ReminderRule{}, false
}

// OrderCursor позиция в выборке заказов, упорядоченной по (delivered_at, id).
// Нулевое значение - начало выборки.
type OrderCursor struct {
	DeliveredAt time.Time
	ID          int64
}

// CursorAt курсор, указывающий на заказ o. Заказ без delivered_at дает нулевой курсор.
func CursorAt(o Order) OrderCursor {
	if o.DeliveredAt == nil {
		return OrderCursor{}
	}
	return OrderCursor{DeliveredAt: *o.DeliveredAt, ID: o.ID}
}

func (c OrderCursor) IsZero() bool {
	return c.ID == 0 && c.DeliveredAt.IsZero()
}

// Admits true, если доставленный заказ o идет в выборке строго после курсора.
func (c OrderCursor) Admits(o Order) bool {
	if o.DeliveredAt == nil {
		return false
	}
	if c.IsZero() {
		return true
	}
	if cmp := o.DeliveredAt.Compare(c.DeliveredAt); cmp != 0 {
		return cmp > 0
	}
	return o.ID > c.ID
}

// DeliveredBefore true, если заказ доставлен и с момента доставки прошло не меньше delay.
func (o *Order) DeliveredBefore(now time.Time, delay time.Duration) bool {
	return o.DeliveredAt != nil && !o.DeliveredAt.After(now.Add(-delay))
}

// MarkReminderSent проставляет отметку шага step.
func (o *Order) MarkReminderSent(step ReminderStep, at time.Time) {
	switch step {
	case Reminder1:
		o.Reminder1SentAt = &at
	case Reminder2:
		o.Reminder2SentAt = &at
	case ReminderFinal:
		o.ReminderFinalSentAt = &at
	}
}

// Actor пользователь, выполняющий операцию, с его ролью на платформе.
type Actor struct {
	UserID int64
	Role   UserRole
}

// SystemActor планировщик.
var SystemActor = Actor{} //nolint:gochecknoglobals

// RoleFor роль актора относительно заказа. Администратор определяется по роли пользователя,
// остальные - по участию в заказе. Посторонний получает ErrUnauthorized.
func (a Actor) RoleFor(o *Order) (ActorRole, error) {
	if a == SystemActor {
		return ActorSystem, nil
	}
	if role, ok := o.ActorRoleFor(a.UserID); ok {
		return role, nil
	}
	if a.Role == RoleAdmin {
		return ActorAdmin, nil
	}
	return "", ErrUnauthorized
}
