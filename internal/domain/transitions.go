package domain

type Operation string

const (
	OpAccept          Operation = "accept"
	OpLockFunds       Operation = "lock_funds"
	OpStartWork       Operation = "start_work"
	OpDeclareFinished Operation = "declare_finished"
	OpRelease         Operation = "release"
	OpReminder1       Operation = "reminder_1"
	OpReminder2       Operation = "reminder_2"
	OpReminderFinal   Operation = "reminder_final"
	OpDispute         Operation = "dispute"
	OpCancel          Operation = "cancel"
	OpRefund          Operation = "refund"
)

// transition одна строка таблицы: из каких статусов, кем и в какой статус.
type transition struct {
	from   []OrderStatusType
	actors []ActorRole
	to     OrderStatusType
	// keep - статус заказа не меняется (например, возврат средств по спорному заказу).
	keep bool
}

var nonTerminal = []OrderStatusType{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusFunded,
	OrderStatusInProgress,
	OrderStatusDelivered,
	OrderStatusReminder1,
	OrderStatusReminder2,
	OrderStatusReminderFinal,
}

// transitionTable единственное место, где описана допустимость переходов. Все мутирующие операции
// сервисов и планировщика проверяют переход через CheckTransition.
var transitionTable = map[Operation][]transition{
	OpAccept: {
		{from: []OrderStatusType{OrderStatusPending}, actors: []ActorRole{ActorProvider}, to: OrderStatusAccepted},
	},
	OpLockFunds: {
		{from: []OrderStatusType{OrderStatusAccepted}, actors: []ActorRole{ActorClient}, to: OrderStatusFunded},
	},
	OpStartWork: {
		{from: []OrderStatusType{OrderStatusFunded}, actors: []ActorRole{ActorProvider}, to: OrderStatusInProgress},
	},
	OpDeclareFinished: {
		{
			from:   []OrderStatusType{OrderStatusFunded, OrderStatusInProgress},
			actors: []ActorRole{ActorProvider},
			to:     OrderStatusDelivered,
		},
	},
	OpRelease: {
		{from: ReleasableStatuses, actors: []ActorRole{ActorClient, ActorSystem}, to: OrderStatusCompleted},
	},
	OpReminder1: {
		{from: []OrderStatusType{OrderStatusDelivered}, actors: []ActorRole{ActorSystem}, to: OrderStatusReminder1},
	},
	OpReminder2: {
		{from: []OrderStatusType{OrderStatusReminder1}, actors: []ActorRole{ActorSystem}, to: OrderStatusReminder2},
	},
	OpReminderFinal: {
		{from: []OrderStatusType{OrderStatusReminder2}, actors: []ActorRole{ActorSystem}, to: OrderStatusReminderFinal},
	},
	OpDispute: {
		{from: nonTerminal, actors: []ActorRole{ActorClient, ActorProvider}, to: OrderStatusDisputed},
	},
	OpCancel: {
		{
			from:   []OrderStatusType{OrderStatusPending, OrderStatusAccepted},
			actors: []ActorRole{ActorClient, ActorProvider, ActorAdmin},
			to:     OrderStatusCancelled,
		},
		{
			from:   []OrderStatusType{OrderStatusFunded, OrderStatusInProgress},
			actors: []ActorRole{ActorProvider, ActorAdmin},
			to:     OrderStatusCancelled,
		},
		{from: ReleasableStatuses, actors: []ActorRole{ActorAdmin}, to: OrderStatusCancelled},
	},
	OpRefund: {
		{
			from:   []OrderStatusType{OrderStatusFunded, OrderStatusInProgress},
			actors: []ActorRole{ActorAdmin},
			to:     OrderStatusCancelled,
		},
		{from: []OrderStatusType{OrderStatusDisputed}, actors: []ActorRole{ActorAdmin}, keep: true},
	},
}

// CheckTransition проверяет допустимость операции op для заказа в статусе from, выполняемой актором actor.
// Возвращает целевой статус заказа.
//
// Ошибки:
//   - *TransitionError (ErrStateConflict), если операция не разрешена из статуса from;
//   - ErrUnauthorized, если статус подходит, но актор не имеет права на операцию.
func CheckTransition(op Operation, from OrderStatusType, actor ActorRole) (OrderStatusType, error) {
	var stateMatched bool
	for _, t := range transitionTable[op] {
		if !containsStatus(t.from, from) {
			continue
		}
		stateMatched = true
		if !containsActor(t.actors, actor) {
			continue
		}
		if t.keep {
			return from, nil
		}
		return t.to, nil
	}
	if stateMatched {
		return "", ErrUnauthorized
	}
	return "", NewTransitionError(op, from)
}

// AllowedFrom возвращает все статусы, из которых op в принципе допустима.
func AllowedFrom(op Operation) []OrderStatusType {
	var res []OrderStatusType
	for _, t := range transitionTable[op] {
		for _, s := range t.from {
			if !containsStatus(res, s) {
				res = append(res, s)
			}
		}
	}
	return res
}

// ReminderOperation сопоставляет шаг напоминания операции таблицы переходов.
func ReminderOperation(step ReminderStep) Operation {
	switch step {
	case Reminder1:
		return OpReminder1
	case Reminder2:
		return OpReminder2
	default:
		return OpReminderFinal
	}
}

func containsStatus(list []OrderStatusType, s OrderStatusType) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsActor(list []ActorRole, a ActorRole) bool {
	for _, v := range list {
		if v == a {
			return true
		}
	}
	return false
}
