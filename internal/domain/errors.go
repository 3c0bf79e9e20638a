package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrPasswordMissMatch = errors.New("password mismatch")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrUnknown           = errors.New("unknown error")

	ErrUnauthorized      = errors.New("actor is not authorized for this order")
	ErrStateConflict     = errors.New("operation is not allowed in current state")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrValidation        = errors.New("validation failed")
	// ErrTransientStore транзакция не смогла закоммититься. Операцию можно повторить.
	ErrTransientStore = errors.New("transient store failure")
)

// TransitionError переход запрещен таблицей переходов для текущего статуса заказа.
type TransitionError struct {
	Op   Operation
	From OrderStatusType
}

func NewTransitionError(op Operation, from OrderStatusType) error {
	return &TransitionError{Op: op, From: from}
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("operation %s is not allowed for order in status %s", e.Op, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrStateConflict
}

// EscrowStateError счет эскроу уже вышел из LOCKED (двойная выплата, выплата после возврата и т.п.).
type EscrowStateError struct {
	OrderID int64
	Status  EscrowStatusType
}

func (e *EscrowStateError) Error() string {
	return fmt.Sprintf("escrow for order %d is %s", e.OrderID, e.Status)
}

func (e *EscrowStateError) Unwrap() error {
	return ErrStateConflict
}

// IsBusinessError true для ошибок, повтор которых не имеет смысла.
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrStateConflict) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrValidation)
}
