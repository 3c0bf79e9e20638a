package uow

import (
	"errors"
	"fmt"
)

var (
	ErrRepositoryNotRegistered     = errors.New("[uow] repository not registered")
	ErrRepositoryAlreadyRegistered = errors.New("[uow] repository already registered")
	ErrInvalidRepositoryType       = errors.New("[uow] invalid repository type")
)

// TxError ошибка открытия или фиксации транзакции. Ошибки бизнес-логики из fn в нее не заворачиваются,
// поэтому вызывающий код может отличить сбой хранилища от отказа по бизнес-правилам.
type TxError struct {
	Op  string
	Err error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("[uow] %s transaction: %s", e.Op, e.Err.Error())
}

func (e *TxError) Unwrap() error {
	return e.Err
}

// IsTxError проверяет, что ошибка возникла при begin/commit транзакции.
func IsTxError(err error) bool {
	var txErr *TxError
	return errors.As(err, &txErr)
}
