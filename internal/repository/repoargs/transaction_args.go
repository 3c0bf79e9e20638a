package repoargs

import "github.com/fsdevblog/escrow-ledger/internal/domain"

// CreateTransaction запись журнала. Amount со знаком: списания отрицательные, зачисления положительные.
type CreateTransaction struct {
	WalletID  int64
	OrderID   *int64
	Amount    int64
	Type      domain.TransactionType
	Reference string
}
