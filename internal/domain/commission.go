package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCommissionRate комиссия платформы, 5%.
var DefaultCommissionRate = decimal.NewFromFloat(0.05) //nolint:gochecknoglobals

// Split разбивка суммы эскроу: комиссия платформы и чистая выплата исполнителю.
type Split struct {
	Amount     int64
	Commission int64
	Payout     int64
}

// ComputeCommission считает комиссию от total по ставке rate. Округление - половина вверх
// (decimal.Round округляет половину от нуля, суммы всегда положительные). Считается один раз при блокировке
// средств и больше не пересчитывается; выплата всегда выводится как total - commission.
func ComputeCommission(total int64, rate decimal.Decimal) (Split, error) {
	if total <= 0 {
		return Split{}, fmt.Errorf("compute commission for %d: %w", total, ErrInvalidAmount)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Split{}, fmt.Errorf("compute commission: rate %s out of range [0, 1)", rate.String())
	}
	commission := decimal.NewFromInt(total).Mul(rate).Round(0).IntPart()
	return Split{
		Amount:     total,
		Commission: commission,
		Payout:     total - commission,
	}, nil
}
