package repoargs

import "time"

type CreateEscrow struct {
	OrderID          int64
	Amount           int64
	CommissionAmount int64
	ArtisanPayout    int64
	LockedAt         time.Time
}

// SettleEscrow перевод счета из LOCKED в RELEASED или REFUNDED. Обновление условное: если счет уже
// не LOCKED, репозиторий вернет domain.ErrRecordNotFound.
type SettleEscrow struct {
	OrderID int64
	At      time.Time
	By      string
	Reason  *string
}
