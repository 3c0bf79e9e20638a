package scheduler

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/service"
)

// ReminderServicer лестница напоминаний.
type ReminderServicer interface {
	ReminderCandidates(
		ctx context.Context,
		step domain.ReminderStep,
		after domain.OrderCursor,
		limit uint,
	) ([]domain.Order, error)
	AdvanceReminder(ctx context.Context, orderID int64, step domain.ReminderStep) (bool, error)
}

// ReleaseServicer принудительная выплата по истечении срока.
type ReleaseServicer interface {
	AutoReleaseCandidates(ctx context.Context, after domain.OrderCursor, limit uint) ([]domain.Order, error)
	AutoRelease(ctx context.Context, orderID int64) (*service.ReleaseResult, error)
}

// Locker блокировка задачи между процессами. ok=false - задачу сейчас выполняет другой процесс.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context), ok bool, err error)
}
