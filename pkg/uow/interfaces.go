package uow

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks
import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TX репозитории, работающие внутри одной транзакции Do.
type TX interface {
	Get(name RepositoryName) (Repository, error)
}

// DBTX то, на чем работают pg репозитории: пул вне транзакции или pgx.Tx внутри нее.
// Построчные блокировки (SELECT ... FOR UPDATE) действуют только внутри транзакции.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UOW единица работы: все изменения кошельков, эскроу, журнала и заказа внутри Do фиксируются
// или откатываются вместе.
type UOW interface {
	Register(name RepositoryName, factory RepositoryFactory) error
	Do(ctx context.Context, fn func(ctx context.Context, tx TX) error) error
	GetRepository(name RepositoryName) (Repository, error)
}
