package service

import (
	"context"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePassword(password string, hashedPassword string) bool
}

type UserRepository interface {
	CreateUser(ctx context.Context, args repoargs.CreateUser) (*domain.User, error)
	FindUserByPhone(ctx context.Context, phone string) (*domain.User, error)
	FindUserByID(ctx context.Context, id int64) (*domain.User, error)
}

type ListingRepository interface {
	Create(ctx context.Context, args repoargs.CreateListing) (*domain.Listing, error)
	FindByID(ctx context.Context, id int64) (*domain.Listing, error)
	ListAvailable(ctx context.Context, limit uint) ([]domain.Listing, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, args repoargs.CreateOrder) (*domain.Order, error)
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.Order, error)
	GetByUserID(ctx context.Context, userID int64) ([]domain.Order, error)
	UpdateState(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetReminderCandidates(ctx context.Context, args repoargs.ReminderCandidates) ([]domain.Order, error)
	GetForAutoRelease(ctx context.Context, args repoargs.AutoReleaseCandidates) ([]domain.Order, error)
	UpdateEnrichment(ctx context.Context, args repoargs.OrderEnrichment) error
}

type EscrowRepository interface {
	Create(ctx context.Context, args repoargs.CreateEscrow) (*domain.EscrowAccount, error)
	FindByOrderID(ctx context.Context, orderID int64) (*domain.EscrowAccount, error)
	FindByOrderIDForUpdate(ctx context.Context, orderID int64) (*domain.EscrowAccount, error)
	MarkReleased(ctx context.Context, args repoargs.SettleEscrow) (*domain.EscrowAccount, error)
	MarkRefunded(ctx context.Context, args repoargs.SettleEscrow) (*domain.EscrowAccount, error)
	GetByUserID(ctx context.Context, userID int64) ([]domain.EscrowAccount, error)
}

type WalletRepository interface {
	Create(ctx context.Context, userID int64) (*domain.Wallet, error)
	FindByUserID(ctx context.Context, userID int64) (*domain.Wallet, error)
	Debit(ctx context.Context, walletID int64, amount int64) (*domain.Wallet, error)
	Credit(ctx context.Context, walletID int64, amount int64) (*domain.Wallet, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, args repoargs.CreateTransaction) (*domain.Transaction, error)
	GetByWalletID(ctx context.Context, walletID int64) ([]domain.Transaction, error)
	GetByOrderID(ctx context.Context, orderID int64) ([]domain.Transaction, error)
	SumByWalletID(ctx context.Context, walletID int64) (int64, error)
}

// Notifier шлюз уведомлений. Вызывается только после коммита, результат не влияет на операцию.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// EnrichmentQueue принимает id заказа для обогащения после коммита. Не блокирует.
type EnrichmentQueue interface {
	Enqueue(orderID int64) bool
}
