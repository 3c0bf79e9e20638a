package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/service"
)

type UserServicer interface {
	Register(ctx context.Context, args service.RegisterUserArgs) (*domain.User, string, error)
	Login(ctx context.Context, phone, password string) (*domain.User, string, error)
}

type ListingServicer interface {
	Create(ctx context.Context, args service.CreateListingArgs) (*domain.Listing, error)
	GetByID(ctx context.Context, id int64) (*domain.Listing, error)
	ListAvailable(ctx context.Context) ([]domain.Listing, error)
}

type OrderServicer interface {
	Create(ctx context.Context, args service.CreateOrderArgs) (*domain.Order, error)
	Accept(ctx context.Context, orderID int64, actor domain.Actor) (*domain.Order, error)
	StartWork(ctx context.Context, orderID int64, actor domain.Actor) (*domain.Order, error)
	DeclareFinished(ctx context.Context, orderID int64, actor domain.Actor) (*domain.Order, error)
	Dispute(ctx context.Context, orderID int64, actor domain.Actor, reason string) (*domain.Order, error)
	Cancel(ctx context.Context, orderID int64, actor domain.Actor, reason string) (*domain.Order, error)
	GetByID(ctx context.Context, orderID int64, actor domain.Actor) (*service.OrderDetails, error)
	GetByUserID(ctx context.Context, userID int64) ([]domain.Order, error)
}

type EscrowServicer interface {
	LockFunds(ctx context.Context, orderID int64, payer domain.Actor) (*domain.EscrowAccount, error)
	Release(ctx context.Context, orderID int64, client domain.Actor) (*service.ReleaseResult, error)
	Refund(ctx context.Context, orderID int64, reason string, admin domain.Actor) (*domain.EscrowAccount, error)
	GetByUserID(ctx context.Context, userID int64) ([]service.EscrowView, error)
}

type WalletServicer interface {
	Deposit(ctx context.Context, userID int64, amount int64) (*domain.Wallet, error)
	Withdraw(ctx context.Context, userID int64, amount int64) (*domain.Wallet, error)
	GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error)
	History(ctx context.Context, userID int64) ([]domain.Transaction, error)
}
