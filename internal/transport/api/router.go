package api

import (
	"fmt"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/metrics"
	"github.com/fsdevblog/escrow-ledger/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	DefaultServiceTimeout = 3 * time.Second
)

const (
	MetricsRoute = "/metrics"

	RouteGroup              = "/api"
	RegisterRoute           = "/user/register"
	LoginRoute              = "/user/login"
	ListingsRoute           = "/listings"
	ListingRoute            = "/listings/:id"
	OrdersRoute             = "/orders"
	OrderRoute              = "/orders/:id"
	OrderAcceptRoute        = "/orders/:id/accept"
	OrderLockRoute          = "/orders/:id/lock"
	OrderStartRoute         = "/orders/:id/start"
	OrderDeliverRoute       = "/orders/:id/deliver"
	OrderReleaseRoute       = "/orders/:id/release"
	OrderDisputeRoute       = "/orders/:id/dispute"
	OrderCancelRoute        = "/orders/:id/cancel"
	OrderRefundRoute        = "/orders/:id/refund"
	EscrowsRoute            = "/escrows"
	WalletRoute             = "/wallet"
	WalletDepositRoute      = "/wallet/deposit"
	WalletWithdrawRoute     = "/wallet/withdraw"
	WalletTransactionsRoute = "/wallet/transactions"
)

type RouterArgs struct {
	Logger         *logrus.Logger
	UserService    UserServicer
	ListingService ListingServicer
	OrderService   OrderServicer
	EscrowService  EscrowServicer
	WalletService  WalletServicer
	JWTSecretKey   []byte
}

func New(args RouterArgs) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, fmt.Errorf("new router: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(metrics.Middleware())
	r.Use(middlewares.Errors())

	r.GET(MetricsRoute, metrics.Handler())

	authHandler := NewAuthHandler(args.UserService)
	listingsHandler := NewListingsHandler(args.ListingService)
	ordersHandler := NewOrdersHandler(args.OrderService, args.EscrowService)
	escrowsHandler := NewEscrowsHandler(args.EscrowService)
	walletHandler := NewWalletHandler(args.WalletService)

	api := r.Group(RouteGroup)

	api.POST(RegisterRoute, middlewares.NonAuthRequired(args.JWTSecretKey), authHandler.Register)
	api.POST(LoginRoute, middlewares.NonAuthRequired(args.JWTSecretKey), authHandler.Login)

	api.GET(ListingsRoute, listingsHandler.Index)
	api.GET(ListingRoute, listingsHandler.Show)

	api.Use(middlewares.AuthRequired(args.JWTSecretKey))
	// ниже все роуты группы требуют авторизованного пользователя.
	api.POST(ListingsRoute, listingsHandler.Create)

	api.POST(OrdersRoute, ordersHandler.Create)
	api.GET(OrdersRoute, ordersHandler.Index)
	api.GET(OrderRoute, ordersHandler.Show)
	api.POST(OrderAcceptRoute, ordersHandler.Accept)
	api.POST(OrderLockRoute, ordersHandler.Lock)
	api.POST(OrderStartRoute, ordersHandler.Start)
	api.POST(OrderDeliverRoute, ordersHandler.Deliver)
	api.POST(OrderReleaseRoute, ordersHandler.Release)
	api.POST(OrderDisputeRoute, ordersHandler.Dispute)
	api.POST(OrderCancelRoute, ordersHandler.Cancel)
	api.POST(OrderRefundRoute, ordersHandler.Refund)

	api.GET(EscrowsRoute, escrowsHandler.Index)

	api.GET(WalletRoute, walletHandler.Index)
	api.POST(WalletDepositRoute, walletHandler.Deposit)
	api.POST(WalletWithdrawRoute, walletHandler.Withdraw)
	api.GET(WalletTransactionsRoute, walletHandler.Transactions)
	return r, nil
}
