package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/cache"
	"github.com/fsdevblog/escrow-ledger/internal/config"
	"github.com/fsdevblog/escrow-ledger/internal/metrics"
	"github.com/fsdevblog/escrow-ledger/internal/repository/memrepo"
	"github.com/fsdevblog/escrow-ledger/internal/repository/pgrepo"
	"github.com/fsdevblog/escrow-ledger/internal/scheduler"
	"github.com/fsdevblog/escrow-ledger/internal/service"
	"github.com/fsdevblog/escrow-ledger/internal/transport/api"
	"github.com/fsdevblog/escrow-ledger/internal/transport/enrichment"
	"github.com/fsdevblog/escrow-ledger/internal/transport/notify"
	"github.com/fsdevblog/escrow-ledger/pkg/uow"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	poolStatsInterval = 15 * time.Second
	shutdownTimeout   = 10 * time.Second
	schedulerLockTTL  = 10 * time.Minute
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.WithFields(logrus.Fields{
		"runAddress":       a.Config.RunAddress,
		"inMemoryStore":    a.Config.UseInMemoryStore(),
		"redis":            a.Config.RedisURL != "",
		"enrichment":       a.Config.EnrichmentAddress != "",
		"commissionRate":   a.Config.CommissionRate,
		"reminderEvery":    a.Config.ReminderInterval,
		"autoReleaseEvery": a.Config.AutoReleaseInterval,
	}).Info("Starting app")

	unitOfWork, pool, storeErr := a.initStore(notifyCtx)
	if storeErr != nil {
		return fmt.Errorf("app run: %s", storeErr.Error())
	}
	if pool != nil {
		defer pool.Close()
	}

	var redisClient *redis.Client
	if a.Config.RedisURL != "" {
		var redisErr error
		if redisClient, redisErr = cache.Connect(notifyCtx, a.Config.RedisURL); redisErr != nil {
			return fmt.Errorf("app run: %s", redisErr.Error())
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				a.Logger.WithError(err).Warn("closing redis client")
			}
		}()
	}

	sinks := []notify.Sink{notify.NewLogSink(a.Logger)}
	if redisClient != nil {
		sinks = append(sinks, notify.NewRedisSink(redisClient, notify.DefaultChannel))
	}
	dispatcher := notify.NewDispatcher(a.Logger, notify.DefaultQueueSize, sinks...)

	opts := service.Options{
		CommissionRate:   a.Config.Commission(),
		CommissionUserID: a.Config.CommissionUserID,
		PasswordCost:     a.Config.PasswordCost,
		Notifier:         dispatcher,
	}
	var enrichQueue *enrichment.Queue
	if a.Config.EnrichmentAddress != "" {
		enrichQueue = enrichment.New(a.Config.EnrichmentAddress, enrichment.DefaultQueueSize, a.Logger)
		opts.Enrichment = enrichQueue
	}

	services, sErr := service.Factory(unitOfWork, []byte(a.Config.JWTUserSecret), opts)
	if sErr != nil {
		return fmt.Errorf("app run: %s", sErr.Error())
	}

	if a.Config.AdminPhone != "" {
		if _, adminErr := services.UserService.EnsureAdmin(
			notifyCtx, a.Config.AdminPhone, a.Config.AdminPassword,
		); adminErr != nil {
			return fmt.Errorf("app run: %s", adminErr.Error())
		}
	}

	router, rErr := api.New(api.RouterArgs{
		Logger:         a.Logger,
		UserService:    services.UserService,
		ListingService: services.ListingService,
		OrderService:   services.OrderService,
		EscrowService:  services.EscrowService,
		WalletService:  services.WalletService,
		JWTSecretKey:   []byte(a.Config.JWTUserSecret),
	})
	if rErr != nil {
		return fmt.Errorf("app run: %s", rErr.Error())
	}

	// фоновые воркеры живут до отмены notifyCtx.
	wg := new(sync.WaitGroup)
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(notifyCtx)
	}()
	if enrichQueue != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			enrichQueue.Run(notifyCtx, services.OrderService)
		}()
	}
	if pool != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metrics.StartPoolStatsCollector(notifyCtx, pool, poolStatsInterval)
		}()
	}

	sched := scheduler.New(services.OrderService, services.EscrowService, a.Logger).
		SetReminderInterval(a.Config.ReminderInterval).
		SetAutoReleaseInterval(a.Config.AutoReleaseInterval).
		SetBatchSize(a.Config.SweepBatchSize)
	if redisClient != nil {
		sched.SetLocker(cache.NewRedisLocker(redisClient, a.Logger), schedulerLockTTL)
	}
	if err := sched.Start(notifyCtx); err != nil {
		return fmt.Errorf("app run: %s", err.Error())
	}

	srv := &http.Server{
		Addr:              a.Config.RunAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,  //nolint:mnd
		ReadTimeout:       10 * time.Second, //nolint:mnd
		WriteTimeout:      30 * time.Second, //nolint:mnd
	}

	errChan := make(chan error, 1)
	go func() {
		if runErr := srv.ListenAndServe(); runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			errChan <- runErr
		}
	}()

	var runErr error
	select {
	case <-notifyCtx.Done():
		runErr = notifyCtx.Err()
	case err := <-errChan:
		runErr = err
		stop()
	}

	a.shutdown(srv, sched)
	wg.Wait()
	return runErr
}

// shutdown останавливает прием запросов и планировщик. Начатые выплаты доводятся до конца.
func (a *App) shutdown(srv *http.Server, sched *scheduler.Scheduler) {
	a.Logger.Info("starting graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.Logger.WithError(err).Error("http server shutdown")
	}

	sched.Stop()
	a.Logger.Info("scheduler stopped")
}

// initStore postgres, если задан DSN, иначе хранилище в памяти. Пул возвращается только для postgres.
func (a *App) initStore(ctx context.Context) (uow.UOW, *pgxpool.Pool, error) {
	if a.Config.UseInMemoryStore() {
		a.Logger.Warn("DATABASE_URI is not set, using in-memory store")
		return memrepo.NewUnitOfWork(memrepo.NewStore()), nil, nil
	}

	conn, connErr := pgrepo.Connect(ctx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return nil, nil, fmt.Errorf("init store: %w", connErr)
	}

	unitOfWork := uow.NewUnitOfWork(conn)
	if regErr := pgrepo.RegisterRepositories(unitOfWork); regErr != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("init store: %w", regErr)
	}
	return unitOfWork, conn, nil
}
