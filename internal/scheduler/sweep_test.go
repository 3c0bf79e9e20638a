package scheduler

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/memrepo"
	"github.com/fsdevblog/escrow-ledger/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type collectingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *collectingNotifier) Notify(_ context.Context, msg domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *collectingNotifier) count(kind domain.NotificationKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	var c int
	for _, msg := range n.sent {
		if msg.Kind == kind {
			c++
		}
	}
	return c
}

// SweepTestSuite проходы планировщика поверх настоящих сервисов и хранилища в памяти.
type SweepTestSuite struct {
	suite.Suite
	clock     *clock
	notifier  *collectingNotifier
	svs       *service.AppServices
	scheduler *Scheduler
	logger    *logrus.Logger

	client, artisan domain.Actor
	listingID       int64
}

func TestSweepSuite(t *testing.T) {
	suite.Run(t, new(SweepTestSuite))
}

func (s *SweepTestSuite) SetupTest() {
	ctx := s.T().Context()
	s.clock = &clock{t: time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)}
	s.notifier = new(collectingNotifier)
	u := memrepo.NewUnitOfWork(memrepo.NewStore().WithClock(s.clock.Now))

	var err error
	s.svs, err = service.Factory(u, []byte("secret"), service.Options{Now: s.clock.Now, Notifier: s.notifier})
	s.Require().NoError(err)

	users := s.svs.UserService
	client, _, err := users.Register(ctx, service.RegisterUserArgs{Phone: gofakeit.Phone(), Password: "p"})
	s.Require().NoError(err)
	artisan, _, err := users.Register(ctx, service.RegisterUserArgs{
		Phone:    gofakeit.Phone() + "7",
		Password: "p",
		Role:     domain.RoleArtisan,
	})
	s.Require().NoError(err)
	s.client = domain.Actor{UserID: client.ID, Role: client.Role}
	s.artisan = domain.Actor{UserID: artisan.ID, Role: artisan.Role}

	listing, err := s.svs.ListingService.Create(ctx, service.CreateListingArgs{
		PartnerID: artisan.ID,
		Title:     gofakeit.JobTitle(),
		Price:     10000,
	})
	s.Require().NoError(err)
	s.listingID = listing.ID

	s.logger = logrus.New()
	s.logger.SetOutput(io.Discard)
	s.scheduler = New(s.svs.OrderService, s.svs.EscrowService, s.logger)
}

func (s *SweepTestSuite) deliveredOrder() int64 {
	ctx := s.T().Context()
	_, err := s.svs.WalletService.Deposit(ctx, s.client.UserID, 10000)
	s.Require().NoError(err)
	order, err := s.svs.OrderService.Create(ctx, service.CreateOrderArgs{ClientID: s.client.UserID, ListingID: s.listingID})
	s.Require().NoError(err)
	_, err = s.svs.OrderService.Accept(ctx, order.ID, s.artisan)
	s.Require().NoError(err)
	_, err = s.svs.EscrowService.LockFunds(ctx, order.ID, s.client)
	s.Require().NoError(err)
	_, err = s.svs.OrderService.DeclareFinished(ctx, order.ID, s.artisan)
	s.Require().NoError(err)
	return order.ID
}

func (s *SweepTestSuite) order(id int64) *domain.Order {
	details, err := s.svs.OrderService.GetByID(s.T().Context(), id, s.client)
	s.Require().NoError(err)
	return details.Order
}

// TestReminderSweepIsIdempotent повторный проход не отправляет напоминание повторно.
func (s *SweepTestSuite) TestReminderSweepIsIdempotent() {
	id := s.deliveredOrder()

	s.clock.Advance(25 * time.Hour)
	report, err := s.scheduler.RunReminders(s.T().Context())
	s.Require().NoError(err)
	s.Equal(1, report.Succeeded)

	order := s.order(id)
	s.Equal(domain.OrderStatusReminder1, order.Status)
	s.Require().NotNil(order.Reminder1SentAt)
	sentAt := *order.Reminder1SentAt

	s.clock.Advance(time.Hour)
	report, err = s.scheduler.RunReminders(s.T().Context())
	s.Require().NoError(err)
	s.Zero(report.Processed)

	order = s.order(id)
	s.Equal(domain.OrderStatusReminder1, order.Status)
	s.Equal(sentAt, *order.Reminder1SentAt)
	s.Nil(order.Reminder2SentAt)
	s.Equal(1, s.notifier.count(domain.NotifyReminder1))
}

// TestReminderSweepCatchesUp заказ, пропустивший несколько сроков, проходит лестницу по порядку.
func (s *SweepTestSuite) TestReminderSweepCatchesUp() {
	id := s.deliveredOrder()

	s.clock.Advance(47*time.Hour + 30*time.Minute)
	report, err := s.scheduler.RunReminders(s.T().Context())
	s.Require().NoError(err)
	s.Equal(3, report.Succeeded)

	order := s.order(id)
	s.Equal(domain.OrderStatusReminderFinal, order.Status)
	s.Equal(1, s.notifier.count(domain.NotifyReminderFinal))
}

// TestAutoReleaseSweep выплата по сроку, затем ручное подтверждение получает конфликт.
func (s *SweepTestSuite) TestAutoReleaseSweep() {
	due := s.deliveredOrder()
	s.clock.Advance(10 * time.Hour)
	notDue := s.deliveredOrder()

	s.clock.Advance(39 * time.Hour)
	report, err := s.scheduler.RunAutoRelease(s.T().Context())
	s.Require().NoError(err)
	s.Equal(1, report.Succeeded)

	order := s.order(due)
	s.Equal(domain.OrderStatusCompleted, order.Status)
	s.Equal(domain.OrderStatusDelivered, s.order(notDue).Status)

	escrows, err := s.svs.EscrowService.GetByUserID(s.T().Context(), s.client.UserID)
	s.Require().NoError(err)
	for _, e := range escrows {
		if e.OrderID == due {
			s.Equal(domain.EscrowStatusReleased, e.Status)
			s.Equal(string(domain.TriggerAutoRelease), *e.ReleasedBy)
		}
	}

	s.clock.Advance(time.Hour)
	_, err = s.svs.EscrowService.Release(s.T().Context(), due, s.client)
	s.Require().ErrorIs(err, domain.ErrStateConflict)

	wallet, err := s.svs.WalletService.GetWallet(s.T().Context(), s.artisan.UserID)
	s.Require().NoError(err)
	s.Equal(int64(9500), wallet.Balance)
}

// TestConcurrentSweepsAndManualRelease одновременные проходы и ручные подтверждения выплачивают каждый
// заказ ровно один раз.
func (s *SweepTestSuite) TestConcurrentSweepsAndManualRelease() {
	const n = 10
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = s.deliveredOrder()
	}
	s.clock.Advance(49 * time.Hour)

	second := New(s.svs.OrderService, s.svs.EscrowService, s.logger)
	var wg sync.WaitGroup
	for _, sch := range []*Scheduler{s.scheduler, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = sch.RunAutoRelease(s.T().Context())
		}()
	}
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.svs.EscrowService.Release(s.T().Context(), id, s.client)
		}()
	}
	wg.Wait()

	wallet, err := s.svs.WalletService.GetWallet(s.T().Context(), s.artisan.UserID)
	s.Require().NoError(err)
	s.Equal(int64(n*9500), wallet.Balance)

	balance, sum, err := s.svs.WalletService.Reconcile(s.T().Context(), s.artisan.UserID)
	s.Require().NoError(err)
	s.Equal(balance, sum)
	for _, id := range ids {
		s.Equal(domain.OrderStatusCompleted, s.order(id).Status)
	}
}
