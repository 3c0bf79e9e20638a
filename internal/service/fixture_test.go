package service

import (
	"context"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/memrepo"
	"github.com/stretchr/testify/suite"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingNotifier запоминает отправленные уведомления.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) kinds(userID int64) []domain.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []domain.NotificationKind
	for _, n := range r.sent {
		if n.UserID == userID {
			res = append(res, n.Kind)
		}
	}
	return res
}

type plainHasher struct{}

func (plainHasher) HashPassword(p string) (string, error) { return "hashed:" + p, nil }
func (plainHasher) ComparePassword(p, h string) bool      { return "hashed:"+p == h }

// ledgerSuite общий каркас сценарных тестов на хранилище в памяти.
type ledgerSuite struct {
	suite.Suite
	ctx      context.Context
	clock    *fakeClock
	notifier *recordingNotifier
	uow      *memrepo.UnitOfWork
	svs      *AppServices

	client, artisan, platform, admin *domain.User
	listing                          *domain.Listing
}

func (s *ledgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = newFakeClock()
	s.notifier = new(recordingNotifier)
	s.uow = memrepo.NewUnitOfWork(memrepo.NewStore().WithClock(s.clock.Now))

	users, err := NewUserService(s.uow, plainHasher{}, []byte("secret"))
	s.Require().NoError(err)

	s.client = s.register(users, domain.RoleClient)
	s.artisan = s.register(users, domain.RoleArtisan)
	s.platform = s.register(users, domain.RoleClient)
	s.admin, err = users.EnsureAdmin(s.ctx, gofakeit.Phone(), "admin")
	s.Require().NoError(err)

	s.svs, err = Factory(s.uow, []byte("secret"), Options{
		CommissionUserID: s.platform.ID,
		Now:              s.clock.Now,
		Notifier:         s.notifier,
	})
	s.Require().NoError(err)

	s.listing, err = s.svs.ListingService.Create(s.ctx, CreateListingArgs{
		PartnerID:   s.artisan.ID,
		Title:       gofakeit.JobTitle(),
		Description: gofakeit.Phrase(),
		Price:       10000,
		PriceUnit:   "job",
		Category:    "plumbing",
	})
	s.Require().NoError(err)
}

func (s *ledgerSuite) register(users *UserService, role domain.UserRole) *domain.User {
	user, _, err := users.Register(s.ctx, RegisterUserArgs{
		Phone:    gofakeit.Phone(),
		Password: gofakeit.Password(true, true, true, false, false, 12),
		FullName: gofakeit.Name(),
		Role:     role,
	})
	s.Require().NoError(err)
	return user
}

func (s *ledgerSuite) actor(u *domain.User) domain.Actor {
	return domain.Actor{UserID: u.ID, Role: u.Role}
}

func (s *ledgerSuite) balance(u *domain.User) int64 {
	w, err := s.svs.WalletService.GetWallet(s.ctx, u.ID)
	s.Require().NoError(err)
	return w.Balance
}

// acceptedOrder заказ в статусе ACCEPTED, клиент пополнил кошелек на deposit.
func (s *ledgerSuite) acceptedOrder(deposit int64) *domain.Order {
	if deposit > 0 {
		_, err := s.svs.WalletService.Deposit(s.ctx, s.client.ID, deposit)
		s.Require().NoError(err)
	}
	order, err := s.svs.OrderService.Create(s.ctx, CreateOrderArgs{ClientID: s.client.ID, ListingID: s.listing.ID})
	s.Require().NoError(err)
	order, err = s.svs.OrderService.Accept(s.ctx, order.ID, s.actor(s.artisan))
	s.Require().NoError(err)
	return order
}

// deliveredOrder заказ, сданный исполнителем в текущий момент часов.
func (s *ledgerSuite) deliveredOrder() *domain.Order {
	order := s.acceptedOrder(10000)
	_, err := s.svs.EscrowService.LockFunds(s.ctx, order.ID, s.actor(s.client))
	s.Require().NoError(err)
	order, err = s.svs.OrderService.DeclareFinished(s.ctx, order.ID, s.actor(s.artisan))
	s.Require().NoError(err)
	return order
}

// assertLedgerInvariants баланс каждого кошелька равен сумме его журнала.
func (s *ledgerSuite) assertLedgerInvariants() {
	for _, u := range []*domain.User{s.client, s.artisan, s.platform, s.admin} {
		balance, sum, err := s.svs.WalletService.Reconcile(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equalf(balance, sum, "wallet of user %d diverged from its ledger", u.ID)
		s.GreaterOrEqual(balance, int64(0))
	}
}

func (s *ledgerSuite) assertEscrowInvariants(e *domain.EscrowAccount) {
	s.Equal(e.Amount, e.CommissionAmount+e.ArtisanPayout)
	switch e.Status {
	case domain.EscrowStatusLocked:
		s.Nil(e.ReleasedAt)
		s.Nil(e.RefundedAt)
	case domain.EscrowStatusReleased:
		s.NotNil(e.ReleasedAt)
		s.Nil(e.RefundedAt)
	case domain.EscrowStatusRefunded:
		s.Nil(e.ReleasedAt)
		s.NotNil(e.RefundedAt)
	}
}
