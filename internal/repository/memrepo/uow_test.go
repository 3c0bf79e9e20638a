package memrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/escrow-ledger/pkg/uow"
	"github.com/stretchr/testify/suite"
)

type UnitOfWorkTestSuite struct {
	suite.Suite
	store *Store
	uow   *UnitOfWork
}

func TestUnitOfWorkSuite(t *testing.T) {
	suite.Run(t, new(UnitOfWorkTestSuite))
}

func (s *UnitOfWorkTestSuite) SetupTest() {
	s.store = NewStore()
	s.uow = NewUnitOfWork(s.store)
}

func (s *UnitOfWorkTestSuite) wallets() *WalletRepository {
	repo, err := uow.GetRepositoryAs[*WalletRepository](s.uow, uow.RepositoryName(repoargs.WalletRepoName))
	s.Require().NoError(err)
	return repo
}

func (s *UnitOfWorkTestSuite) TestRollbackRestoresState() {
	ctx := context.Background()
	wallet, err := s.wallets().Create(ctx, 1)
	s.Require().NoError(err)

	errBoom := errors.New("boom")
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		repo, repoErr := uow.GetAs[*WalletRepository](tx, uow.RepositoryName(repoargs.WalletRepoName))
		s.Require().NoError(repoErr)
		_, creditErr := repo.Credit(c, wallet.ID, 500)
		s.Require().NoError(creditErr)

		trans, transErr := uow.GetAs[*TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
		s.Require().NoError(transErr)
		_, createErr := trans.Create(c, repoargs.CreateTransaction{
			WalletID: wallet.ID, Amount: 500, Type: domain.TransactionDeposit,
		})
		s.Require().NoError(createErr)
		return errBoom
	})
	s.Require().ErrorIs(txErr, errBoom)

	after, err := s.wallets().FindByUserID(ctx, 1)
	s.Require().NoError(err)
	s.Equal(int64(0), after.Balance)

	transRepo, err := uow.GetRepositoryAs[*TransactionRepository](s.uow, uow.RepositoryName(repoargs.TransactionRepoName))
	s.Require().NoError(err)
	list, err := transRepo.GetByWalletID(ctx, wallet.ID)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *UnitOfWorkTestSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.uow.Do(ctx, func(context.Context, uow.TX) error { return nil })
	s.Require().True(uow.IsTxError(err))
}

func (s *UnitOfWorkTestSuite) TestDebitInsufficientFunds() {
	ctx := context.Background()
	wallet, err := s.wallets().Create(ctx, 7)
	s.Require().NoError(err)

	_, err = s.wallets().Debit(ctx, wallet.ID, 1)
	s.Require().ErrorIs(err, domain.ErrInsufficientFunds)

	_, err = s.wallets().Debit(ctx, wallet.ID+100, 1)
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *UnitOfWorkTestSuite) TestSettleOnlyFromLocked() {
	ctx := context.Background()
	s.store.orders[1] = domain.Order{ID: 1, Status: domain.OrderStatusFunded}

	repo, err := uow.GetRepositoryAs[*EscrowRepository](s.uow, uow.RepositoryName(repoargs.EscrowRepoName))
	s.Require().NoError(err)
	_, err = repo.Create(ctx, repoargs.CreateEscrow{
		OrderID: 1, Amount: 100, CommissionAmount: 5, ArtisanPayout: 95, LockedAt: time.Now(),
	})
	s.Require().NoError(err)

	_, err = repo.Create(ctx, repoargs.CreateEscrow{OrderID: 1, Amount: 100, ArtisanPayout: 100})
	s.Require().ErrorIs(err, domain.ErrDuplicateKey)

	released, err := repo.MarkReleased(ctx, repoargs.SettleEscrow{OrderID: 1, At: time.Now(), By: "CLIENT"})
	s.Require().NoError(err)
	s.Equal(domain.EscrowStatusReleased, released.Status)
	s.NotNil(released.ReleasedAt)
	s.Nil(released.RefundedAt)

	_, err = repo.MarkRefunded(ctx, repoargs.SettleEscrow{OrderID: 1, At: time.Now(), By: "ADMIN"})
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *UnitOfWorkTestSuite) TestRegister() {
	s.Require().ErrorIs(
		s.uow.Register(uow.RepositoryName(repoargs.OrderRepoName), func(uow.DBTX) uow.Repository { return nil }),
		uow.ErrRepositoryAlreadyRegistered,
	)
	s.Require().NoError(s.uow.Register("custom", func(uow.DBTX) uow.Repository { return "custom-repo" }))
	repo, err := s.uow.GetRepository("custom")
	s.Require().NoError(err)
	s.Equal("custom-repo", repo)
}

// TestAutoReleasePagesByCursor выдача идет по (delivered_at, id) и продолжается после курсора.
func (s *UnitOfWorkTestSuite) TestAutoReleasePagesByCursor() {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	delivered := []time.Time{base.Add(2 * time.Hour), base, base, base.Add(time.Hour)}
	for i, at := range delivered {
		s.store.orders[int64(i+1)] = domain.Order{ID: int64(i + 1), Status: domain.OrderStatusDelivered, DeliveredAt: &at}
	}

	repo, err := uow.GetRepositoryAs[*OrderRepository](s.uow, uow.RepositoryName(repoargs.OrderRepoName))
	s.Require().NoError(err)

	args := repoargs.AutoReleaseCandidates{DeliveredBefore: base.Add(24 * time.Hour), Limit: 2}
	first, err := repo.GetForAutoRelease(ctx, args)
	s.Require().NoError(err)
	s.Equal([]int64{2, 3}, orderIDs(first))

	args.After = domain.CursorAt(first[len(first)-1])
	second, err := repo.GetForAutoRelease(ctx, args)
	s.Require().NoError(err)
	s.Equal([]int64{4, 1}, orderIDs(second))

	args.After = domain.CursorAt(second[len(second)-1])
	rest, err := repo.GetForAutoRelease(ctx, args)
	s.Require().NoError(err)
	s.Empty(rest)

	reminders, err := repo.GetReminderCandidates(ctx, repoargs.ReminderCandidates{
		Step:            domain.Reminder1,
		From:            domain.OrderStatusDelivered,
		DeliveredBefore: base.Add(24 * time.Hour),
		After:           domain.CursorAt(first[0]),
		Limit:           10,
	})
	s.Require().NoError(err)
	s.Equal([]int64{3, 4, 1}, orderIDs(reminders))
}

func orderIDs(orders []domain.Order) []int64 {
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}
