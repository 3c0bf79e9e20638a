package service

import (
	"sync"
	"testing"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/stretchr/testify/suite"
)

type EscrowScenarioTestSuite struct {
	ledgerSuite
}

func TestEscrowScenarioSuite(t *testing.T) {
	suite.Run(t, new(EscrowScenarioTestSuite))
}

func (s *EscrowScenarioTestSuite) TestLockAndReleaseSplitsCommission() {
	order := s.acceptedOrder(10000)

	escrow, err := s.svs.EscrowService.LockFunds(s.ctx, order.ID, s.actor(s.client))
	s.Require().NoError(err)
	s.Equal(int64(10000), escrow.Amount)
	s.Equal(int64(500), escrow.CommissionAmount)
	s.Equal(int64(9500), escrow.ArtisanPayout)
	s.Equal(domain.EscrowStatusLocked, escrow.Status)
	s.Equal(int64(0), s.balance(s.client))

	_, err = s.svs.OrderService.DeclareFinished(s.ctx, order.ID, s.actor(s.artisan))
	s.Require().NoError(err)

	res, err := s.svs.EscrowService.Release(s.ctx, order.ID, s.actor(s.client))
	s.Require().NoError(err)
	s.Equal(int64(9500), res.Payout)
	s.Equal(int64(500), res.Commission)
	s.Equal(string(domain.TriggerClient), *res.Escrow.ReleasedBy)
	s.assertEscrowInvariants(res.Escrow)

	s.Equal(int64(9500), s.balance(s.artisan))
	s.Equal(int64(500), s.balance(s.platform))

	details, err := s.svs.OrderService.GetByID(s.ctx, order.ID, s.actor(s.client))
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusCompleted, details.Order.Status)
	s.NotNil(details.Order.CompletedAt)
	s.Equal(int64(0), details.Escrow.TimeLockedMinutes)

	s.Contains(s.notifier.kinds(s.artisan.ID), domain.NotifyFundsReleased)
	s.assertLedgerInvariants()
}

func (s *EscrowScenarioTestSuite) TestLockWithoutEnoughFunds() {
	order := s.acceptedOrder(5000)

	_, err := s.svs.EscrowService.LockFunds(s.ctx, order.ID, s.actor(s.client))
	s.Require().ErrorIs(err, domain.ErrInsufficientFunds)

	s.Equal(int64(5000), s.balance(s.client))
	details, err := s.svs.OrderService.GetByID(s.ctx, order.ID, s.actor(s.client))
	s.Require().NoError(err)
	s.Nil(details.Escrow)
	s.Equal(domain.OrderStatusAccepted, details.Order.Status)
	s.Nil(details.Order.FundedAt)

	history, err := s.svs.WalletService.History(s.ctx, s.client.ID)
	s.Require().NoError(err)
	s.Len(history, 1)
	s.Equal(domain.TransactionDeposit, history[0].Type)
	s.assertLedgerInvariants()
}

func (s *EscrowScenarioTestSuite) TestLockIsIdempotent() {
	order := s.acceptedOrder(20000)

	first, err := s.svs.EscrowService.LockFunds(s.ctx, order.ID, s.actor(s.client))
	s.Require().NoError(err)
	second, err := s.svs.EscrowService.LockFunds(s.ctx, order.ID, s.actor(s.client))
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal(int64(10000), s.balance(s.client))

	history, err := s.svs.WalletService.History(s.ctx, s.client.ID)
	s.Require().NoError(err)
	var locks int
	for _, t := range history {
		if t.Type == domain.TransactionEscrowLock {
			locks++
			s.Equal(int64(-10000), t.Amount)
			s.Equal("ORD-1-LOCK", t.Reference)
		}
	}
	s.Equal(1, locks)
	s.assertLedgerInvariants()
}

func (s *EscrowScenarioTestSuite) TestLockRejectsWrongPayerAndState() {
	order := s.acceptedOrder(10000)

	_, err := s.svs.EscrowService.LockFunds(s.ctx, order.ID, s.actor(s.artisan))
	s.Require().ErrorIs(err, domain.ErrUnauthorized)

	_, err = s.svs.EscrowService.LockFunds(s.ctx, order.ID, s.actor(s.platform))
	s.Require().ErrorIs(err, domain.ErrUnauthorized)

	pending, err := s.svs.OrderService.Create(s.ctx, CreateOrderArgs{ClientID: s.client.ID, ListingID: s.listing.ID})
	s.Require().NoError(err)
	_, err = s.svs.EscrowService.LockFunds(s.ctx, pending.ID, s.actor(s.client))
	s.Require().ErrorIs(err, domain.ErrStateConflict)

	_, err = s.svs.EscrowService.LockFunds(s.ctx, 9999, s.actor(s.client))
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)

	s.Equal(int64(10000), s.balance(s.client))
}

func (s *EscrowScenarioTestSuite) TestAutoReleaseThenManualReleaseConflicts() {
	order := s.deliveredOrder()

	s.clock.Advance(49 * time.Hour)
	candidates, err := s.svs.EscrowService.AutoReleaseCandidates(s.ctx, domain.OrderCursor{}, 10)
	s.Require().NoError(err)
	s.Require().Len(candidates, 1)
	s.Equal(order.ID, candidates[0].ID)

	res, err := s.svs.EscrowService.AutoRelease(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(string(domain.TriggerAutoRelease), *res.Escrow.ReleasedBy)

	s.clock.Advance(time.Hour)
	_, err = s.svs.EscrowService.Release(s.ctx, order.ID, s.actor(s.client))
	s.Require().ErrorIs(err, domain.ErrStateConflict)

	s.Equal(int64(9500), s.balance(s.artisan))
	s.assertLedgerInvariants()
}

func (s *EscrowScenarioTestSuite) TestAutoReleaseNotDue() {
	order := s.deliveredOrder()

	s.clock.Advance(47 * time.Hour)
	_, err := s.svs.EscrowService.AutoRelease(s.ctx, order.ID)
	s.Require().ErrorIs(err, domain.ErrStateConflict)
	s.Equal(int64(0), s.balance(s.artisan))

	candidates, err := s.svs.EscrowService.AutoReleaseCandidates(s.ctx, domain.OrderCursor{}, 10)
	s.Require().NoError(err)
	s.Empty(candidates)
}

func (s *EscrowScenarioTestSuite) TestConcurrentReleaseCreditsOnce() {
	const rounds = 20
	orders := make([]*domain.Order, rounds)
	for i := range orders {
		orders[i] = s.deliveredOrder()
	}
	s.clock.Advance(49 * time.Hour)

	var wg sync.WaitGroup
	manualErrs := make([]error, rounds)
	autoErrs := make([]error, rounds)
	for i, order := range orders {
		wg.Add(2) //nolint:mnd
		go func() {
			defer wg.Done()
			_, manualErrs[i] = s.svs.EscrowService.Release(s.ctx, order.ID, s.actor(s.client))
		}()
		go func() {
			defer wg.Done()
			_, autoErrs[i] = s.svs.EscrowService.AutoRelease(s.ctx, order.ID)
		}()
	}
	wg.Wait()

	for i := range orders {
		winners := 0
		for _, err := range []error{manualErrs[i], autoErrs[i]} {
			if err == nil {
				winners++
				continue
			}
			s.Require().ErrorIs(err, domain.ErrStateConflict)
		}
		s.Equal(1, winners, "order %d", orders[i].ID)
	}
	s.Equal(int64(rounds*9500), s.balance(s.artisan))
	s.Equal(int64(rounds*500), s.balance(s.platform))
	s.assertLedgerInvariants()
}

func (s *EscrowScenarioTestSuite) TestReleaseRequiresDelivery() {
	order := s.acceptedOrder(10000)
	_, err := s.svs.EscrowService.LockFunds(s.ctx, order.ID, s.actor(s.client))
	s.Require().NoError(err)

	_, err = s.svs.EscrowService.Release(s.ctx, order.ID, s.actor(s.client))
	s.Require().ErrorIs(err, domain.ErrStateConflict)

	_, err = s.svs.OrderService.DeclareFinished(s.ctx, order.ID, s.actor(s.artisan))
	s.Require().NoError(err)
	_, err = s.svs.EscrowService.Release(s.ctx, order.ID, s.actor(s.artisan))
	s.Require().ErrorIs(err, domain.ErrUnauthorized)
	s.Equal(int64(0), s.balance(s.artisan))
}

func (s *EscrowScenarioTestSuite) TestAdminRefund() {
	order := s.acceptedOrder(10000)
	_, err := s.svs.EscrowService.LockFunds(s.ctx, order.ID, s.actor(s.client))
	s.Require().NoError(err)

	_, err = s.svs.EscrowService.Refund(s.ctx, order.ID, "no show", s.actor(s.client))
	s.Require().ErrorIs(err, domain.ErrUnauthorized)

	escrow, err := s.svs.EscrowService.Refund(s.ctx, order.ID, "no show", s.actor(s.admin))
	s.Require().NoError(err)
	s.Equal(domain.EscrowStatusRefunded, escrow.Status)
	s.Equal("no show", *escrow.Reason)
	s.assertEscrowInvariants(escrow)
	s.Equal(int64(10000), s.balance(s.client))

	details, err := s.svs.OrderService.GetByID(s.ctx, order.ID, s.actor(s.admin))
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusCancelled, details.Order.Status)

	_, err = s.svs.EscrowService.Refund(s.ctx, order.ID, "again", s.actor(s.admin))
	s.Require().ErrorIs(err, domain.ErrStateConflict)
	s.Contains(s.notifier.kinds(s.client.ID), domain.NotifyFundsRefunded)
	s.assertLedgerInvariants()
}

func (s *EscrowScenarioTestSuite) TestDisputedOrderRefundKeepsStatus() {
	order := s.deliveredOrder()

	disputed, err := s.svs.OrderService.Dispute(s.ctx, order.ID, s.actor(s.client), "poor quality")
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusDisputed, disputed.Status)
	s.Equal("poor quality", *disputed.DisputeReason)

	s.clock.Advance(72 * time.Hour)
	candidates, err := s.svs.EscrowService.AutoReleaseCandidates(s.ctx, domain.OrderCursor{}, 10)
	s.Require().NoError(err)
	s.Empty(candidates)
	_, err = s.svs.EscrowService.AutoRelease(s.ctx, order.ID)
	s.Require().ErrorIs(err, domain.ErrStateConflict)

	escrow, err := s.svs.EscrowService.Refund(s.ctx, order.ID, "dispute settled", s.actor(s.admin))
	s.Require().NoError(err)
	s.Equal(domain.EscrowStatusRefunded, escrow.Status)

	details, err := s.svs.OrderService.GetByID(s.ctx, order.ID, s.actor(s.client))
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusDisputed, details.Order.Status)
	s.Equal(int64(10000), s.balance(s.client))
	s.assertLedgerInvariants()
}

func (s *EscrowScenarioTestSuite) TestEscrowViews() {
	order := s.acceptedOrder(10000)
	_, err := s.svs.EscrowService.LockFunds(s.ctx, order.ID, s.actor(s.client))
	s.Require().NoError(err)

	s.clock.Advance(90 * time.Minute)
	views, err := s.svs.EscrowService.GetByUserID(s.ctx, s.artisan.ID)
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.Equal(int64(90), views[0].TimeLockedMinutes)

	views, err = s.svs.EscrowService.GetByUserID(s.ctx, s.platform.ID)
	s.Require().NoError(err)
	s.Empty(views)
}
