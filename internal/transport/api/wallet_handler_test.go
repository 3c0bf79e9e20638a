package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/service"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type WalletHandlerTestSuite struct {
	handlerSuite
}

func TestWalletHandlerSuite(t *testing.T) {
	suite.Run(t, new(WalletHandlerTestSuite))
}

func (s *WalletHandlerTestSuite) TestDepositAndWithdraw() {
	var userID int64 = 3
	token := s.token(userID, domain.RoleClient)

	s.mockWalletService.EXPECT().Deposit(gomock.Any(), userID, int64(15000)).
		Return(&domain.Wallet{UserID: userID, Balance: 15000}, nil)
	s.mockWalletService.EXPECT().Withdraw(gomock.Any(), userID, int64(5000)).
		Return(&domain.Wallet{UserID: userID, Balance: 10000}, nil)
	s.mockWalletService.EXPECT().Withdraw(gomock.Any(), userID, int64(50000)).
		Return(nil, fmt.Errorf("withdrawing: %w", domain.ErrInsufficientFunds))

	cases := []struct {
		name        string
		route       string
		payload     map[string]any
		wantStatus  int
		wantBalance int64
	}{
		{name: "deposit", route: WalletDepositRoute, payload: map[string]any{"amount": 15000},
			wantStatus: http.StatusOK, wantBalance: 15000},
		{name: "withdraw", route: WalletWithdrawRoute, payload: map[string]any{"amount": 5000},
			wantStatus: http.StatusOK, wantBalance: 10000},
		{name: "withdraw too much", route: WalletWithdrawRoute, payload: map[string]any{"amount": 50000},
			wantStatus: http.StatusPaymentRequired},
		{name: "negative amount", route: WalletDepositRoute, payload: map[string]any{"amount": -1},
			wantStatus: http.StatusUnprocessableEntity},
		{name: "fractional amount", route: WalletDepositRoute, payload: map[string]any{"amount": 1.5},
			wantStatus: http.StatusBadRequest},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			status, body := s.do(http.MethodPost, RouteGroup+t.route, t.payload, token)
			s.Require().Equal(t.wantStatus, status, string(body))
			if t.wantStatus == http.StatusOK {
				var resp WalletResponse
				s.decode(body, &resp)
				s.Equal(t.wantBalance, resp.Balance)
			}
		})
	}
}

func (s *WalletHandlerTestSuite) TestTransactions() {
	var userID int64 = 3
	orderID := int64(5)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	s.mockWalletService.EXPECT().History(gomock.Any(), userID).Return([]domain.Transaction{
		{ID: 2, OrderID: &orderID, Amount: -10000, Type: domain.TransactionEscrowLock,
			Status: domain.TransactionStatusSuccess, Reference: "ORD-5-LOCK", CreatedAt: created},
		{ID: 1, Amount: 15000, Type: domain.TransactionDeposit, Status: domain.TransactionStatusSuccess,
			Reference: "DEP-1", CreatedAt: created},
	}, nil)

	status, body := s.do(http.MethodGet, RouteGroup+WalletTransactionsRoute, nil, s.token(userID, domain.RoleClient))
	s.Require().Equal(http.StatusOK, status)

	var resp []TransactionResponseItem
	s.decode(body, &resp)
	s.Require().Len(resp, 2)
	s.Equal(int64(-10000), resp[0].Amount)
	s.Equal("ORD-5-LOCK", resp[0].Reference)
	s.Equal("2025-01-02T03:04:05Z", resp[0].CreatedAt)
	s.Nil(resp[1].OrderID)
}

func (s *WalletHandlerTestSuite) TestIndexAndEscrows() {
	var userID int64 = 3
	token := s.token(userID, domain.RoleClient)

	s.mockWalletService.EXPECT().GetWallet(gomock.Any(), userID).Return(&domain.Wallet{Balance: 700}, nil)
	s.mockEscrowService.EXPECT().GetByUserID(gomock.Any(), userID).Return([]service.EscrowView{
		{EscrowAccount: domain.EscrowAccount{OrderID: 5, Amount: 10000, Status: domain.EscrowStatusLocked},
			TimeLockedMinutes: 15},
	}, nil)

	status, body := s.do(http.MethodGet, RouteGroup+WalletRoute, nil, token)
	s.Require().Equal(http.StatusOK, status)
	var wallet WalletResponse
	s.decode(body, &wallet)
	s.Equal(int64(700), wallet.Balance)

	status, body = s.do(http.MethodGet, RouteGroup+EscrowsRoute, nil, token)
	s.Require().Equal(http.StatusOK, status)
	var escrows []EscrowResponse
	s.decode(body, &escrows)
	s.Require().Len(escrows, 1)
	s.Equal(int64(15), escrows[0].TimeLockedMinutes)
}

func (s *WalletHandlerTestSuite) TestMetricsEndpoint() {
	status, body := s.do(http.MethodGet, MetricsRoute, nil, "")
	s.Equal(http.StatusOK, status)
	s.Contains(string(body), "go_goroutines")
}
