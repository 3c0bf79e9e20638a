package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/escrow-ledger/internal/service/mocks"
	"github.com/fsdevblog/escrow-ledger/pkg/uow"
	uowmocks "github.com/fsdevblog/escrow-ledger/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type WalletServiceTestSuite struct {
	suite.Suite
	mockCtrl       *gomock.Controller
	mockUOW        *uowmocks.MockUOW
	mockTX         *uowmocks.MockTX
	mockWalletRepo *mocks.MockWalletRepository
	mockTransRepo  *mocks.MockTransactionRepository
	service        *WalletService
	wallet         *domain.Wallet
}

func TestWalletServiceSuite(t *testing.T) {
	suite.Run(t, new(WalletServiceTestSuite))
}

func (s *WalletServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockTX = uowmocks.NewMockTX(s.mockCtrl)
	s.mockWalletRepo = mocks.NewMockWalletRepository(s.mockCtrl)
	s.mockTransRepo = mocks.NewMockTransactionRepository(s.mockCtrl)

	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.WalletRepoName)).
		Return(s.mockWalletRepo, nil).AnyTimes()
	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTransRepo, nil).AnyTimes()

	// репозитории внутри транзакции
	s.mockTX.EXPECT().
		Get(uow.RepositoryName(repoargs.WalletRepoName)).
		Return(s.mockWalletRepo, nil).AnyTimes()
	s.mockTX.EXPECT().
		Get(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTransRepo, nil).AnyTimes()

	s.wallet = &domain.Wallet{ID: 7, UserID: 42, Balance: 100}

	var err error
	s.service, err = NewWalletService(s.mockUOW)
	s.Require().NoError(err)
}

func (s *WalletServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *WalletServiceTestSuite) runInTx() {
	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, fn func(context.Context, uow.TX) error) error {
			return fn(s.T().Context(), s.mockTX)
		},
	)
}

func (s *WalletServiceTestSuite) TestDeposit() {
	s.runInTx()
	s.mockWalletRepo.EXPECT().FindByUserID(gomock.Any(), s.wallet.UserID).Return(s.wallet, nil)
	s.mockWalletRepo.EXPECT().Credit(gomock.Any(), s.wallet.ID, int64(250)).
		Return(&domain.Wallet{ID: s.wallet.ID, UserID: s.wallet.UserID, Balance: 350}, nil)
	s.mockTransRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args repoargs.CreateTransaction) (*domain.Transaction, error) {
			// пополнение - положительная запись без заказа.
			s.Equal(s.wallet.ID, args.WalletID)
			s.Equal(int64(250), args.Amount)
			s.Equal(domain.TransactionDeposit, args.Type)
			s.Nil(args.OrderID)
			s.True(strings.HasPrefix(args.Reference, "DEP-"))
			return &domain.Transaction{ID: 1}, nil
		})

	wallet, err := s.service.Deposit(s.T().Context(), s.wallet.UserID, 250)
	s.Require().NoError(err)
	s.Equal(int64(350), wallet.Balance)
}

func (s *WalletServiceTestSuite) TestWithdraw() {
	cases := []struct {
		name     string
		amount   int64
		debitErr error
		wantErr  error
	}{
		{name: "ok", amount: 60},
		{name: "insufficient funds", amount: 160, debitErr: domain.ErrInsufficientFunds,
			wantErr: domain.ErrInsufficientFunds},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.runInTx()
			s.mockWalletRepo.EXPECT().FindByUserID(gomock.Any(), s.wallet.UserID).Return(s.wallet, nil)
			if tc.debitErr != nil {
				s.mockWalletRepo.EXPECT().Debit(gomock.Any(), s.wallet.ID, tc.amount).Return(nil, tc.debitErr)
				// журнал не пишется, если баланс не изменился
				s.mockTransRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			} else {
				s.mockWalletRepo.EXPECT().Debit(gomock.Any(), s.wallet.ID, tc.amount).
					Return(&domain.Wallet{ID: s.wallet.ID, Balance: s.wallet.Balance - tc.amount}, nil)
				s.mockTransRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, args repoargs.CreateTransaction) (*domain.Transaction, error) {
						s.Equal(-tc.amount, args.Amount)
						s.Equal(domain.TransactionWithdrawal, args.Type)
						s.True(strings.HasPrefix(args.Reference, "WDR-"))
						return &domain.Transaction{ID: 2}, nil
					})
			}

			_, err := s.service.Withdraw(s.T().Context(), s.wallet.UserID, tc.amount)
			if tc.wantErr != nil {
				s.Require().ErrorIs(err, tc.wantErr)
				return
			}
			s.Require().NoError(err)
		})
	}
}

func (s *WalletServiceTestSuite) TestInvalidAmount() {
	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.service.Deposit(s.T().Context(), s.wallet.UserID, 0)
	s.Require().ErrorIs(err, domain.ErrInvalidAmount)
	_, err = s.service.Withdraw(s.T().Context(), s.wallet.UserID, -5)
	s.Require().ErrorIs(err, domain.ErrInvalidAmount)
}

func (s *WalletServiceTestSuite) TestCommitFailureIsTransient() {
	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any()).
		Return(&uow.TxError{Op: "commit", Err: errors.New("connection reset")})

	_, err := s.service.Deposit(s.T().Context(), s.wallet.UserID, 10)
	s.Require().ErrorIs(err, domain.ErrTransientStore)
	s.False(domain.IsBusinessError(err))
}

func (s *WalletServiceTestSuite) TestReconcile() {
	s.mockWalletRepo.EXPECT().FindByUserID(gomock.Any(), s.wallet.UserID).Return(s.wallet, nil)
	s.mockTransRepo.EXPECT().SumByWalletID(gomock.Any(), s.wallet.ID).Return(int64(100), nil)

	balance, sum, err := s.service.Reconcile(s.T().Context(), s.wallet.UserID)
	s.Require().NoError(err)
	s.Equal(balance, sum)
}

// TestTxErrKeepsBusinessError отказ по бизнес-правилу вместе с неудачным откатом остается бизнес-ошибкой.
func (s *WalletServiceTestSuite) TestTxErrKeepsBusinessError() {
	err := txErr("withdrawing", errors.Join(domain.ErrInsufficientFunds, errors.New("conn closed")))
	s.Require().ErrorIs(err, domain.ErrInsufficientFunds)
	s.NotErrorIs(err, domain.ErrTransientStore)

	err = txErr("withdrawing", &uow.TxError{Op: "commit", Err: errors.New("serialization failure")})
	s.Require().ErrorIs(err, domain.ErrTransientStore)
}
