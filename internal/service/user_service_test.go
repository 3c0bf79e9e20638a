package service

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/memrepo"
	"github.com/fsdevblog/escrow-ledger/internal/service/psswd"
	"github.com/fsdevblog/escrow-ledger/internal/service/tokens"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type UserServiceTestSuite struct {
	suite.Suite
	service *UserService
	wallets *WalletService
	secret  []byte
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}

func (s *UserServiceTestSuite) SetupTest() {
	u := memrepo.NewUnitOfWork(memrepo.NewStore())
	s.secret = []byte(gofakeit.Password(true, true, true, false, false, 32))

	hasher, err := psswd.New(bcrypt.MinCost)
	s.Require().NoError(err)
	s.service, err = NewUserService(u, hasher, s.secret)
	s.Require().NoError(err)
	s.wallets, err = NewWalletService(u)
	s.Require().NoError(err)
}

func (s *UserServiceTestSuite) TestRegisterAndLogin() {
	phone := gofakeit.Phone()
	password := gofakeit.Password(true, true, true, false, false, 12)

	user, token, err := s.service.Register(s.T().Context(), RegisterUserArgs{
		Phone:    phone,
		Password: password,
		FullName: gofakeit.Name(),
		Role:     domain.RoleArtisan,
	})
	s.Require().NoError(err)
	s.Equal(domain.RoleArtisan, user.Role)
	s.NotEqual(password, user.EncryptedPassword)

	claims, err := tokens.ValidateUserJWT(token, s.secret)
	s.Require().NoError(err)
	s.Equal(user.ID, claims.ID)
	s.Equal(string(domain.RoleArtisan), claims.Role)

	// кошелек создается вместе с пользователем.
	wallet, err := s.wallets.GetWallet(s.T().Context(), user.ID)
	s.Require().NoError(err)
	s.Equal(int64(0), wallet.Balance)

	logged, _, err := s.service.Login(s.T().Context(), phone, password)
	s.Require().NoError(err)
	s.Equal(user.ID, logged.ID)

	_, _, err = s.service.Login(s.T().Context(), phone, "wrong")
	s.Require().ErrorIs(err, domain.ErrPasswordMissMatch)
	_, _, err = s.service.Login(s.T().Context(), gofakeit.Phone()+"0", password)
	s.Require().ErrorIs(err, domain.ErrPasswordMissMatch)
}

func (s *UserServiceTestSuite) TestRegisterRules() {
	phone := gofakeit.Phone()

	user, _, err := s.service.Register(s.T().Context(), RegisterUserArgs{Phone: phone, Password: "secret"})
	s.Require().NoError(err)
	s.Equal(domain.RoleClient, user.Role)

	_, _, err = s.service.Register(s.T().Context(), RegisterUserArgs{Phone: phone, Password: "secret"})
	s.Require().ErrorIs(err, domain.ErrDuplicateKey)

	_, _, err = s.service.Register(s.T().Context(), RegisterUserArgs{
		Phone:    gofakeit.Phone() + "1",
		Password: "secret",
		Role:     domain.RoleAdmin,
	})
	s.Require().ErrorIs(err, domain.ErrUnauthorized)
}

func (s *UserServiceTestSuite) TestEnsureAdmin() {
	phone := gofakeit.Phone()
	first, err := s.service.EnsureAdmin(s.T().Context(), phone, "admin")
	s.Require().NoError(err)
	s.Equal(domain.RoleAdmin, first.Role)

	second, err := s.service.EnsureAdmin(s.T().Context(), phone, "other")
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
}
