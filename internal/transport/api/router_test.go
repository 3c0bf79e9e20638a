package api

import (
	"io"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/logger"
	"github.com/fsdevblog/escrow-ledger/internal/service/tokens"
	"github.com/fsdevblog/escrow-ledger/internal/transport/api/mocks"
	"github.com/fsdevblog/escrow-ledger/internal/transport/api/testutils"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

// handlerSuite общий каркас тестов хендлеров: роутер на моках всех сервисов.
type handlerSuite struct {
	suite.Suite
	router *gin.Engine
	ctrl   *gomock.Controller

	mockUserService    *mocks.MockUserServicer
	mockListingService *mocks.MockListingServicer
	mockOrderService   *mocks.MockOrderServicer
	mockEscrowService  *mocks.MockEscrowServicer
	mockWalletService  *mocks.MockWalletServicer

	jwtSecret []byte
}

func (s *handlerSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.ctrl = gomock.NewController(s.T())

	s.mockUserService = mocks.NewMockUserServicer(s.ctrl)
	s.mockListingService = mocks.NewMockListingServicer(s.ctrl)
	s.mockOrderService = mocks.NewMockOrderServicer(s.ctrl)
	s.mockEscrowService = mocks.NewMockEscrowServicer(s.ctrl)
	s.mockWalletService = mocks.NewMockWalletServicer(s.ctrl)
	s.jwtSecret = []byte("super secret key")

	l, err := logger.New(io.Discard, "")
	s.Require().NoError(err)

	s.router, err = New(RouterArgs{
		Logger:         l,
		UserService:    s.mockUserService,
		ListingService: s.mockListingService,
		OrderService:   s.mockOrderService,
		EscrowService:  s.mockEscrowService,
		WalletService:  s.mockWalletService,
		JWTSecretKey:   s.jwtSecret,
	})
	s.Require().NoError(err)
}

func (s *handlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *handlerSuite) token(userID int64, role domain.UserRole) string {
	token, err := tokens.GenerateUserJWT(userID, string(role), time.Hour, s.jwtSecret)
	s.Require().NoError(err)
	return token
}

// do выполняет запрос и возвращает статус и тело ответа. payload сериализуется в json, если не nil.
func (s *handlerSuite) do(method, url string, payload any, token string) (int, []byte) {
	res := s.request(method, url, payload, testutils.WithBearer(token))
	return res.Status, res.Body
}

func (s *handlerSuite) request(method, url string, payload any, opts ...func(*testutils.RequestOptions)) *testutils.Response {
	res, err := testutils.MakeRequest(testutils.RequestArgs{
		Router:  s.router,
		Method:  method,
		URL:     url,
		Payload: payload,
	}, opts...)
	s.Require().NoError(err)
	return res
}

func (s *handlerSuite) decode(body []byte, v any) {
	s.Require().NoError((&testutils.Response{Body: body}).Decode(v))
}

func (s *handlerSuite) errorText(body []byte) string {
	return (&testutils.Response{Body: body}).ErrorText()
}
