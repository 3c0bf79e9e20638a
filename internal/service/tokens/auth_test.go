package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TokensTestSuite struct {
	suite.Suite
	key []byte
}

func TestTokensSuite(t *testing.T) {
	suite.Run(t, new(TokensTestSuite))
}

func (s *TokensTestSuite) SetupTest() {
	s.key = []byte("secret")
}

func (s *TokensTestSuite) TestRoundTrip() {
	token, err := GenerateUserJWT(42, "ARTISAN", time.Minute, s.key)
	s.Require().NoError(err)

	claims, err := ValidateUserJWT(token, s.key)
	s.Require().NoError(err)
	s.Equal(int64(42), claims.ID)
	s.Equal("ARTISAN", claims.Role)
}

func (s *TokensTestSuite) TestExpired() {
	token, err := GenerateUserJWT(1, "CLIENT", -time.Minute, s.key)
	s.Require().NoError(err)

	_, err = ValidateUserJWT(token, s.key)
	s.Require().ErrorIs(err, ErrTokenExpired)
}

func (s *TokensTestSuite) TestWrongKey() {
	token, err := GenerateUserJWT(1, "CLIENT", time.Minute, s.key)
	s.Require().NoError(err)

	_, err = ValidateUserJWT(token, []byte("other"))
	s.Require().Error(err)
	s.Require().NotErrorIs(err, ErrTokenExpired)
}
