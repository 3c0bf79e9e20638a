package pgrepo

import (
	"errors"
	"testing"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/suite"
)

type ConvertErrTestSuite struct {
	suite.Suite
}

func TestConvertErrSuite(t *testing.T) {
	suite.Run(t, new(ConvertErrTestSuite))
}

func (s *ConvertErrTestSuite) TestConvertErr() {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: domain.ErrRecordNotFound},
		{name: "duplicate", err: &pgconn.PgError{Code: uniqueViolationCode}, want: domain.ErrDuplicateKey},
		{name: "negative balance", err: &pgconn.PgError{Code: checkViolationCode}, want: domain.ErrInsufficientFunds},
		{name: "serialization", err: &pgconn.PgError{Code: serializationFailureCode}, want: domain.ErrTransientStore},
		{name: "deadlock", err: &pgconn.PgError{Code: deadlockDetectedCode}, want: domain.ErrTransientStore},
		{name: "other pg error", err: &pgconn.PgError{Code: "42601"}, want: domain.ErrUnknown},
		{name: "plain error", err: errors.New("boom"), want: domain.ErrUnknown},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			err := convertErr(t.err, "op on %d", 1)
			s.Require().ErrorIs(err, t.want)
			s.Contains(err.Error(), "[repository/op on 1]")
		})
	}
	s.Require().NoError(convertErr(nil, "nothing"))
}
