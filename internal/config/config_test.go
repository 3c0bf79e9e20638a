package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (s *ConfigTestSuite) TestDefaults() {
	conf, err := loadConfig([]string{"-j", "secret"})
	s.Require().NoError(err)

	s.Equal(defaultRunAddress, conf.RunAddress)
	s.Equal(defaultMigrationsDir, conf.MigrationsDir)
	s.True(conf.UseInMemoryStore())
	s.True(decimal.RequireFromString("0.05").Equal(conf.Commission()))
	s.Equal(time.Hour, conf.ReminderInterval)
	s.Equal(time.Hour, conf.AutoReleaseInterval)
	s.Equal(uint(100), conf.SweepBatchSize)
	s.Equal(bcrypt.DefaultCost, conf.PasswordCost)
	s.Empty(conf.RedisURL)
	s.Empty(conf.EnrichmentAddress)
}

func (s *ConfigTestSuite) TestEnvOverridesFlags() {
	s.T().Setenv("RUN_ADDRESS", ":9090")
	s.T().Setenv("JWT_SECRET", "env-secret")
	s.T().Setenv("COMMISSION_RATE", "0.1")
	s.T().Setenv("COMMISSION_USER_ID", "42")
	s.T().Setenv("REMINDER_INTERVAL", "5m")
	s.T().Setenv("SWEEP_BATCH_SIZE", "10")

	conf, err := loadConfig([]string{
		"-a", ":8081",
		"-j", "flag-secret",
		"-d", "postgres://localhost/escrow",
		"-ari", "30m",
	})
	s.Require().NoError(err)

	s.Equal(":9090", conf.RunAddress)
	s.Equal("env-secret", conf.JWTUserSecret)
	s.Equal("postgres://localhost/escrow", conf.DatabaseDSN)
	s.False(conf.UseInMemoryStore())
	s.True(decimal.RequireFromString("0.1").Equal(conf.Commission()))
	s.Equal(int64(42), conf.CommissionUserID)
	s.Equal(5*time.Minute, conf.ReminderInterval)
	s.Equal(30*time.Minute, conf.AutoReleaseInterval)
	s.Equal(uint(10), conf.SweepBatchSize)
}

func (s *ConfigTestSuite) TestValidation() {
	cases := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "no jwt secret", args: nil},
		{name: "zero rate", args: []string{"-j", "s", "-c", "0"}},
		{name: "rate of one", args: []string{"-j", "s", "-c", "1"}},
		{name: "garbage rate", args: []string{"-j", "s", "-c", "five"}},
		{name: "negative interval", args: []string{"-j", "s", "-ri", "-1m"}},
		{name: "zero batch", args: []string{"-j", "s", "-b", "0"}},
		{name: "bcrypt cost too high", args: []string{"-j", "s", "-pc", "40"}},
		{name: "bcrypt cost too low", args: []string{"-j", "s", "-pc", "2"}},
		{name: "admin without password", args: []string{"-j", "s"}, env: map[string]string{"ADMIN_PHONE": "+100"}},
		{name: "unknown flag", args: []string{"-j", "s", "-zzz"}},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			for k, v := range t.env {
				s.T().Setenv(k, v)
			}
			_, err := loadConfig(t.args)
			s.Require().Error(err)
		})
	}
}
