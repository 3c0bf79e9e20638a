package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultRunAddress     = "localhost:8080"
	defaultMigrationsDir  = "internal/db/migrations"
	defaultCommissionRate = "0.05"
	defaultSweepInterval  = time.Hour
	defaultSweepBatchSize = 100
)

type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseDSN   string `env:"DATABASE_URI"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`
	JWTUserSecret string `env:"JWT_SECRET"`
	LogLevel      string `env:"LOG_LEVEL"`

	// RedisURL пустой - без redis: уведомления только в лог, без распределенной блокировки планировщика.
	RedisURL string `env:"REDIS_URL"`
	// EnrichmentAddress пустой - обогащение заказов отключено.
	EnrichmentAddress string `env:"ENRICHMENT_ADDRESS"`

	CommissionRate   string `env:"COMMISSION_RATE"`
	CommissionUserID int64  `env:"COMMISSION_USER_ID"`

	ReminderInterval    time.Duration `env:"REMINDER_INTERVAL"`
	AutoReleaseInterval time.Duration `env:"AUTO_RELEASE_INTERVAL"`
	SweepBatchSize      uint          `env:"SWEEP_BATCH_SIZE"`

	// PasswordCost стоимость bcrypt для паролей пользователей.
	PasswordCost int `env:"BCRYPT_COST"`

	// Учетная запись администратора, создается при старте, если задана.
	AdminPhone    string `env:"ADMIN_PHONE"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// Commission ставка комиссии платформы. Конфиг уже провалидирован в LoadConfig.
func (c *Config) Commission() decimal.Decimal {
	return decimal.RequireFromString(c.CommissionRate)
}

// UseInMemoryStore true если DSN базы не задан.
func (c *Config) UseInMemoryStore() bool {
	return c.DatabaseDSN == ""
}

// LoadConfig читает .env (если есть), переменные окружения и флаги командной строки.
// Переменные окружения приоритетнее флагов, флаги задают значения по умолчанию.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

func MustLoadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return config
}

func loadConfig(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %s", err.Error())
	}

	var flagsConfig, envConfig Config

	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	if flagsErr := loadFlags(&flagsConfig, args); flagsErr != nil {
		return nil, fmt.Errorf("parse flags: %s", flagsErr.Error())
	}

	conf := mergeConfig(&envConfig, &flagsConfig)
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func loadFlags(flagConfig *Config, args []string) error {
	fs := flag.NewFlagSet("escrowd", flag.ContinueOnError)

	fs.StringVar(&flagConfig.RunAddress, "a", defaultRunAddress, "Run address in format host:port")
	fs.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN, empty for in-memory store")
	fs.StringVar(&flagConfig.MigrationsDir, "m", defaultMigrationsDir, "Database migrations directory")
	fs.StringVar(&flagConfig.JWTUserSecret, "j", "", "JWT secret key")
	fs.StringVar(&flagConfig.LogLevel, "l", "", "Log level")
	fs.StringVar(&flagConfig.RedisURL, "r", "", "Redis URL or host:port")
	fs.StringVar(&flagConfig.EnrichmentAddress, "e", "", "Annotation service base URL")
	fs.StringVar(&flagConfig.CommissionRate, "c", defaultCommissionRate, "Platform commission rate")
	fs.Int64Var(&flagConfig.CommissionUserID, "cu", 0, "Platform wallet owner id")
	fs.DurationVar(&flagConfig.ReminderInterval, "ri", defaultSweepInterval, "Reminder sweep interval")
	fs.DurationVar(&flagConfig.AutoReleaseInterval, "ari", defaultSweepInterval, "Auto-release sweep interval")
	fs.UintVar(&flagConfig.SweepBatchSize, "b", defaultSweepBatchSize, "Orders per sweep page")
	fs.IntVar(&flagConfig.PasswordCost, "pc", bcrypt.DefaultCost, "Bcrypt cost for user passwords")

	return fs.Parse(args) //nolint:wrapcheck
}

func mergeConfig(envConfig, flagsConfig *Config) *Config {
	return &Config{
		RunAddress:          defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress),
		DatabaseDSN:         defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN),
		MigrationsDir:       defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir),
		JWTUserSecret:       defaultIfBlank(envConfig.JWTUserSecret, flagsConfig.JWTUserSecret),
		LogLevel:            defaultIfBlank(envConfig.LogLevel, flagsConfig.LogLevel),
		RedisURL:            defaultIfBlank(envConfig.RedisURL, flagsConfig.RedisURL),
		EnrichmentAddress:   defaultIfBlank(envConfig.EnrichmentAddress, flagsConfig.EnrichmentAddress),
		CommissionRate:      defaultIfBlank(envConfig.CommissionRate, flagsConfig.CommissionRate),
		CommissionUserID:    defaultIfBlank(envConfig.CommissionUserID, flagsConfig.CommissionUserID),
		ReminderInterval:    defaultIfBlank(envConfig.ReminderInterval, flagsConfig.ReminderInterval),
		AutoReleaseInterval: defaultIfBlank(envConfig.AutoReleaseInterval, flagsConfig.AutoReleaseInterval),
		SweepBatchSize:      defaultIfBlank(envConfig.SweepBatchSize, flagsConfig.SweepBatchSize),
		PasswordCost:        defaultIfBlank(envConfig.PasswordCost, flagsConfig.PasswordCost),
		AdminPhone:          envConfig.AdminPhone,
		AdminPassword:       envConfig.AdminPassword,
	}
}

func (c *Config) validate() error {
	if c.JWTUserSecret == "" {
		return errors.New("jwt secret is not set")
	}
	rate, err := decimal.NewFromString(c.CommissionRate)
	if err != nil {
		return fmt.Errorf("commission rate %q: %s", c.CommissionRate, err.Error())
	}
	if !rate.IsPositive() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("commission rate %s out of range (0, 1)", rate.String())
	}
	if c.ReminderInterval <= 0 || c.AutoReleaseInterval <= 0 {
		return errors.New("sweep intervals must be positive")
	}
	if c.SweepBatchSize == 0 {
		return errors.New("sweep batch size must be positive")
	}
	if c.PasswordCost < bcrypt.MinCost || c.PasswordCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost %d out of range [%d, %d]", c.PasswordCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if (c.AdminPhone == "") != (c.AdminPassword == "") {
		return errors.New("admin phone and password must be set together")
	}
	return nil
}

func defaultIfBlank[T comparable](value T, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}
