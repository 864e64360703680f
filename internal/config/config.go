package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/tradebooks/internal/domain"
	"github.com/josh-kwaku/tradebooks/internal/transfer"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	TransferThresholdPct int      `env:"TRANSFER_THRESHOLD_PCT" envDefault:"70"`
	SettlementCountry    string   `env:"SETTLEMENT_COUNTRY" envDefault:"PK"`
	InvoiceDueDays       int      `env:"INVOICE_DUE_DAYS" envDefault:"30"`
	SupportedCurrencies  []string `env:"SUPPORTED_CURRENCIES" envDefault:"USD,PKR,EUR,AED" envSeparator:","`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
	DBConnectAttempts  int `env:"DB_CONNECT_ATTEMPTS" envDefault:"30"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := c.Currencies(); err != nil {
		return err
	}
	if c.InvoiceDueDays <= 0 {
		return fmt.Errorf("INVOICE_DUE_DAYS must be positive, got %d", c.InvoiceDueDays)
	}
	if err := c.TransferPolicy().Validate(); err != nil {
		return err
	}
	return nil
}

// Currencies returns the mandatory currency set followed by any extra codes
// from SUPPORTED_CURRENCIES, without duplicates.
func (c *Config) Currencies() ([]domain.Currency, error) {
	out := slices.Clone(domain.SupportedCurrencies)
	for _, s := range c.SupportedCurrencies {
		cur := domain.Currency(s)
		if !cur.IsValid() {
			return nil, fmt.Errorf("SUPPORTED_CURRENCIES: %q: %w", s, domain.ErrInvalidCurrency)
		}
		if !slices.Contains(out, cur) {
			out = append(out, cur)
		}
	}
	return out, nil
}

func (c *Config) TransferPolicy() transfer.Policy {
	return transfer.Policy{
		SettlementCountry: c.SettlementCountry,
		ThresholdPct:      decimal.NewFromInt(int64(c.TransferThresholdPct)),
	}
}

func (c *Config) ConnMaxLifetime() time.Duration {
	return time.Duration(c.DBConnMaxLifetimeS) * time.Second
}

func (c *Config) ConnMaxIdleTime() time.Duration {
	return time.Duration(c.DBConnMaxIdleTimeS) * time.Second
}
