package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	DBPath    string `env:"DB_PATH" envDefault:"invest.db"`
	JWTSecret string `env:"JWT_SECRET" envDefault:"invest-secret-key"`

	// Brokerage connection. Mode "mock" runs against the in-memory adapter.
	BrokerageMode    string        `env:"BROKERAGE_MODE" envDefault:"mock"`
	BrokerageBaseURL string        `env:"BROKERAGE_BASE_URL" envDefault:"https://api.brokerage.example.com/v1"`
	BrokerageAPIKey  string        `env:"BROKERAGE_API_KEY"`
	BrokerageTimeout time.Duration `env:"BROKERAGE_TIMEOUT" envDefault:"10s"`

	// Retry tuning for external calls.
	RetryCount      int           `env:"RETRY_COUNT" envDefault:"3"`
	RetryMinTimeout time.Duration `env:"RETRY_MIN_TIMEOUT" envDefault:"1s"`
	RetryMaxTimeout time.Duration `env:"RETRY_MAX_TIMEOUT" envDefault:"30s"`
	RetryFactor     float64       `env:"RETRY_FACTOR" envDefault:"2"`

	// Order economics, all integer minor units. FeeBps is the platform fee
	// in basis points (200 = 2%). SharePrice is the fixed fund share price.
	FeeBps       int64  `env:"FEE_BPS" envDefault:"200"`
	SharePrice   int64  `env:"SHARE_PRICE_MINOR" envDefault:"227"`
	InstrumentID string `env:"INSTRUMENT_ID" envDefault:"FUND-GLOBAL-EQ"`
	Currency     string `env:"CURRENCY" envDefault:"GBP"`
	FirmID       string `env:"FIRM_ID" envDefault:"firm-invest"`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"5m"`
}

func Load() (Config, error) {
	var cfg Config
	return cfg, env.Parse(&cfg)
}
