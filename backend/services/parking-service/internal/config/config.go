package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	libconfig "parkpay/backend/libs/config"
	libdb "parkpay/backend/libs/db"
	"parkpay/backend/services/parking-service/internal/pricing"
)

// Payment processor modes.
const (
	PaymentSimulated = "simulated"
	PaymentHTTP      = "http"
)

// Config defines parking service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"PARKING_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN             string        `yaml:"dsn" env:"PARKING_POSTGRES_DSN"`
		MaxOpenConns    int           `yaml:"maxOpenConns" env:"PARKING_POSTGRES_MAX_OPEN_CONNS"`
		ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" env:"PARKING_POSTGRES_CONN_MAX_LIFETIME"`
		Migrate         bool          `yaml:"migrate" env:"PARKING_POSTGRES_MIGRATE"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"PARKING_REDIS_ADDR"`
		Password string `yaml:"password" env:"PARKING_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"PARKING_REDIS_DB"`
		Prefix   string `yaml:"prefix" env:"PARKING_REDIS_PREFIX"`
	} `yaml:"redis"`
	JWT struct {
		Secret string `yaml:"secret" env:"PARKING_JWT_SECRET"`
	} `yaml:"jwt"`
	Pricing struct {
		TaxRate         decimal.Decimal `yaml:"taxRate" env:"PARKING_TAX_RATE"`
		ProcessingRate  decimal.Decimal `yaml:"processingRate" env:"PARKING_PROCESSING_RATE"`
		ProcessingFixed decimal.Decimal `yaml:"processingFixed" env:"PARKING_PROCESSING_FIXED"`
	} `yaml:"pricing"`
	Payment struct {
		Mode           string          `yaml:"mode" env:"PARKING_PAYMENT_MODE"`
		BaseURL        string          `yaml:"baseUrl" env:"PARKING_PAYMENT_URL"`
		APIKey         string          `yaml:"apiKey" env:"PARKING_PAYMENT_API_KEY"`
		TimeoutSeconds int             `yaml:"timeoutSeconds" env:"PARKING_PAYMENT_TIMEOUT"`
		Limit          decimal.Decimal `yaml:"limit" env:"PARKING_PAYMENT_LIMIT"`
	} `yaml:"payment"`
	Events struct {
		AMQPURL  string `yaml:"amqpUrl" env:"PARKING_AMQP_URL"`
		Exchange string `yaml:"exchange" env:"PARKING_AMQP_EXCHANGE"`
	} `yaml:"events"`
	Worker struct {
		Interval      time.Duration `yaml:"interval" env:"PARKING_WORKER_INTERVAL"`
		WarningWindow time.Duration `yaml:"warningWindow" env:"PARKING_WARNING_WINDOW"`
	} `yaml:"worker"`
	Alerts struct {
		AllowedOrigins []string      `yaml:"allowedOrigins" env:"PARKING_WS_ALLOWED_ORIGINS"`
		PingInterval   time.Duration `yaml:"pingInterval" env:"PARKING_WS_PING_INTERVAL"`
		WriteTimeout   time.Duration `yaml:"writeTimeout" env:"PARKING_WS_WRITE_TIMEOUT"`
	} `yaml:"alerts"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Port = "8083"
	cfg.Database.MaxOpenConns = 10
	cfg.Database.ConnMaxLifetime = 30 * time.Minute
	cfg.Database.Migrate = true
	cfg.Redis.Prefix = "parking"
	cfg.Pricing.TaxRate = pricing.DefaultRates.TaxRate
	cfg.Pricing.ProcessingRate = pricing.DefaultRates.ProcessingRate
	cfg.Pricing.ProcessingFixed = pricing.DefaultRates.ProcessingFixed
	cfg.Payment.Mode = PaymentSimulated
	cfg.Payment.TimeoutSeconds = 10
	cfg.Events.Exchange = "parking.session.events"
	cfg.Worker.Interval = 30 * time.Second
	cfg.Worker.WarningWindow = 10 * time.Minute
	cfg.Alerts.PingInterval = 30 * time.Second
	cfg.Alerts.WriteTimeout = 10 * time.Second
	return cfg
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings after loading.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database dsn required")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt secret required")
	}
	if err := c.Rates().Validate(); err != nil {
		return err
	}
	switch c.Payment.Mode {
	case PaymentSimulated:
	case PaymentHTTP:
		if strings.TrimSpace(c.Payment.BaseURL) == "" {
			return errors.New("payment url required in http mode")
		}
	default:
		return fmt.Errorf("unknown payment mode %q", c.Payment.Mode)
	}
	if c.Worker.WarningWindow < 0 {
		return errors.New("warning window must not be negative")
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8083"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// Rates returns the pricing parameters.
func (c *Config) Rates() pricing.Rates {
	return pricing.Rates{
		TaxRate:         c.Pricing.TaxRate,
		ProcessingRate:  c.Pricing.ProcessingRate,
		ProcessingFixed: c.Pricing.ProcessingFixed,
	}
}

// DBOptions returns connection pool settings.
func (c *Config) DBOptions() libdb.Options {
	return libdb.Options{
		MaxOpenConns:    c.Database.MaxOpenConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
	}
}

// PaymentTimeout returns processor request timeout.
func (c *Config) PaymentTimeout() time.Duration {
	if c.Payment.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Payment.TimeoutSeconds) * time.Second
}
