package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "parkpay/backend/libs/config"
)

// Config defines gateway configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"API_GATEWAY_HTTP_PORT"`
	} `yaml:"http"`
	JWT struct {
		Secret string `yaml:"secret" env:"API_GATEWAY_JWT_SECRET"`
	} `yaml:"jwt"`
	Services struct {
		AuthURL    string `yaml:"authUrl" env:"AUTH_SERVICE_URL"`
		ParkingURL string `yaml:"parkingUrl" env:"PARKING_SERVICE_URL"`
	} `yaml:"services"`
	HTTPClient struct {
		Timeout time.Duration `yaml:"timeout" env:"API_GATEWAY_HTTP_TIMEOUT"`
	} `yaml:"httpClient"`
}

// Load configuration via shared helper.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.Services.AuthURL = "http://localhost:8081"
	cfg.Services.ParkingURL = "http://localhost:8083"
	cfg.HTTPClient.Timeout = 5 * time.Second

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate runs after loading.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt secret required")
	}
	if c.Services.AuthURL == "" || c.Services.ParkingURL == "" {
		return errors.New("upstream service urls required")
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// HTTPTimeout returns http client timeout.
func (c *Config) HTTPTimeout() time.Duration {
	if c.HTTPClient.Timeout <= 0 {
		return 5 * time.Second
	}
	return c.HTTPClient.Timeout
}
