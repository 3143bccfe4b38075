package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "parkpay/backend/libs/config"
)

// Config represents service configuration loaded from YAML/env.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"AUTH_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN     string `yaml:"dsn" env:"AUTH_POSTGRES_DSN"`
		Migrate bool   `yaml:"migrate" env:"AUTH_POSTGRES_MIGRATE"`
	} `yaml:"database"`
	JWT struct {
		Secret           string `yaml:"secret" env:"AUTH_JWT_SECRET"`
		ExpiresInMinutes int    `yaml:"expiresInMinutes" env:"AUTH_JWT_EXPIRES_MINUTES"`
	} `yaml:"jwt"`
	Admin struct {
		Email    string `yaml:"email" env:"AUTH_ADMIN_EMAIL"`
		Password string `yaml:"password" env:"AUTH_ADMIN_PASSWORD"`
	} `yaml:"admin"`
	BcryptCost int `yaml:"bcryptCost" env:"AUTH_BCRYPT_COST"`
}

// Load reads configuration using the shared config loader.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8081"
	cfg.Database.Migrate = true
	cfg.JWT.ExpiresInMinutes = 60

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings after loading.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database DSN is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required")
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		return errors.New("admin email and password must be set together")
	}
	if c.JWT.ExpiresInMinutes <= 0 {
		c.JWT.ExpiresInMinutes = 60
	}
	return nil
}

// HTTPAddress ensures we always return host:port formatted string.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8081"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// JWTExpiration converts configured expiry to duration.
func (c *Config) JWTExpiration() time.Duration {
	if c.JWT.ExpiresInMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.JWT.ExpiresInMinutes) * time.Minute
}
