// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ServiceName    = "go-pos-invoice"
	ServiceVersion = "1.0.0"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Database struct {
	URL      string
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	TimeZone string
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from the DB_* parts.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.TimeZone,
	)
}

type Config struct {
	Env            string
	Port           string
	StoreDriver    string
	Database       Database
	JWTSecret      string
	JWTTTL         time.Duration
	InvoiceTimeout time.Duration
	LogLevel       string

	KafkaBroker       string
	KafkaInvoiceTopic string

	OtelEndpoint   string
	OtelAuthHeader string

	AdminEmail       string
	AdminPassword    string
	SeedDemoProducts bool
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durenv(key string, def time.Duration) (time.Duration, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

func boolenv(key string, def bool) (bool, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// Load collects configuration from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Env:         getenv("APP_ENV", "production"),
		Port:        getenv("PORT", "3000"),
		StoreDriver: strings.ToLower(getenv("STORE_DRIVER", DriverPostgres)),
		Database: Database{
			URL:      getenv("DATABASE_URL", ""),
			Host:     getenv("DB_HOST", "localhost"),
			User:     getenv("DB_USER", "postgres"),
			Password: getenv("DB_PASSWORD", ""),
			Name:     getenv("DB_NAME", "pos"),
			Port:     getenv("DB_PORT", "5432"),
			TimeZone: getenv("DB_TIMEZONE", "UTC"),
		},
		JWTSecret:         getenv("JWT_SECRET", "your-super-secret-key-change-in-production"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		KafkaBroker:       getenv("KAFKA_BROKER", ""),
		KafkaInvoiceTopic: getenv("KAFKA_INVOICE_TOPIC", "invoice.created"),
		OtelEndpoint:      getenv("OTEL_ENDPOINT", ""),
		OtelAuthHeader:    getenv("OTEL_AUTH_HEADER", ""),
		AdminEmail:        getenv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword:     getenv("ADMIN_PASSWORD", "admin123"),
	}

	var err error
	if cfg.JWTTTL, err = durenv("JWT_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.InvoiceTimeout, err = durenv("INVOICE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SeedDemoProducts, err = boolenv("SEED_DEMO_PRODUCTS", false); err != nil {
		return nil, err
	}

	switch cfg.StoreDriver {
	case DriverPostgres, DriverMemory:
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, cfg.StoreDriver)
	}

	return cfg, nil
}
