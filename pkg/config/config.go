// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Ledger backends
const (
	LedgerBackendMemory   = "memory"
	LedgerBackendPostgres = "postgres"
)

const defaultProviderURL = "https://justanotherpanel.com/api/v2"

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Ledger   LedgerConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Provider ProviderConfig
	Pricing  PricingConfig
	Admin    AdminConfig
	Order    OrderConfig
	Catalog  CatalogConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	IdempotencyTTL time.Duration
	RateLimit      int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LedgerConfig struct {
	Backend string
}

// RedisConfig is optional; an empty URL disables the Redis-backed catalog
// cache, rate limiting and idempotency replay.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type ProviderConfig struct {
	URL             string
	APIKey          string
	Timeout         time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
}

type PricingConfig struct {
	MarkupPercent decimal.Decimal
}

type AdminConfig struct {
	IDs []string
}

// OrderConfig bounds accepted purchase requests. Zero disables a bound.
type OrderConfig struct {
	MinQuantity    int
	MaxQuantity    int
	RequireLinkURL bool
}

type CatalogConfig struct {
	Dir             string
	CacheTTL        time.Duration
	FundingMethod   string
	FundingHandle   string
	FundingCurrency string
}

type LogConfig struct {
	Level string
}

// Load reads a .env file when present and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 45*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			IdempotencyTTL: getDurationEnv("IDEMPOTENCY_TTL", 24*time.Hour),
			RateLimit:      getIntEnv("RATE_LIMIT_PER_MINUTE", 60),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Ledger: LedgerConfig{
			Backend: strings.ToLower(getEnv("LEDGER_BACKEND", LedgerBackendPostgres)),
		},
		Redis: RedisConfig{
			URL:      normalizeRedisURL(getEnv("REDIS_URL", "")),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-this-secret"),
			Expiry: getDurationEnv("JWT_EXPIRY", 24*time.Hour),
		},
		Provider: ProviderConfig{
			URL:             getEnv("PROVIDER_API_URL", defaultProviderURL),
			APIKey:          getEnv("PROVIDER_API_KEY", getEnv("API_KEY", "")),
			Timeout:         getDurationEnv("PROVIDER_TIMEOUT", 15*time.Second),
			MaxRetries:      getIntEnv("PROVIDER_MAX_RETRIES", 3),
			RetryBackoff:    getDurationEnv("PROVIDER_RETRY_BACKOFF", 500*time.Millisecond),
			MaxRetryBackoff: getDurationEnv("PROVIDER_MAX_RETRY_BACKOFF", 5*time.Second),
		},
		Pricing: PricingConfig{
			MarkupPercent: getDecimalEnv("MARKUP_PERCENT", decimal.NewFromInt(30)),
		},
		Admin: AdminConfig{
			IDs: getListEnv("ADMIN_IDS"),
		},
		Order: OrderConfig{
			MinQuantity:    getIntEnv("ORDER_MIN_QUANTITY", 0),
			MaxQuantity:    getIntEnv("ORDER_MAX_QUANTITY", 0),
			RequireLinkURL: getBoolEnv("ORDER_REQUIRE_LINK_URL", false),
		},
		Catalog: CatalogConfig{
			Dir:             getEnv("CATALOG_DIR", "."),
			CacheTTL:        getDurationEnv("CATALOG_CACHE_TTL", 5*time.Minute),
			FundingMethod:   getEnv("FUNDING_METHOD", "PayPal"),
			FundingHandle:   getEnv("FUNDING_HANDLE", ""),
			FundingCurrency: getEnv("FUNDING_CURRENCY", "EUR"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func normalizeRedisURL(url string) string {
	// Strip redis:// or redis+tls:// scheme if present
	if strings.HasPrefix(url, "redis+tls://") {
		return url[len("redis+tls://"):]
	}
	if strings.HasPrefix(url, "redis://") {
		return url[len("redis://"):]
	}
	return url
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultValue
}

func getDecimalEnv(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping blanks.
func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
