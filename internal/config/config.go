// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/utils"
	"github.com/joho/godotenv"
)

// Price sink backends
const (
	SinkSQLite   = "sqlite"
	SinkPostgres = "postgres"
	SinkRedis    = "redis"
	SinkMemory   = "memory"
)

// EPX cache backends
const (
	EpxCacheFile = "file"
	EpxCacheS3   = "s3"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for the sqlite database and the EPX cache file (always absolute)
	LogLevel  string
	LogPretty bool
	Port      int
	DevMode   bool

	Providers ProviderConfig
	Sink      SinkConfig
	Epx       EpxConfig
	Schedules ScheduleConfig
	Watchlist WatchlistConfig

	QuoteRetentionDays int
}

// ProviderConfig controls outbound quote providers
type ProviderConfig struct {
	PremiumEquityProvider string // "yahoo" puts Yahoo in front of Stooq
	YahooClientMode       string // http | native
	Timeout               time.Duration
	MaxRetries            int
}

// SinkConfig selects where normalized quotes are persisted
type SinkConfig struct {
	Backend       string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// EpxConfig configures the hedonic index ingestion
type EpxConfig struct {
	URL          string
	APIURL       string // Optional JSON source tried before the HTML page
	CacheBackend string // file | s3
	CachePath    string
	R2           R2Config
}

// R2Config holds the S3-compatible bucket used when CacheBackend is s3
type R2Config struct {
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	ObjectKey       string
}

// ScheduleConfig holds cron expressions for background jobs
type ScheduleConfig struct {
	PriceRefresh string
	EpxRefresh   string
	Retention    string
	Maintenance  string
}

// WatchlistConfig lists the symbols refreshed by the scheduled price job
type WatchlistConfig struct {
	Equities []string
	Cryptos  []string
	FxPairs  []string
}

// Empty reports whether no symbol is configured at all
func (w WatchlistConfig) Empty() bool {
	return len(w.Equities) == 0 && len(w.Cryptos) == 0 && len(w.FxPairs) == 0
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("PORTFOLIO_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:   absDataDir,
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),
		Port:      getEnvAsInt("PORT", 8080),
		DevMode:   getEnvAsBool("DEV_MODE", false),
		Providers: ProviderConfig{
			PremiumEquityProvider: strings.ToLower(getEnv("PREMIUM_EQUITY_PROVIDER", "")),
			YahooClientMode:       strings.ToLower(getEnv("YAHOO_CLIENT_MODE", "http")),
			Timeout:               getEnvAsDuration("PROVIDER_TIMEOUT", 8*time.Second),
			MaxRetries:            getEnvAsInt("PROVIDER_MAX_RETRIES", 3),
		},
		Sink: SinkConfig{
			Backend:       strings.ToLower(getEnv("PRICE_SINK", SinkSQLite)),
			PostgresDSN:   getEnv("POSTGRES_DSN", ""),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
		},
		Epx: EpxConfig{
			URL:          getEnv("EPX_URL", "https://europace.de/epx-hedonic/"),
			APIURL:       getEnv("EPX_API_URL", ""),
			CacheBackend: strings.ToLower(getEnv("EPX_CACHE_BACKEND", EpxCacheFile)),
			CachePath:    getEnv("EPX_CACHE_PATH", filepath.Join(absDataDir, "epx-indices.json")),
			R2: R2Config{
				Endpoint:        getEnv("R2_ENDPOINT", ""),
				Bucket:          getEnv("R2_BUCKET", ""),
				AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
				ObjectKey:       getEnv("R2_OBJECT_KEY", "epx/indices.json"),
			},
		},
		Schedules: ScheduleConfig{
			PriceRefresh: getEnv("PRICE_REFRESH_SCHEDULE", "@every 10m"),
			EpxRefresh:   getEnv("EPX_REFRESH_SCHEDULE", "@daily"),
			Retention:    getEnv("RETENTION_SCHEDULE", "@daily"),
			Maintenance:  getEnv("MAINTENANCE_SCHEDULE", "@weekly"),
		},
		Watchlist: WatchlistConfig{
			Equities: getEnvAsList("WATCHLIST_EQUITIES"),
			Cryptos:  getEnvAsList("WATCHLIST_CRYPTOS"),
			FxPairs:  getEnvAsList("WATCHLIST_FX"),
		},
		QuoteRetentionDays: getEnvAsInt("QUOTE_RETENTION_DAYS", 90),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.Sink.Backend {
	case SinkSQLite, SinkMemory, SinkRedis:
	case SinkPostgres:
		if c.Sink.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when PRICE_SINK=postgres")
		}
	default:
		return fmt.Errorf("unknown PRICE_SINK %q", c.Sink.Backend)
	}

	switch c.Providers.YahooClientMode {
	case "http", "native":
	default:
		return fmt.Errorf("unknown YAHOO_CLIENT_MODE %q", c.Providers.YahooClientMode)
	}

	if c.Providers.MaxRetries < 0 {
		return fmt.Errorf("PROVIDER_MAX_RETRIES must not be negative")
	}
	if c.Providers.Timeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}

	switch c.Epx.CacheBackend {
	case EpxCacheFile:
	case EpxCacheS3:
		if c.Epx.R2.Endpoint == "" || c.Epx.R2.Bucket == "" {
			return fmt.Errorf("R2_ENDPOINT and R2_BUCKET are required when EPX_CACHE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown EPX_CACHE_BACKEND %q", c.Epx.CacheBackend)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks
func getEnvAsList(key string) []string {
	return utils.ParseCSV(os.Getenv(key))
}
