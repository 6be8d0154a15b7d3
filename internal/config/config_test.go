package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORTFOLIO_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, SinkSQLite, cfg.Sink.Backend)
	assert.Equal(t, "http", cfg.Providers.YahooClientMode)
	assert.Equal(t, 8*time.Second, cfg.Providers.Timeout)
	assert.Equal(t, 3, cfg.Providers.MaxRetries)
	assert.Equal(t, EpxCacheFile, cfg.Epx.CacheBackend)
	assert.Equal(t, "@every 10m", cfg.Schedules.PriceRefresh)
	assert.Equal(t, 90, cfg.QuoteRetentionDays)
	assert.True(t, cfg.Watchlist.Empty())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORTFOLIO_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("PREMIUM_EQUITY_PROVIDER", "Yahoo")
	t.Setenv("PROVIDER_TIMEOUT", "2s")
	t.Setenv("PRICE_SINK", "memory")
	t.Setenv("WATCHLIST_EQUITIES", "AAPL, MSFT,,")
	t.Setenv("WATCHLIST_FX", "EURUSD")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "yahoo", cfg.Providers.PremiumEquityProvider)
	assert.Equal(t, 2*time.Second, cfg.Providers.Timeout)
	assert.Equal(t, SinkMemory, cfg.Sink.Backend)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Watchlist.Equities)
	assert.Equal(t, []string{"EURUSD"}, cfg.Watchlist.FxPairs)
	assert.False(t, cfg.Watchlist.Empty())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:      8080,
			Providers: ProviderConfig{YahooClientMode: "http", Timeout: time.Second, MaxRetries: 3},
			Sink:      SinkConfig{Backend: SinkSQLite},
			Epx:       EpxConfig{CacheBackend: EpxCacheFile},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Port = 0 }, true},
		{"unknown sink", func(c *Config) { c.Sink.Backend = "mongo" }, true},
		{"postgres without dsn", func(c *Config) { c.Sink.Backend = SinkPostgres }, true},
		{"postgres with dsn", func(c *Config) {
			c.Sink.Backend = SinkPostgres
			c.Sink.PostgresDSN = "postgres://localhost/prices"
		}, false},
		{"unknown yahoo mode", func(c *Config) { c.Providers.YahooClientMode = "grpc" }, true},
		{"s3 without bucket", func(c *Config) { c.Epx.CacheBackend = EpxCacheS3 }, true},
		{"s3 configured", func(c *Config) {
			c.Epx.CacheBackend = EpxCacheS3
			c.Epx.R2 = R2Config{Endpoint: "https://r2.example", Bucket: "epx"}
		}, false},
		{"zero timeout", func(c *Config) { c.Providers.Timeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
