// Package di provides dependency injection for clients and services.
package di

import (
	"context"
	"fmt"

	"github.com/Alexander4822/Spielwiese/internal/clients/coingecko"
	"github.com/Alexander4822/Spielwiese/internal/clients/ecb"
	"github.com/Alexander4822/Spielwiese/internal/clients/stooq"
	"github.com/Alexander4822/Spielwiese/internal/clients/yahoo"
	"github.com/Alexander4822/Spielwiese/internal/config"
	"github.com/Alexander4822/Spielwiese/internal/marketdata"
	"github.com/Alexander4822/Spielwiese/internal/modules/epx"
	"github.com/Alexander4822/Spielwiese/internal/reliability"
	"github.com/rs/zerolog"
)

// providerBackoff applies the configured retry count and per-attempt timeout to the default backoff
func providerBackoff(cfg *config.Config) reliability.Backoff {
	b := reliability.DefaultBackoff()
	b.MaxRetries = cfg.Providers.MaxRetries
	if cfg.Providers.Timeout > 0 {
		b.AttemptTimeout = cfg.Providers.Timeout
	}
	return b
}

// InitializeServices builds the provider clients, the market data service and the EPX ingestor.
// The price sink must be initialized first.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container.PriceRepo == nil {
		return fmt.Errorf("price sink not initialized")
	}

	backoff := providerBackoff(cfg)

	// Providers
	container.StooqClient = stooq.NewClient(backoff, log)
	if cfg.Providers.YahooClientMode == "native" {
		container.YahooClient = yahoo.NewNativeClient(backoff, log)
	} else {
		container.YahooClient = yahoo.NewClient(backoff, log)
	}
	container.CoinGeckoClient = coingecko.NewClient(backoff, log)
	container.ECBClient = ecb.NewClient(backoff, log)

	primary, fallback := marketdata.OrderEquityProviders(
		cfg.Providers.PremiumEquityProvider,
		container.StooqClient,
		container.YahooClient,
	)
	log.Info().
		Str("primary", primary.Name()).
		Str("fallback", fallback.Name()).
		Msg("Equity provider order")

	provider := marketdata.NewCompositeProvider(primary, fallback, container.CoinGeckoClient, container.ECBClient, log)
	container.MarketDataService = marketdata.NewService(provider, container.PriceRepo, log)

	// EPX
	store, err := newEpxStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	container.EpxStore = store

	var alternate epx.Source
	if cfg.Epx.APIURL != "" {
		alternate = epx.NewJSONSource(cfg.Epx.APIURL, backoff, log)
	}
	html := epx.NewHTMLSource(cfg.Epx.URL, backoff, log)
	container.EpxIngestor = epx.NewIngestor(alternate, html, store, log)

	return nil
}

func newEpxStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (epx.Store, error) {
	switch cfg.Epx.CacheBackend {
	case config.EpxCacheS3:
		r2 := cfg.Epx.R2
		store, err := epx.NewS3Store(ctx, epx.S3Options{
			Endpoint:        r2.Endpoint,
			Bucket:          r2.Bucket,
			ObjectKey:       r2.ObjectKey,
			AccessKeyID:     r2.AccessKeyID,
			SecretAccessKey: r2.SecretAccessKey,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize EPX S3 store: %w", err)
		}
		return store, nil
	default:
		return epx.NewFileStore(cfg.Epx.CachePath), nil
	}
}
