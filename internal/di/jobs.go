// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/Alexander4822/Spielwiese/internal/config"
	"github.com/Alexander4822/Spielwiese/internal/marketdata"
	"github.com/Alexander4822/Spielwiese/internal/modules/prices"
	"github.com/Alexander4822/Spielwiese/internal/reliability"
	"github.com/Alexander4822/Spielwiese/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates all jobs and registers the recurring ones with sched.
// The startup EPX job is returned but not scheduled; the caller runs it once.
func RegisterJobs(container *Container, cfg *config.Config, sched *scheduler.Scheduler, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}
	if container.MarketDataService == nil || container.EpxIngestor == nil {
		return nil, fmt.Errorf("services not initialized")
	}

	instances := &JobInstances{}

	// ==========================================
	// EPX ingestion
	// ==========================================
	instances.EpxStartup = scheduler.NewEpxRefreshJob("epx_startup_update", container.EpxIngestor, log)

	epxDaily := scheduler.NewEpxRefreshJob("epx_daily_refresh", container.EpxIngestor, log)
	if err := sched.AddJob(cfg.Schedules.EpxRefresh, epxDaily); err != nil {
		return nil, fmt.Errorf("failed to register epx_daily_refresh job: %w", err)
	}
	instances.EpxDaily = epxDaily

	// ==========================================
	// Watchlist price refresh
	// ==========================================
	if !cfg.Watchlist.Empty() {
		priceRefresh := scheduler.NewPriceRefreshJob(container.MarketDataService, marketdata.RefreshRequest{
			Equities: cfg.Watchlist.Equities,
			Cryptos:  cfg.Watchlist.Cryptos,
			FxPairs:  cfg.Watchlist.FxPairs,
		}, log)
		if err := sched.AddJob(cfg.Schedules.PriceRefresh, priceRefresh); err != nil {
			return nil, fmt.Errorf("failed to register prices_refresh job: %w", err)
		}
		instances.PriceRefresh = priceRefresh
	} else {
		log.Info().Msg("Watchlist empty, prices_refresh job not registered")
	}

	// ==========================================
	// Quote retention
	// ==========================================
	if container.PricePruner != nil && cfg.QuoteRetentionDays > 0 {
		retention := prices.NewRetentionJob(container.PricePruner, cfg.QuoteRetentionDays, log)
		if err := sched.AddJob(cfg.Schedules.Retention, retention); err != nil {
			return nil, fmt.Errorf("failed to register price_quote_retention job: %w", err)
		}
		instances.Retention = retention
	}

	// ==========================================
	// Local database maintenance (sqlite sink only)
	// ==========================================
	if container.PriceDB != nil {
		maintenance := reliability.NewDatabaseMaintenanceJob(container.PriceDB, cfg.DataDir, log)
		if err := sched.AddJob(cfg.Schedules.Maintenance, maintenance); err != nil {
			return nil, fmt.Errorf("failed to register database_maintenance job: %w", err)
		}
		instances.Maintenance = maintenance
	}

	log.Info().Msg("Jobs registered")
	return instances, nil
}
