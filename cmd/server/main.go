// Package main is the entry point for the Spielwiese market data and valuation service.
// It serves cached equity, crypto and FX quotes, keeps the EPX hedonic house price index
// up to date, and computes index-linked real-estate valuations.
//
// Startup sequence:
// 1. Load configuration from environment variables (.env supported)
// 2. Initialize logging
// 3. Wire dependencies via the DI container (price sink, providers, services, jobs)
// 4. Start the scheduler and run the startup EPX ingestion in the background
// 5. Start the HTTP server
// 6. Wait for a shutdown signal and stop everything gracefully
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/config"
	"github.com/Alexander4822/Spielwiese/internal/di"
	"github.com/Alexander4822/Spielwiese/internal/scheduler"
	"github.com/Alexander4822/Spielwiese/internal/server"
	"github.com/Alexander4822/Spielwiese/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Fallback logger so the configuration error is still visible
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "spielwiese",
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("price_sink", cfg.Sink.Backend).
		Str("epx_cache", cfg.Epx.CacheBackend).
		Msg("Starting Spielwiese")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire dependencies. The scheduler must exist first so jobs can register on it.
	sched := scheduler.New(log)

	wireCtx, wireCancel := context.WithTimeout(ctx, 30*time.Second)
	container, jobs, err := di.Wire(wireCtx, cfg, sched, log)
	wireCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	sched.Start()

	// The startup ingestion may take a while when the source is slow; it never blocks serving
	go func() {
		if err := sched.RunNow(jobs.EpxStartup); err != nil {
			log.Error().Err(err).Msg("Startup EPX ingestion failed")
		}
	}()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Container: container,
		Jobs:      sched,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Block until SIGINT or SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	// In-flight requests get up to 10 seconds
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Waits for running jobs before the sink is closed
	sched.Stop()

	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close price sink")
	}

	log.Info().Msg("Server stopped")
}
