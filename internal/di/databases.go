// Package di provides dependency injection for the price sink.
package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Alexander4822/Spielwiese/internal/config"
	"github.com/Alexander4822/Spielwiese/internal/database"
	"github.com/Alexander4822/Spielwiese/internal/modules/prices"
	"github.com/rs/zerolog"
)

// InitializePriceSink opens the backend selected by PRICE_SINK and stores it on the container
func InitializePriceSink(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	switch cfg.Sink.Backend {
	case config.SinkSQLite, "":
		db, err := database.New(database.Config{
			Path:    filepath.Join(cfg.DataDir, "prices.db"),
			Profile: database.ProfileStandard,
			Name:    "prices",
		})
		if err != nil {
			return fmt.Errorf("failed to initialize prices database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return fmt.Errorf("failed to migrate prices database: %w", err)
		}

		repo := prices.NewRepository(db.Conn(), log)
		container.PriceDB = db
		container.PriceRepo = repo
		container.PricePruner = repo

	case config.SinkPostgres:
		repo, err := prices.NewPostgresRepository(ctx, cfg.Sink.PostgresDSN, log)
		if err != nil {
			return fmt.Errorf("failed to initialize postgres sink: %w", err)
		}
		container.PriceRepo = repo
		container.PricePruner = repo
		container.closers = append(container.closers, repo)

	case config.SinkRedis:
		repo, err := prices.NewRedisRepository(ctx, prices.RedisOptions{
			Addr:     cfg.Sink.RedisAddr,
			Password: cfg.Sink.RedisPassword,
			DB:       cfg.Sink.RedisDB,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to initialize redis sink: %w", err)
		}
		container.PriceRepo = repo
		container.PricePruner = repo
		container.closers = append(container.closers, repo)

	case config.SinkMemory:
		repo := prices.NewMemoryRepository()
		container.PriceRepo = repo
		container.PricePruner = repo

	default:
		return fmt.Errorf("unknown price sink %q", cfg.Sink.Backend)
	}

	log.Info().Str("sink", cfg.Sink.Backend).Msg("Price sink initialized")
	return nil
}
