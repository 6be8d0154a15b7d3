// Package di provides dependency injection wiring and initialization.
package di

import (
	"context"
	"fmt"

	"github.com/Alexander4822/Spielwiese/internal/config"
	"github.com/Alexander4822/Spielwiese/internal/scheduler"
	"github.com/rs/zerolog"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Open the price sink
// 2. Initialize clients and services
// 3. Register jobs with sched
func Wire(ctx context.Context, cfg *config.Config, sched *scheduler.Scheduler, log zerolog.Logger) (*Container, *JobInstances, error) {
	container := &Container{}

	// Step 1: Price sink
	if err := InitializePriceSink(ctx, container, cfg, log); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize price sink: %w", err)
	}

	// Step 2: Services
	if err := InitializeServices(ctx, container, cfg, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Step 3: Jobs
	jobs, err := RegisterJobs(container, cfg, sched, log)
	if err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, jobs, nil
}
