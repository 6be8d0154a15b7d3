package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/marketdata"
	"github.com/Alexander4822/Spielwiese/internal/modules/epx"
	"github.com/rs/zerolog"
)

// PriceRefresher is implemented by marketdata.Service
type PriceRefresher interface {
	RefreshPrices(ctx context.Context, req marketdata.RefreshRequest) (*marketdata.RefreshResult, error)
}

// PriceRefreshJob refreshes a fixed watchlist through the market data service
type PriceRefreshJob struct {
	refresher PriceRefresher
	watchlist marketdata.RefreshRequest
	timeout   time.Duration
	log       zerolog.Logger
}

// NewPriceRefreshJob creates the prices_refresh job
func NewPriceRefreshJob(refresher PriceRefresher, watchlist marketdata.RefreshRequest, log zerolog.Logger) *PriceRefreshJob {
	return &PriceRefreshJob{
		refresher: refresher,
		watchlist: watchlist,
		timeout:   2 * time.Minute,
		log:       log.With().Str("job", "prices_refresh").Logger(),
	}
}

// Name returns the job name
func (j *PriceRefreshJob) Name() string {
	return "prices_refresh"
}

// Run refreshes the watchlist; partial results are success
func (j *PriceRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	result, err := j.refresher.RefreshPrices(ctx, j.watchlist)
	if err != nil {
		return fmt.Errorf("scheduled price refresh failed: %w", err)
	}

	requested := len(j.watchlist.Equities) + len(j.watchlist.Cryptos) + len(j.watchlist.FxPairs)
	got := len(result.Equities) + len(result.Cryptos) + len(result.Fx)
	ev := j.log.Info()
	if got < requested {
		ev = j.log.Warn()
	}
	ev.Int("requested", requested).Int("refreshed", got).Msg("Scheduled price refresh finished")
	return nil
}

// IndexIngestor is implemented by epx.Ingestor
type IndexIngestor interface {
	FetchAndPersist(ctx context.Context) epx.Result
}

// EpxRefreshJob runs one EPX ingestion. The same job type backs the startup and daily runs.
type EpxRefreshJob struct {
	name     string
	ingestor IndexIngestor
	timeout  time.Duration
	log      zerolog.Logger
}

// NewEpxRefreshJob creates an ingestion job reported under name
func NewEpxRefreshJob(name string, ingestor IndexIngestor, log zerolog.Logger) *EpxRefreshJob {
	return &EpxRefreshJob{
		name:     name,
		ingestor: ingestor,
		timeout:  5 * time.Minute,
		log:      log.With().Str("job", name).Logger(),
	}
}

// Name returns the job name
func (j *EpxRefreshJob) Name() string {
	return j.name
}

// Run never fails: a warning result is logged and the cached series stays in place
func (j *EpxRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	result := j.ingestor.FetchAndPersist(ctx)
	if result.Status != epx.StatusOK {
		j.log.Warn().
			Str("source", result.Source).
			Strs("warnings", result.Warnings).
			Int("rows", len(result.Indices)).
			Msg("EPX refresh served cached indices")
		return nil
	}

	j.log.Info().Int("rows", len(result.Indices)).Msg("EPX refresh completed")
	return nil
}
