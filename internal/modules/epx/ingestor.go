// Package epx ingests the Europace hedonic real-estate price index (EPX) and keeps
// the monthly series in a local or bucket-backed cache.
package epx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/rs/zerolog"
)

// MinHealthyRows is the smallest series a fetch may return before it is trusted
const MinHealthyRows = 6

// fallbackLoadTimeout bounds the cached read after a failed run
const fallbackLoadTimeout = 10 * time.Second

// WarnSourceUnavailable is reported when the cached series is returned instead of fresh data
const WarnSourceUnavailable = "EPX source unavailable; using cached indices"

// Result status and source values
const (
	StatusOK      = "ok"
	StatusWarning = "warning"
	SourceRemote  = "remote"
	SourceCache   = "cache"
)

// Result describes one ingestion run
type Result struct {
	Status   string            `json:"status"`
	Source   string            `json:"source"`
	Indices  []domain.EpxIndex `json:"indices"`
	Warnings []string          `json:"warnings"`
}

// Ingestor fetches the series, merges it into the store and falls back to the
// stored series on any failure
type Ingestor struct {
	alternate Source
	html      Source
	store     Store
	mu        sync.Mutex
	log       zerolog.Logger
}

// NewIngestor creates an ingestor. alternate may be nil; html is always the fallback.
func NewIngestor(alternate, html Source, store Store, log zerolog.Logger) *Ingestor {
	return &Ingestor{
		alternate: alternate,
		html:      html,
		store:     store,
		log:       log.With().Str("service", "epx_ingestor").Logger(),
	}
}

// Indices returns the stored series; read failures yield an empty series
func (i *Ingestor) Indices(ctx context.Context) []domain.EpxIndex {
	series, err := i.store.Load(ctx)
	if err != nil {
		i.log.Warn().Err(err).Msg("Failed to load cached EPX indices")
		return []domain.EpxIndex{}
	}
	return series
}

// FetchAndPersist runs one ingestion. It never returns an error: failures are
// reported as a warning result carrying the cached series.
func (i *Ingestor) FetchAndPersist(ctx context.Context) Result {
	i.mu.Lock()
	defer i.mu.Unlock()

	merged, err := i.fetchAndMerge(ctx)
	if err != nil {
		i.log.Warn().Err(err).Msg(WarnSourceUnavailable)

		// ctx may be what failed the run; the cached series is still returned
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fallbackLoadTimeout)
		defer cancel()
		return Result{
			Status:   StatusWarning,
			Source:   SourceCache,
			Indices:  i.Indices(loadCtx),
			Warnings: []string{WarnSourceUnavailable},
		}
	}

	i.log.Info().Int("rows", len(merged)).Msg("EPX indices updated")
	return Result{
		Status:   StatusOK,
		Source:   SourceRemote,
		Indices:  merged,
		Warnings: []string{},
	}
}

func (i *Ingestor) fetchAndMerge(ctx context.Context) ([]domain.EpxIndex, error) {
	incoming, err := i.fetch(ctx)
	if err != nil {
		return nil, err
	}

	// An unreadable cache is never overwritten with the incoming rows alone
	cached, err := i.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached EPX indices: %w", err)
	}

	merged := MergeByMonth(cached, incoming)
	if err := i.store.Save(ctx, merged); err != nil {
		return nil, fmt.Errorf("failed to persist EPX indices: %w", err)
	}
	return merged, nil
}

func (i *Ingestor) fetch(ctx context.Context) ([]domain.EpxIndex, error) {
	if i.alternate != nil {
		series, err := fetchHealthy(ctx, i.alternate)
		if err == nil {
			return series, nil
		}
		i.log.Warn().Err(err).Str("source", i.alternate.Name()).Msg("EPX API provider failed; falling back to HTML parser")
	}
	return fetchHealthy(ctx, i.html)
}

func fetchHealthy(ctx context.Context, src Source) ([]domain.EpxIndex, error) {
	series, err := src.FetchSeries(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s source failed: %w", src.Name(), err)
	}
	if len(series) < MinHealthyRows {
		return nil, fmt.Errorf("EPX parser health check failed: expected at least %d rows, got %d", MinHealthyRows, len(series))
	}
	return series, nil
}
