package prices

import (
	"context"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/rs/zerolog"
)

// RetentionJob removes persisted quotes older than the retention window.
// It should be scheduled to run daily.
type RetentionJob struct {
	pruner    domain.PriceQuotePruner
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewRetentionJob creates a job keeping quotes for retentionDays
func NewRetentionJob(pruner domain.PriceQuotePruner, retentionDays int, log zerolog.Logger) *RetentionJob {
	return &RetentionJob{
		pruner:    pruner,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
		log:       log.With().Str("job", "price_quote_retention").Logger(),
	}
}

// Run deletes every quote whose provider timestamp is older than the window
func (j *RetentionJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := j.now().Add(-j.retention)
	deleted, err := j.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete old price quotes")
		return err
	}

	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("Price quote retention completed")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *RetentionJob) Name() string {
	return "price_quote_retention"
}
