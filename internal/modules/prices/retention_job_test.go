package prices

import (
	"context"
	"errors"
	"testing"
	"time"

	testutil "github.com/Alexander4822/Spielwiese/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPruner struct {
	cutoff time.Time
	err    error
}

func (p *recordingPruner) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return 3, p.err
}

func TestRetentionJob_Run(t *testing.T) {
	pruner := &recordingPruner{}
	job := NewRetentionJob(pruner, 90, zerolog.Nop())
	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	require.NoError(t, job.Run())
	assert.Equal(t, fixed.Add(-90*24*time.Hour), pruner.cutoff)
	assert.Equal(t, "price_quote_retention", job.Name())
}

func TestRetentionJob_PropagatesError(t *testing.T) {
	job := NewRetentionJob(&recordingPruner{err: errors.New("locked")}, 30, zerolog.Nop())
	assert.Error(t, job.Run())
}

func TestRetentionJob_WithSQLiteRepository(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())
	now := time.Now().UTC()
	require.NoError(t, repo.SaveMany(context.Background(), testutil.NewPersistedQuoteFixtures(now.Add(-120*24*time.Hour))))

	require.NoError(t, NewRetentionJob(repo, 90, zerolog.Nop()).Run())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM price_quotes").Scan(&count))
	assert.Equal(t, 0, count)
}
