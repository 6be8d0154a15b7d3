package prices

import (
	"context"
	"sync"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/Alexander4822/Spielwiese/internal/utils"
)

// MemoryRepository keeps quotes in process memory
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]domain.PersistedPriceQuote
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]domain.PersistedPriceQuote)}
}

// SaveMany stores quotes; last write wins per key
func (r *MemoryRepository) SaveMany(ctx context.Context, quotes []domain.PersistedPriceQuote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range quotes {
		r.store[q.Key()] = q
	}
	return nil
}

// GetLatestBySymbols returns quotes for symbols across all asset classes
func (r *MemoryRepository) GetLatestBySymbols(ctx context.Context, symbols []string) (map[string]domain.PersistedPriceQuote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]domain.PersistedPriceQuote)
	for _, s := range utils.NormalizeSymbols(symbols) {
		for _, class := range assetClasses {
			key := domain.CacheKey(class, s)
			if q, ok := r.store[key]; ok {
				result[key] = q
			}
		}
	}
	return result, nil
}

// DeleteOlderThan removes quotes timestamped before cutoff
func (r *MemoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for key, q := range r.store {
		if q.Timestamp.Before(cutoff) {
			delete(r.store, key)
			deleted++
		}
	}
	return deleted, nil
}
