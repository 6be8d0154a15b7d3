package marketdata

import (
	"time"

	"github.com/Alexander4822/Spielwiese/internal/domain"
)

// Cache freshness per asset class
const (
	TTLEquity = 10 * time.Minute
	TTLCrypto = time.Minute
	TTLFx     = 24 * time.Hour
)

// TTLFor returns the freshness window for class
func TTLFor(class domain.AssetClass) time.Duration {
	switch class {
	case domain.AssetClassCrypto:
		return TTLCrypto
	case domain.AssetClassFX:
		return TTLFx
	default:
		return TTLEquity
	}
}

// CacheEntry holds a cached value. It is served as fresh only while now is before ExpiresAt.
type CacheEntry[T any] struct {
	Value     T
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// Fresh reports whether the entry may be served without a provider call
func (e CacheEntry[T]) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}
