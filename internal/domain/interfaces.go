package domain

import (
	"context"
	"time"
)

// EquityQuoteProvider fetches equity quotes. Symbols missing from the result were not quotable.
type EquityQuoteProvider interface {
	Name() string
	GetEquityQuotes(ctx context.Context, symbols []string) ([]Quote, error)
}

// CryptoQuoteProvider fetches crypto quotes
type CryptoQuoteProvider interface {
	Name() string
	GetCryptoQuotes(ctx context.Context, symbols []string) ([]Quote, error)
}

// FxRateProvider fetches exchange rates for 6-letter pairs
type FxRateProvider interface {
	Name() string
	GetFxRates(ctx context.Context, pairs []string) ([]FxRate, error)
}

// PriceQuoteRepository is the persistence sink for normalized quotes
type PriceQuoteRepository interface {
	// SaveMany upserts quotes; last write wins per (asset class, symbol)
	SaveMany(ctx context.Context, quotes []PersistedPriceQuote) error

	// GetLatestBySymbols returns quotes keyed by "assetClass:SYMBOL" across all classes
	GetLatestBySymbols(ctx context.Context, symbols []string) (map[string]PersistedPriceQuote, error)
}

// PriceQuotePruner is implemented by sinks that support retention
type PriceQuotePruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
