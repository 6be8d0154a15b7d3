// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// AssetClass identifies which provider family and TTL a symbol belongs to
type AssetClass string

const (
	AssetClassEquity AssetClass = "equity"
	AssetClassCrypto AssetClass = "crypto"
	AssetClassFX     AssetClass = "fx"
)

// Valid reports whether the class is one of the known asset classes
func (c AssetClass) Valid() bool {
	switch c {
	case AssetClassEquity, AssetClassCrypto, AssetClassFX:
		return true
	}
	return false
}

// Label is the human readable class name used in degraded-mode messages
func (c AssetClass) Label() string {
	if c == AssetClassFX {
		return "FX"
	}
	return string(c)
}

// Quote is a normalized price for an equity or crypto symbol
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	FetchedAt time.Time `json:"fetchedAt"`
	Provider  string    `json:"provider"`
}

// FxRate is a normalized exchange rate; Pair is the 6-letter base+quote code (EURUSD)
type FxRate struct {
	Pair      string    `json:"pair"`
	Rate      float64   `json:"rate"`
	FetchedAt time.Time `json:"fetchedAt"`
	Provider  string    `json:"provider"`
}

// NormalizePair turns "eur/usd", "EUR-USD" or "eurusd" into "EURUSD".
// The second return value is false when the result is not 6 letters.
func NormalizePair(pair string) (string, bool) {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(pair)) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	return out, len(out) == 6
}

// CacheKey builds the per-key identity used for caching, dedup and persistence
func CacheKey(class AssetClass, symbol string) string {
	return fmt.Sprintf("%s:%s", class, symbol)
}

// MarketDataStatus describes the freshness and degradation of the market data service
type MarketDataStatus struct {
	LastEquityRefresh *time.Time `json:"lastEquityRefresh,omitempty"`
	LastCryptoRefresh *time.Time `json:"lastCryptoRefresh,omitempty"`
	LastFxRefresh     *time.Time `json:"lastFxRefresh,omitempty"`
	DegradedMode      bool       `json:"degradedMode"`
	DegradedReason    *string    `json:"degradedReason,omitempty"`
}

// Clone returns a deep copy so readers never share pointers with the writer
func (s MarketDataStatus) Clone() MarketDataStatus {
	out := MarketDataStatus{DegradedMode: s.DegradedMode}
	out.LastEquityRefresh = cloneTime(s.LastEquityRefresh)
	out.LastCryptoRefresh = cloneTime(s.LastCryptoRefresh)
	out.LastFxRefresh = cloneTime(s.LastFxRefresh)
	if s.DegradedReason != nil {
		r := *s.DegradedReason
		out.DegradedReason = &r
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// PersistedPriceQuote is the row written to the price sink.
// Last write wins per (AssetClass, Symbol).
type PersistedPriceQuote struct {
	Symbol     string     `json:"symbol" msgpack:"symbol"`
	AssetClass AssetClass `json:"assetClass" msgpack:"asset_class"`
	Price      float64    `json:"price" msgpack:"price"`
	Currency   string     `json:"currency" msgpack:"currency"`
	Provider   string     `json:"provider" msgpack:"provider"`
	Timestamp  time.Time  `json:"timestamp" msgpack:"timestamp"`
}

// Key returns "assetClass:SYMBOL"
func (p PersistedPriceQuote) Key() string {
	return CacheKey(p.AssetClass, p.Symbol)
}

// QuoteToPersisted converts a quote fetched for the given class
func QuoteToPersisted(class AssetClass, q Quote) PersistedPriceQuote {
	return PersistedPriceQuote{
		Symbol:     q.Symbol,
		AssetClass: class,
		Price:      q.Price,
		Currency:   q.Currency,
		Provider:   q.Provider,
		Timestamp:  q.FetchedAt,
	}
}

// RateToPersisted converts an FX rate. The quote currency of the pair is stored as currency.
func RateToPersisted(r FxRate) PersistedPriceQuote {
	currency := ""
	if len(r.Pair) == 6 {
		currency = r.Pair[3:]
	}
	return PersistedPriceQuote{
		Symbol:     r.Pair,
		AssetClass: AssetClassFX,
		Price:      r.Rate,
		Currency:   currency,
		Provider:   r.Provider,
		Timestamp:  r.FetchedAt,
	}
}

// EpxIndex is one month of the Europace hedonic house price index
type EpxIndex struct {
	Month         string  `json:"month"` // YYYY-MM
	Apartments    float64 `json:"apartments"`
	ExistingHomes float64 `json:"existingHomes"`
	NewHomes      float64 `json:"newHomes"`
}
