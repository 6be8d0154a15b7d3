package marketdata

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/Alexander4822/Spielwiese/internal/utils"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// refreshConcurrency bounds the read-path calls running at once during RefreshPrices
const refreshConcurrency = 16

// RefreshRequest lists the symbols to refresh. Inputs are normalized and de-duplicated.
type RefreshRequest struct {
	Equities []string `json:"equities,omitempty"`
	Cryptos  []string `json:"cryptos,omitempty"`
	FxPairs  []string `json:"fxPairs,omitempty"`
}

// Empty reports whether nothing was requested
func (r RefreshRequest) Empty() bool {
	return len(r.Equities) == 0 && len(r.Cryptos) == 0 && len(r.FxPairs) == 0
}

// RefreshResult holds every value that could be served, fresh or stale
type RefreshResult struct {
	Equities []domain.Quote  `json:"equities"`
	Cryptos  []domain.Quote  `json:"cryptos"`
	Fx       []domain.FxRate `json:"fx"`
}

// Service serves quotes and rates from a TTL cache, refreshing through the provider
// with one in-flight call per cache key, and records degraded mode when it has to
// fall back to stale values.
type Service struct {
	provider Provider
	repo     domain.PriceQuoteRepository

	mu     sync.RWMutex
	quotes map[string]CacheEntry[domain.Quote]
	rates  map[string]CacheEntry[domain.FxRate]
	status domain.MarketDataStatus

	flights singleflight.Group
	now     func() time.Time
	log     zerolog.Logger
}

// NewService creates a new market data service
func NewService(provider Provider, repo domain.PriceQuoteRepository, log zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		repo:     repo,
		quotes:   make(map[string]CacheEntry[domain.Quote]),
		rates:    make(map[string]CacheEntry[domain.FxRate]),
		now:      time.Now,
		log:      log.With().Str("service", "market_data").Logger(),
	}
}

// Status returns a snapshot of the service status
func (s *Service) Status() domain.MarketDataStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status.Clone()
}

// GetOrRefreshQuote returns the quote for an equity or crypto symbol. The boolean is
// false when no value, fresh or stale, could be produced.
func (s *Service) GetOrRefreshQuote(ctx context.Context, class domain.AssetClass, symbol string) (domain.Quote, bool) {
	if class != domain.AssetClassEquity && class != domain.AssetClassCrypto {
		return domain.Quote{}, false
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return domain.Quote{}, false
	}

	return getOrRefresh(s, ctx, class, symbol, s.quotes, func(ctx context.Context) (domain.Quote, bool, error) {
		var (
			quotes []domain.Quote
			err    error
		)
		if class == domain.AssetClassEquity {
			quotes, err = s.provider.GetEquityQuotes(ctx, []string{symbol})
		} else {
			quotes, err = s.provider.GetCryptoQuotes(ctx, []string{symbol})
		}
		if err != nil {
			return domain.Quote{}, false, err
		}
		for _, q := range quotes {
			if strings.EqualFold(q.Symbol, symbol) {
				return q, true, nil
			}
		}
		return domain.Quote{}, false, nil
	})
}

// GetOrRefreshRate returns the FX rate for a pair such as "EUR/USD" or "EURUSD"
func (s *Service) GetOrRefreshRate(ctx context.Context, pair string) (domain.FxRate, bool) {
	normalized, ok := domain.NormalizePair(pair)
	if !ok {
		return domain.FxRate{}, false
	}

	return getOrRefresh(s, ctx, domain.AssetClassFX, normalized, s.rates, func(ctx context.Context) (domain.FxRate, bool, error) {
		rates, err := s.provider.GetFxRates(ctx, []string{normalized})
		if err != nil {
			return domain.FxRate{}, false, err
		}
		for _, r := range rates {
			if r.Pair == normalized {
				return r, true, nil
			}
		}
		return domain.FxRate{}, false, nil
	})
}

type flightResult[T any] struct {
	value T
	ok    bool
}

// getOrRefresh implements the per-key state machine shared by quotes and rates
func getOrRefresh[T any](
	s *Service,
	ctx context.Context,
	class domain.AssetClass,
	symbol string,
	entries map[string]CacheEntry[T],
	fetch func(ctx context.Context) (T, bool, error),
) (T, bool) {
	key := domain.CacheKey(class, symbol)

	s.mu.RLock()
	existing, hasExisting := entries[key]
	s.mu.RUnlock()

	if hasExisting && existing.Fresh(s.now()) {
		s.log.Debug().Str("key", key).Msg("Cache hit")
		return existing.Value, true
	}

	// Detached so a cancelled first caller does not fail the other waiters
	flightCtx := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(key, func() (interface{}, error) {
		return refreshKey(s, flightCtx, class, key, entries, fetch), nil
	})

	select {
	case res := <-ch:
		r := res.Val.(flightResult[T])
		return r.value, r.ok
	case <-ctx.Done():
		s.log.Debug().Str("key", key).Msg("Caller gave up waiting for refresh")
		if hasExisting {
			return existing.Value, true
		}
		var zero T
		return zero, false
	}
}

func refreshKey[T any](
	s *Service,
	ctx context.Context,
	class domain.AssetClass,
	key string,
	entries map[string]CacheEntry[T],
	fetch func(ctx context.Context) (T, bool, error),
) flightResult[T] {
	// Another flight may have completed between the caller's check and this one
	s.mu.RLock()
	existing, hasExisting := entries[key]
	s.mu.RUnlock()
	if hasExisting && existing.Fresh(s.now()) {
		return flightResult[T]{value: existing.Value, ok: true}
	}

	value, found, err := fetch(ctx)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.status.DegradedMode = true
		if hasExisting {
			reason := fmt.Sprintf("%s provider failed; serving stale cache", class.Label())
			s.status.DegradedReason = &reason
			s.log.Warn().Err(err).Str("key", key).Msg("Provider failed, serving stale cache")
			return flightResult[T]{value: existing.Value, ok: true}
		}
		reason := err.Error()
		s.status.DegradedReason = &reason
		s.log.Warn().Err(err).Str("key", key).Msg("Provider failed, no cached value")
		return flightResult[T]{}
	}

	if !found {
		s.log.Debug().Str("key", key).Msg("Provider returned no value for key")
		return flightResult[T]{}
	}

	entries[key] = CacheEntry[T]{
		Value:     value,
		UpdatedAt: now,
		ExpiresAt: now.Add(TTLFor(class)),
	}
	s.status.DegradedMode = false
	s.status.DegradedReason = nil
	refreshedAt := now
	switch class {
	case domain.AssetClassEquity:
		s.status.LastEquityRefresh = &refreshedAt
	case domain.AssetClassCrypto:
		s.status.LastCryptoRefresh = &refreshedAt
	case domain.AssetClassFX:
		s.status.LastFxRefresh = &refreshedAt
	}

	return flightResult[T]{value: value, ok: true}
}

// RefreshPrices resolves every requested symbol concurrently through the cache, then
// persists everything that could be served in one batch. Missing symbols are dropped;
// only a sink failure fails the call.
func (s *Service) RefreshPrices(ctx context.Context, req RefreshRequest) (*RefreshResult, error) {
	defer utils.OperationTimer("refresh_prices", s.log)()

	equities := utils.NormalizeSymbols(req.Equities)
	cryptos := utils.NormalizeSymbols(req.Cryptos)
	pairs := normalizePairs(req.FxPairs)

	equitySlots := make([]*domain.Quote, len(equities))
	cryptoSlots := make([]*domain.Quote, len(cryptos))
	fxSlots := make([]*domain.FxRate, len(pairs))

	var g errgroup.Group
	g.SetLimit(refreshConcurrency)

	for i, symbol := range equities {
		g.Go(func() error {
			if q, ok := s.GetOrRefreshQuote(ctx, domain.AssetClassEquity, symbol); ok {
				equitySlots[i] = &q
			}
			return nil
		})
	}
	for i, symbol := range cryptos {
		g.Go(func() error {
			if q, ok := s.GetOrRefreshQuote(ctx, domain.AssetClassCrypto, symbol); ok {
				cryptoSlots[i] = &q
			}
			return nil
		})
	}
	for i, pair := range pairs {
		g.Go(func() error {
			if r, ok := s.GetOrRefreshRate(ctx, pair); ok {
				fxSlots[i] = &r
			}
			return nil
		})
	}
	_ = g.Wait()

	result := &RefreshResult{
		Equities: compact(equitySlots),
		Cryptos:  compact(cryptoSlots),
		Fx:       compact(fxSlots),
	}

	batch := make([]domain.PersistedPriceQuote, 0, len(result.Equities)+len(result.Cryptos)+len(result.Fx))
	for _, q := range result.Equities {
		batch = append(batch, domain.QuoteToPersisted(domain.AssetClassEquity, q))
	}
	for _, q := range result.Cryptos {
		batch = append(batch, domain.QuoteToPersisted(domain.AssetClassCrypto, q))
	}
	for _, r := range result.Fx {
		batch = append(batch, domain.RateToPersisted(r))
	}

	if len(batch) > 0 && s.repo != nil {
		if err := s.repo.SaveMany(ctx, batch); err != nil {
			s.log.Error().Err(err).Int("quotes", len(batch)).Msg("Failed to persist refreshed quotes")
			return nil, fmt.Errorf("failed to persist quotes: %w", err)
		}
	}

	s.log.Info().
		Int("equities", len(result.Equities)).
		Int("cryptos", len(result.Cryptos)).
		Int("fx", len(result.Fx)).
		Msg("Prices refreshed")

	return result, nil
}

func normalizePairs(pairs []string) []string {
	seen := make(map[string]bool, len(pairs))
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		n, ok := domain.NormalizePair(p)
		if !ok || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func compact[T any](slots []*T) []T {
	out := make([]T, 0, len(slots))
	for _, v := range slots {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}
