package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu          sync.Mutex
	equityCalls int
	cryptoCalls int
	fxCalls     int
	err         error
	gate        chan struct{}
	prices      map[string]float64
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{prices: map[string]float64{
		"AAPL": 239.07, "MSFT": 393.31, "BTC": 86250.5, "EURUSD": 1.083,
	}}
}

func (p *fakeProvider) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *fakeProvider) calls() (int, int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.equityCalls, p.cryptoCalls, p.fxCalls
}

func (p *fakeProvider) quotes(symbols []string, provider string) ([]domain.Quote, error) {
	p.mu.Lock()
	err := p.err
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var out []domain.Quote
	for _, s := range symbols {
		if price, ok := p.prices[s]; ok {
			out = append(out, domain.Quote{Symbol: s, Price: price, Currency: "USD", Provider: provider})
		}
	}
	return out, nil
}

func (p *fakeProvider) GetEquityQuotes(ctx context.Context, symbols []string) ([]domain.Quote, error) {
	p.mu.Lock()
	p.equityCalls++
	gate := p.gate
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return p.quotes(symbols, "stooq")
}

func (p *fakeProvider) GetCryptoQuotes(ctx context.Context, symbols []string) ([]domain.Quote, error) {
	p.mu.Lock()
	p.cryptoCalls++
	p.mu.Unlock()
	return p.quotes(symbols, "coingecko")
}

func (p *fakeProvider) GetFxRates(ctx context.Context, pairs []string) ([]domain.FxRate, error) {
	p.mu.Lock()
	p.fxCalls++
	err := p.err
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var out []domain.FxRate
	for _, pair := range pairs {
		if rate, ok := p.prices[pair]; ok {
			out = append(out, domain.FxRate{Pair: pair, Rate: rate, Provider: "ecb"})
		}
	}
	return out, nil
}

type fakeRepo struct {
	mu    sync.Mutex
	saved []domain.PersistedPriceQuote
	err   error
}

func (r *fakeRepo) SaveMany(ctx context.Context, quotes []domain.PersistedPriceQuote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, quotes...)
	return nil
}

func (r *fakeRepo) GetLatestBySymbols(ctx context.Context, symbols []string) (map[string]domain.PersistedPriceQuote, error) {
	return nil, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(p Provider, repo domain.PriceQuoteRepository) (*Service, *testClock) {
	clock := &testClock{now: time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)}
	s := NewService(p, repo, zerolog.Nop())
	s.now = clock.Now
	return s, clock
}

func TestGetOrRefreshQuote_ServesFreshCacheWithoutProviderCall(t *testing.T) {
	provider := newFakeProvider()
	s, clock := newTestService(provider, nil)
	ctx := context.Background()

	q, ok := s.GetOrRefreshQuote(ctx, domain.AssetClassEquity, "aapl")
	require.True(t, ok)
	assert.Equal(t, 239.07, q.Price)

	clock.Advance(TTLEquity - time.Second)
	_, ok = s.GetOrRefreshQuote(ctx, domain.AssetClassEquity, "AAPL")
	require.True(t, ok)

	equityCalls, _, _ := provider.calls()
	assert.Equal(t, 1, equityCalls)

	clock.Advance(2 * time.Second)
	_, ok = s.GetOrRefreshQuote(ctx, domain.AssetClassEquity, "AAPL")
	require.True(t, ok)

	equityCalls, _, _ = provider.calls()
	assert.Equal(t, 2, equityCalls)
}

func TestGetOrRefreshQuote_CryptoTTLIsOneMinute(t *testing.T) {
	provider := newFakeProvider()
	s, clock := newTestService(provider, nil)
	ctx := context.Background()

	_, ok := s.GetOrRefreshQuote(ctx, domain.AssetClassCrypto, "BTC")
	require.True(t, ok)
	clock.Advance(time.Minute)
	_, ok = s.GetOrRefreshQuote(ctx, domain.AssetClassCrypto, "BTC")
	require.True(t, ok)

	_, cryptoCalls, _ := provider.calls()
	assert.Equal(t, 2, cryptoCalls)
}

func TestGetOrRefreshQuote_ConcurrentCallersShareOneProviderCall(t *testing.T) {
	provider := newFakeProvider()
	provider.gate = make(chan struct{})
	s, _ := newTestService(provider, nil)

	const callers = 10
	var wg sync.WaitGroup
	results := make([]domain.Quote, callers)
	oks := make([]bool, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], oks[i] = s.GetOrRefreshQuote(context.Background(), domain.AssetClassEquity, "MSFT")
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(provider.gate)
	wg.Wait()

	equityCalls, _, _ := provider.calls()
	assert.Equal(t, 1, equityCalls)
	for i := 0; i < callers; i++ {
		assert.True(t, oks[i])
		assert.Equal(t, 393.31, results[i].Price)
	}
}

func TestGetOrRefreshQuote_FailureWithStaleEntryServesStale(t *testing.T) {
	provider := newFakeProvider()
	s, clock := newTestService(provider, nil)
	ctx := context.Background()

	_, ok := s.GetOrRefreshQuote(ctx, domain.AssetClassEquity, "AAPL")
	require.True(t, ok)
	require.NotNil(t, s.Status().LastEquityRefresh)

	clock.Advance(TTLEquity + time.Minute)
	provider.setErr(errors.New("stooq responded with 503"))

	q, ok := s.GetOrRefreshQuote(ctx, domain.AssetClassEquity, "AAPL")
	require.True(t, ok)
	assert.Equal(t, 239.07, q.Price)

	status := s.Status()
	assert.True(t, status.DegradedMode)
	require.NotNil(t, status.DegradedReason)
	assert.Equal(t, "equity provider failed; serving stale cache", *status.DegradedReason)

	// recovery clears the degraded flag
	provider.setErr(nil)
	_, ok = s.GetOrRefreshQuote(ctx, domain.AssetClassEquity, "AAPL")
	require.True(t, ok)
	status = s.Status()
	assert.False(t, status.DegradedMode)
	assert.Nil(t, status.DegradedReason)
}

func TestGetOrRefreshQuote_FailureWithoutEntry(t *testing.T) {
	provider := newFakeProvider()
	provider.setErr(errors.New("network unreachable"))
	s, _ := newTestService(provider, nil)

	_, ok := s.GetOrRefreshQuote(context.Background(), domain.AssetClassEquity, "AAPL")
	assert.False(t, ok)

	status := s.Status()
	assert.True(t, status.DegradedMode)
	require.NotNil(t, status.DegradedReason)
	assert.Equal(t, "network unreachable", *status.DegradedReason)
	assert.Nil(t, status.LastEquityRefresh)
}

func TestGetOrRefreshQuote_UnknownSymbolLeavesStatusUntouched(t *testing.T) {
	s, _ := newTestService(newFakeProvider(), nil)

	_, ok := s.GetOrRefreshQuote(context.Background(), domain.AssetClassCrypto, "PEPE")
	assert.False(t, ok)
	assert.Equal(t, domain.MarketDataStatus{}, s.Status())
}

func TestGetOrRefreshRate_StaleReasonNamesFX(t *testing.T) {
	provider := newFakeProvider()
	s, clock := newTestService(provider, nil)
	ctx := context.Background()

	r, ok := s.GetOrRefreshRate(ctx, "EUR/USD")
	require.True(t, ok)
	assert.Equal(t, "EURUSD", r.Pair)

	clock.Advance(TTLFx)
	provider.setErr(errors.New("ecb down"))

	_, ok = s.GetOrRefreshRate(ctx, "eurusd")
	require.True(t, ok)
	require.NotNil(t, s.Status().DegradedReason)
	assert.Equal(t, "FX provider failed; serving stale cache", *s.Status().DegradedReason)

	_, _, fxCalls := provider.calls()
	assert.Equal(t, 2, fxCalls)
}

func TestGetOrRefreshQuote_CancelledWaiterGetsStaleValue(t *testing.T) {
	provider := newFakeProvider()
	s, clock := newTestService(provider, nil)

	_, ok := s.GetOrRefreshQuote(context.Background(), domain.AssetClassEquity, "AAPL")
	require.True(t, ok)
	clock.Advance(TTLEquity)

	provider.mu.Lock()
	provider.gate = make(chan struct{})
	provider.prices["AAPL"] = 250
	provider.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	q, ok := s.GetOrRefreshQuote(ctx, domain.AssetClassEquity, "AAPL")
	require.True(t, ok)
	assert.Equal(t, 239.07, q.Price)

	// the shared refresh keeps running and lands in the cache
	close(provider.gate)
	assert.Eventually(t, func() bool {
		q, ok := s.GetOrRefreshQuote(context.Background(), domain.AssetClassEquity, "AAPL")
		return ok && q.Price == 250
	}, time.Second, 10*time.Millisecond)
}

func TestRefreshPrices_PersistsBatchInRequestOrder(t *testing.T) {
	provider := newFakeProvider()
	repo := &fakeRepo{}
	s, _ := newTestService(provider, repo)

	result, err := s.RefreshPrices(context.Background(), RefreshRequest{
		Equities: []string{"msft", "AAPL", "NOPE", "aapl"},
		Cryptos:  []string{"BTC"},
		FxPairs:  []string{"EUR/USD", "bad"},
	})
	require.NoError(t, err)

	require.Len(t, result.Equities, 2)
	assert.Equal(t, "MSFT", result.Equities[0].Symbol)
	assert.Equal(t, "AAPL", result.Equities[1].Symbol)
	require.Len(t, result.Cryptos, 1)
	require.Len(t, result.Fx, 1)

	require.Len(t, repo.saved, 4)
	assert.Equal(t, "equity:MSFT", repo.saved[0].Key())
	assert.Equal(t, "crypto:BTC", repo.saved[2].Key())
	assert.Equal(t, "fx:EURUSD", repo.saved[3].Key())
	assert.Equal(t, "USD", repo.saved[3].Currency)
}

func TestRefreshPrices_PartialResultIsSuccess(t *testing.T) {
	provider := newFakeProvider()
	provider.setErr(errors.New("all providers down"))
	s, _ := newTestService(provider, &fakeRepo{})

	result, err := s.RefreshPrices(context.Background(), RefreshRequest{Equities: []string{"AAPL"}})
	require.NoError(t, err)
	assert.Empty(t, result.Equities)
	assert.NotNil(t, result.Equities)
	assert.True(t, s.Status().DegradedMode)
}

func TestRefreshPrices_SinkFailureFailsCall(t *testing.T) {
	s, _ := newTestService(newFakeProvider(), &fakeRepo{err: errors.New("disk full")})

	_, err := s.RefreshPrices(context.Background(), RefreshRequest{Equities: []string{"AAPL"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
