package testing

import (
	"context"
	"sync"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/domain"
)

// MockEquityProvider is a mock implementation of domain.EquityQuoteProvider
type MockEquityProvider struct {
	mu     sync.Mutex
	name   string
	quotes map[string]domain.Quote
	err    error
	calls  int
}

// NewMockEquityProvider creates a mock provider reporting name
func NewMockEquityProvider(name string) *MockEquityProvider {
	return &MockEquityProvider{name: name, quotes: make(map[string]domain.Quote)}
}

// SetQuotes sets the quotes to return, keyed by symbol
func (m *MockEquityProvider) SetQuotes(quotes ...domain.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range quotes {
		m.quotes[q.Symbol] = q
	}
}

// SetError sets the error to return
func (m *MockEquityProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times GetEquityQuotes was invoked
func (m *MockEquityProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Name returns the provider name
func (m *MockEquityProvider) Name() string {
	return m.name
}

// GetEquityQuotes returns the configured quotes for known symbols, stamped with the provider name
func (m *MockEquityProvider) GetEquityQuotes(ctx context.Context, symbols []string) ([]domain.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Quote, 0, len(symbols))
	for _, s := range symbols {
		if q, ok := m.quotes[s]; ok {
			q.Provider = m.name
			out = append(out, q)
		}
	}
	return out, nil
}

// MockCryptoProvider is a mock implementation of domain.CryptoQuoteProvider
type MockCryptoProvider struct {
	*MockEquityProvider
}

// NewMockCryptoProvider creates a mock crypto provider
func NewMockCryptoProvider(name string) *MockCryptoProvider {
	return &MockCryptoProvider{MockEquityProvider: NewMockEquityProvider(name)}
}

// GetCryptoQuotes returns the configured quotes for known symbols
func (m *MockCryptoProvider) GetCryptoQuotes(ctx context.Context, symbols []string) ([]domain.Quote, error) {
	return m.GetEquityQuotes(ctx, symbols)
}

// MockFxProvider is a mock implementation of domain.FxRateProvider
type MockFxProvider struct {
	mu    sync.Mutex
	rates map[string]float64
	err   error
	calls int
}

// NewMockFxProvider creates a mock provider with the given pair rates
func NewMockFxProvider(rates map[string]float64) *MockFxProvider {
	return &MockFxProvider{rates: rates}
}

// SetError sets the error to return
func (m *MockFxProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times GetFxRates was invoked
func (m *MockFxProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Name returns the provider name
func (m *MockFxProvider) Name() string {
	return "mock-fx"
}

// GetFxRates returns the configured rates for known pairs
func (m *MockFxProvider) GetFxRates(ctx context.Context, pairs []string) ([]domain.FxRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.FxRate, 0, len(pairs))
	for _, p := range pairs {
		if r, ok := m.rates[p]; ok {
			out = append(out, domain.FxRate{Pair: p, Rate: r, FetchedAt: time.Now().UTC(), Provider: "mock-fx"})
		}
	}
	return out, nil
}

// MockPriceQuoteRepository is a mock implementation of domain.PriceQuoteRepository
type MockPriceQuoteRepository struct {
	mu      sync.Mutex
	batches [][]domain.PersistedPriceQuote
	err     error
}

// NewMockPriceQuoteRepository creates an empty mock repository
func NewMockPriceQuoteRepository() *MockPriceQuoteRepository {
	return &MockPriceQuoteRepository{}
}

// SetError sets the error returned by SaveMany
func (m *MockPriceQuoteRepository) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Batches returns every batch passed to SaveMany
func (m *MockPriceQuoteRepository) Batches() [][]domain.PersistedPriceQuote {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]domain.PersistedPriceQuote(nil), m.batches...)
}

// SaveMany records the batch
func (m *MockPriceQuoteRepository) SaveMany(ctx context.Context, quotes []domain.PersistedPriceQuote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, quotes)
	return nil
}

// GetLatestBySymbols returns the last recorded quote per key for symbols
func (m *MockPriceQuoteRepository) GetLatestBySymbols(ctx context.Context, symbols []string) (map[string]domain.PersistedPriceQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}
	out := make(map[string]domain.PersistedPriceQuote)
	for _, batch := range m.batches {
		for _, q := range batch {
			if wanted[q.Symbol] {
				out[q.Key()] = q
			}
		}
	}
	return out, nil
}
