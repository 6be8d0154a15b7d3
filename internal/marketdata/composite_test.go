package marketdata

import (
	"context"
	"errors"
	"testing"

	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEquityProvider struct {
	name   string
	quotes []domain.Quote
	err    error
	calls  int
}

func (p *stubEquityProvider) Name() string { return p.name }

func (p *stubEquityProvider) GetEquityQuotes(ctx context.Context, symbols []string) ([]domain.Quote, error) {
	p.calls++
	return p.quotes, p.err
}

func TestCompositeProvider_FailingPrimaryUsesFallbackOnly(t *testing.T) {
	primary := &stubEquityProvider{
		name:   "stooq",
		quotes: []domain.Quote{{Symbol: "AAPL", Price: 1}},
		err:    errors.New("timeout"),
	}
	fallback := &stubEquityProvider{name: "yahoo", quotes: []domain.Quote{{Symbol: "AAPL", Price: 2, Provider: "yahoo"}}}

	p := NewCompositeProvider(primary, fallback, nil, nil, zerolog.Nop())
	quotes, err := p.GetEquityQuotes(context.Background(), []string{"AAPL"})
	require.NoError(t, err)

	require.Len(t, quotes, 1)
	assert.Equal(t, "yahoo", quotes[0].Provider)
	assert.Equal(t, 2.0, quotes[0].Price)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestCompositeProvider_PrimarySuccessSkipsFallback(t *testing.T) {
	primary := &stubEquityProvider{name: "stooq", quotes: []domain.Quote{{Symbol: "AAPL"}}}
	fallback := &stubEquityProvider{name: "yahoo"}

	p := NewCompositeProvider(primary, fallback, nil, nil, zerolog.Nop())
	_, err := p.GetEquityQuotes(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 0, fallback.calls)
}

func TestCompositeProvider_BothFail(t *testing.T) {
	primary := &stubEquityProvider{name: "stooq", err: errors.New("primary down")}
	fallback := &stubEquityProvider{name: "yahoo", err: errors.New("fallback down")}

	p := NewCompositeProvider(primary, fallback, nil, nil, zerolog.Nop())
	_, err := p.GetEquityQuotes(context.Background(), []string{"AAPL"})
	require.Error(t, err)
	assert.Equal(t, "fallback down", err.Error())
}

func TestCompositeProvider_MissingProviders(t *testing.T) {
	p := NewCompositeProvider(nil, nil, nil, nil, zerolog.Nop())

	_, err := p.GetEquityQuotes(context.Background(), nil)
	assert.Error(t, err)
	_, err = p.GetCryptoQuotes(context.Background(), nil)
	assert.Error(t, err)
	_, err = p.GetFxRates(context.Background(), nil)
	assert.Error(t, err)
}

func TestOrderEquityProviders(t *testing.T) {
	stooq := &stubEquityProvider{name: "stooq"}
	yahoo := &stubEquityProvider{name: "yahoo"}

	primary, fallback := OrderEquityProviders("", stooq, yahoo)
	assert.Equal(t, "stooq", primary.Name())
	assert.Equal(t, "yahoo", fallback.Name())

	primary, fallback = OrderEquityProviders("yahoo", stooq, yahoo)
	assert.Equal(t, "yahoo", primary.Name())
	assert.Equal(t, "stooq", fallback.Name())
}
