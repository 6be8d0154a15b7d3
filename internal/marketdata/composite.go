// Package marketdata caches quotes and FX rates in front of unreliable providers.
package marketdata

import (
	"context"
	"fmt"

	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/rs/zerolog"
)

// Provider is everything the service needs from the outside world
type Provider interface {
	GetEquityQuotes(ctx context.Context, symbols []string) ([]domain.Quote, error)
	GetCryptoQuotes(ctx context.Context, symbols []string) ([]domain.Quote, error)
	GetFxRates(ctx context.Context, pairs []string) ([]domain.FxRate, error)
}

// CompositeProvider routes each asset class to its providers.
// Equities fail over from primary to fallback; crypto and FX have a single provider each.
type CompositeProvider struct {
	equityPrimary  domain.EquityQuoteProvider
	equityFallback domain.EquityQuoteProvider
	crypto         domain.CryptoQuoteProvider
	fx             domain.FxRateProvider
	log            zerolog.Logger
}

// NewCompositeProvider creates a composite provider. equityFallback may be nil.
func NewCompositeProvider(
	equityPrimary domain.EquityQuoteProvider,
	equityFallback domain.EquityQuoteProvider,
	crypto domain.CryptoQuoteProvider,
	fx domain.FxRateProvider,
	log zerolog.Logger,
) *CompositeProvider {
	return &CompositeProvider{
		equityPrimary:  equityPrimary,
		equityFallback: equityFallback,
		crypto:         crypto,
		fx:             fx,
		log:            log.With().Str("service", "composite_provider").Logger(),
	}
}

// OrderEquityProviders returns (primary, fallback). "yahoo" as premium provider puts
// Yahoo first; anything else keeps Stooq first.
func OrderEquityProviders(premium string, stooq, yahoo domain.EquityQuoteProvider) (domain.EquityQuoteProvider, domain.EquityQuoteProvider) {
	if premium == "yahoo" {
		return yahoo, stooq
	}
	return stooq, yahoo
}

// GetEquityQuotes tries the primary provider and, on any error, asks the fallback
// for the whole list. Results of the two providers are never merged.
func (p *CompositeProvider) GetEquityQuotes(ctx context.Context, symbols []string) ([]domain.Quote, error) {
	if p.equityPrimary == nil {
		return nil, fmt.Errorf("no equity provider configured")
	}

	quotes, err := p.equityPrimary.GetEquityQuotes(ctx, symbols)
	if err == nil {
		return quotes, nil
	}
	if p.equityFallback == nil {
		return nil, err
	}

	p.log.Warn().
		Err(err).
		Str("primary", p.equityPrimary.Name()).
		Str("fallback", p.equityFallback.Name()).
		Msg("Primary equity provider failed, trying fallback")

	return p.equityFallback.GetEquityQuotes(ctx, symbols)
}

// GetCryptoQuotes delegates to the crypto provider
func (p *CompositeProvider) GetCryptoQuotes(ctx context.Context, symbols []string) ([]domain.Quote, error) {
	if p.crypto == nil {
		return nil, fmt.Errorf("no crypto provider configured")
	}
	return p.crypto.GetCryptoQuotes(ctx, symbols)
}

// GetFxRates delegates to the FX provider
func (p *CompositeProvider) GetFxRates(ctx context.Context, pairs []string) ([]domain.FxRate, error) {
	if p.fx == nil {
		return nil, fmt.Errorf("no FX provider configured")
	}
	return p.fx.GetFxRates(ctx, pairs)
}
