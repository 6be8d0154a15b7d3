package yahoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/Alexander4822/Spielwiese/internal/reliability"
	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// priceFetcher returns the current price for one Yahoo symbol
type priceFetcher func(symbol string) (float64, error)

// NativeClient fetches equity quotes through go-yfinance, one ticker at a time
type NativeClient struct {
	fetch   priceFetcher
	backoff reliability.Backoff
	now     func() time.Time
	log     zerolog.Logger
}

// NewNativeClient creates a new go-yfinance backed client
func NewNativeClient(backoff reliability.Backoff, log zerolog.Logger) *NativeClient {
	return &NativeClient{
		fetch:   fetchTickerPrice,
		backoff: backoff,
		now:     time.Now,
		log:     log.With().Str("client", "yahoo-native").Logger(),
	}
}

// Name returns the provider name stamped on quotes
func (c *NativeClient) Name() string {
	return "yahoo"
}

// GetEquityQuotes fetches each symbol with its own retry loop. A symbol whose
// price cannot be determined is dropped; only an aborted context fails the call.
func (c *NativeClient) GetEquityQuotes(ctx context.Context, symbols []string) ([]domain.Quote, error) {
	var quotes []domain.Quote
	var lastErr error

	for _, symbol := range symbols {
		yahooSymbol := strings.ToUpper(strings.TrimSpace(symbol))

		// go-yfinance ignores contexts; Retry abandons an attempt at its deadline
		price, err := reliability.Retry(ctx, c.backoff, func(ctx context.Context) (float64, error) {
			return c.fetch(yahooSymbol)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Warn().Err(err).Str("symbol", yahooSymbol).Msg("Failed to fetch quote")
			lastErr = err
			continue
		}

		quotes = append(quotes, domain.Quote{
			Symbol:    yahooSymbol,
			Price:     price,
			Currency:  "USD",
			FetchedAt: c.now().UTC(),
			Provider:  c.Name(),
		})
	}

	// Nothing quotable at all is a provider failure so the composite can fall back
	if len(quotes) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return quotes, nil
}

// fetchTickerPrice prefers the regular market price, then pre/post market, then info
func fetchTickerPrice(symbol string) (float64, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	quote, err := t.Quote()
	if err == nil && quote != nil {
		switch {
		case quote.RegularMarketPrice > 0:
			return quote.RegularMarketPrice, nil
		case quote.PreMarketPrice > 0:
			return quote.PreMarketPrice, nil
		case quote.PostMarketPrice > 0:
			return quote.PostMarketPrice, nil
		}
	}

	info, err := t.Info()
	if err == nil && info != nil {
		if info.CurrentPrice > 0 {
			return info.CurrentPrice, nil
		}
		if info.RegularMarketPreviousClose > 0 {
			return info.RegularMarketPreviousClose, nil
		}
	}

	return 0, fmt.Errorf("no valid price for %s", symbol)
}
