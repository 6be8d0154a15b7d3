// Package yahoo provides equity quotes from Yahoo Finance, over the public quote
// endpoint or through go-yfinance.
package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/clients/transport"
	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/Alexander4822/Spielwiese/internal/reliability"
	"github.com/Alexander4822/Spielwiese/internal/utils"
	"github.com/rs/zerolog"
)

// quoteResponse mirrors the v7 finance/quote payload
type quoteResponse struct {
	QuoteResponse struct {
		Result []quoteRow `json:"result"`
	} `json:"quoteResponse"`
}

type quoteRow struct {
	Symbol             string   `json:"symbol"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	Currency           string   `json:"currency"`
	RegularMarketTime  *int64   `json:"regularMarketTime"`
}

// Client for the Yahoo Finance v7 quote endpoint
type Client struct {
	baseURL string
	http    *transport.Client
	backoff reliability.Backoff
	now     func() time.Time
	log     zerolog.Logger
}

// NewClient creates a new Yahoo HTTP client
func NewClient(backoff reliability.Backoff, log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://query1.finance.yahoo.com/v7/finance/quote",
		http:    transport.NewClient("yahoo", nil),
		backoff: backoff,
		now:     time.Now,
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// Name returns the provider name stamped on quotes
func (c *Client) Name() string {
	return "yahoo"
}

// GetEquityQuotes fetches quotes in batches. Rows without a numeric price are dropped.
func (c *Client) GetEquityQuotes(ctx context.Context, symbols []string) ([]domain.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	var quotes []domain.Quote
	for _, batch := range utils.Chunk(symbols, transport.BatchSize) {
		endpoint := fmt.Sprintf("%s?symbols=%s", c.baseURL, url.QueryEscape(strings.Join(batch, ",")))

		c.log.Debug().Int("symbols", len(batch)).Msg("Fetching quotes")

		payload, err := reliability.Retry(ctx, c.backoff, func(ctx context.Context) (*quoteResponse, error) {
			var resp quoteResponse
			if err := c.http.GetJSON(ctx, endpoint, &resp); err != nil {
				return nil, err
			}
			return &resp, nil
		})
		if err != nil {
			return nil, err
		}

		for _, row := range payload.QuoteResponse.Result {
			if row.RegularMarketPrice == nil || row.Symbol == "" {
				continue
			}

			currency := row.Currency
			if currency == "" {
				currency = "USD"
			}
			fetchedAt := c.now().UTC()
			if row.RegularMarketTime != nil {
				fetchedAt = time.Unix(*row.RegularMarketTime, 0).UTC()
			}

			quotes = append(quotes, domain.Quote{
				Symbol:    strings.ToUpper(row.Symbol),
				Price:     *row.RegularMarketPrice,
				Currency:  currency,
				FetchedAt: fetchedAt,
				Provider:  c.Name(),
			})
		}
	}

	return quotes, nil
}
