// Package coingecko provides crypto spot prices in USD from the CoinGecko simple price API.
package coingecko

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

// symbolToID maps tickers to CoinGecko coin ids. Unmapped tickers are not quotable.
var symbolToID = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"BNB":  "binancecoin",
	"XRP":  "ripple",
	"ADA":  "cardano",
	"DOGE": "dogecoin",
	"AVAX": "avalanche-2",
}

var idToSymbol = func() map[string]string {
	m := make(map[string]string, len(symbolToID))
	for symbol, id := range symbolToID {
		m[id] = symbol
	}
	return m
}()

// CoinID returns the CoinGecko id for a ticker
func CoinID(symbol string) (string, bool) {
	id, ok := symbolToID[strings.ToUpper(symbol)]
	return id, ok
}

// Client for the CoinGecko simple price endpoint
type Client struct {
	baseURL string
	http    *transport.Client
	backoff reliability.Backoff
	now     func() time.Time
	log     zerolog.Logger
}

// NewClient creates a new CoinGecko client
func NewClient(backoff reliability.Backoff, log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://api.coingecko.com/api/v3/simple/price",
		http:    transport.NewClient("coingecko", nil),
		backoff: backoff,
		now:     time.Now,
		log:     log.With().Str("client", "coingecko").Logger(),
	}
}

// Name returns the provider name stamped on quotes
func (c *Client) Name() string {
	return "coingecko"
}

// GetCryptoQuotes fetches USD prices. Unmapped tickers are skipped without a request.
func (c *Client) GetCryptoQuotes(ctx context.Context, symbols []string) ([]domain.Quote, error) {
	var ids []string
	seen := make(map[string]bool)
	for _, s := range symbols {
		id, ok := CoinID(s)
		if !ok {
			c.log.Debug().Str("symbol", s).Msg("No CoinGecko mapping, skipping")
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var quotes []domain.Quote
	for _, batch := range utils.Chunk(ids, transport.BatchSize) {
		endpoint := fmt.Sprintf("%s?ids=%s&vs_currencies=usd", c.baseURL, url.QueryEscape(strings.Join(batch, ",")))

		payload, err := reliability.Retry(ctx, c.backoff, func(ctx context.Context) (map[string]map[string]float64, error) {
			var resp map[string]map[string]float64
			if err := c.http.GetJSON(ctx, endpoint, &resp); err != nil {
				return nil, err
			}
			return resp, nil
		})
		if err != nil {
			return nil, err
		}

		fetchedAt := c.now().UTC()
		for _, id := range batch {
			prices, ok := payload[id]
			if !ok {
				continue
			}
			usd, ok := prices["usd"]
			if !ok {
				continue
			}
			quotes = append(quotes, domain.Quote{
				Symbol:    idToSymbol[id],
				Price:     usd,
				Currency:  "USD",
				FetchedAt: fetchedAt,
				Provider:  c.Name(),
			})
		}
	}

	return quotes, nil
}
