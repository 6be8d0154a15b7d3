// Package ecb provides FX rates derived from the European Central Bank daily reference table.
package ecb

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/clients/transport"
	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/Alexander4822/Spielwiese/internal/reliability"
	"github.com/rs/zerolog"
)

// envelope mirrors eurofxref-daily.xml: Envelope > Cube > Cube[time] > Cube[currency, rate]
type envelope struct {
	Cube struct {
		Days []struct {
			Time  string `xml:"time,attr"`
			Rates []struct {
				Currency string `xml:"currency,attr"`
				Rate     string `xml:"rate,attr"`
			} `xml:"Cube"`
		} `xml:"Cube"`
	} `xml:"Cube"`
}

// Client for the ECB euro foreign exchange reference rates
type Client struct {
	baseURL string
	http    *transport.Client
	backoff reliability.Backoff
	now     func() time.Time
	log     zerolog.Logger
}

// NewClient creates a new ECB client
func NewClient(backoff reliability.Backoff, log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml",
		http:    transport.NewClient("ecb", nil),
		backoff: backoff,
		now:     time.Now,
		log:     log.With().Str("client", "ecb").Logger(),
	}
}

// Name returns the provider name stamped on rates
func (c *Client) Name() string {
	return "ecb"
}

// GetFxRates derives cross rates as quotePerEur / basePerEur.
// Pairs with a wrong length or a currency missing from the table are dropped.
func (c *Client) GetFxRates(ctx context.Context, pairs []string) ([]domain.FxRate, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	ratesByEur, err := reliability.Retry(ctx, c.backoff, func(ctx context.Context) (map[string]float64, error) {
		body, err := c.http.GetBytes(ctx, c.baseURL, "application/xml")
		if err != nil {
			return nil, err
		}
		return parseReferenceRates(body)
	})
	if err != nil {
		return nil, err
	}

	now := c.now().UTC()
	var out []domain.FxRate
	for _, pair := range pairs {
		normalized, ok := domain.NormalizePair(pair)
		if !ok {
			c.log.Debug().Str("pair", pair).Msg("Dropping malformed pair")
			continue
		}
		base, quote := normalized[:3], normalized[3:]
		basePerEur, okBase := ratesByEur[base]
		quotePerEur, okQuote := ratesByEur[quote]
		if !okBase || !okQuote || basePerEur == 0 {
			c.log.Debug().Str("pair", normalized).Msg("Currency not in reference table")
			continue
		}

		out = append(out, domain.FxRate{
			Pair:      normalized,
			Rate:      quotePerEur / basePerEur,
			FetchedAt: now,
			Provider:  c.Name(),
		})
	}

	return out, nil
}

// parseReferenceRates returns rates per EUR keyed by ISO code, EUR itself included as 1
func parseReferenceRates(body []byte) (map[string]float64, error) {
	var env envelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse ecb reference rates: %w", err)
	}

	rates := map[string]float64{"EUR": 1}
	for _, day := range env.Cube.Days {
		for _, r := range day.Rates {
			value, err := strconv.ParseFloat(strings.TrimSpace(r.Rate), 64)
			if err != nil || len(r.Currency) != 3 {
				continue
			}
			rates[strings.ToUpper(r.Currency)] = value
		}
	}

	if len(rates) == 1 {
		return nil, fmt.Errorf("ecb reference table contains no rates")
	}
	return rates, nil
}
