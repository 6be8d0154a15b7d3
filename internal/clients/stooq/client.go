// Package stooq provides end-of-day and delayed equity quotes from stooq.com.
package stooq

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/clients/transport"
	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/Alexander4822/Spielwiese/internal/reliability"
	"github.com/Alexander4822/Spielwiese/internal/utils"
	"github.com/rs/zerolog"
)

// Client for the stooq.com CSV quote endpoint
type Client struct {
	baseURL string
	http    *transport.Client
	backoff reliability.Backoff
	now     func() time.Time
	log     zerolog.Logger
}

// NewClient creates a new stooq client
func NewClient(backoff reliability.Backoff, log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://stooq.com/q/l/",
		http:    transport.NewClient("stooq", nil),
		backoff: backoff,
		now:     time.Now,
		log:     log.With().Str("client", "stooq").Logger(),
	}
}

// Name returns the provider name stamped on quotes
func (c *Client) Name() string {
	return "stooq"
}

// GetEquityQuotes fetches quotes in batches. Rows without a numeric close are dropped.
func (c *Client) GetEquityQuotes(ctx context.Context, symbols []string) ([]domain.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	var quotes []domain.Quote
	for _, batch := range utils.Chunk(symbols, transport.BatchSize) {
		lower := make([]string, len(batch))
		for i, s := range batch {
			lower[i] = strings.ToLower(s)
		}
		endpoint := fmt.Sprintf("%s?s=%s&f=sd2t2ohlcv&h&e=csv", c.baseURL, url.QueryEscape(strings.Join(lower, ",")))

		c.log.Debug().Int("symbols", len(batch)).Msg("Fetching quotes")

		payload, err := reliability.Retry(ctx, c.backoff, func(ctx context.Context) ([]byte, error) {
			return c.http.GetBytes(ctx, endpoint, "text/csv")
		})
		if err != nil {
			return nil, err
		}

		parsed, err := c.parseCSV(payload)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, parsed...)
	}

	return quotes, nil
}

// parseCSV reads Symbol,Date,Time,Open,High,Low,Close,Volume rows
func (c *Client) parseCSV(payload []byte) ([]domain.Quote, error) {
	reader := csv.NewReader(bytes.NewReader(payload))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var quotes []domain.Quote
	header := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse stooq csv: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(record) < 7 {
			continue
		}

		symbol := strings.ToUpper(strings.TrimSpace(record[0]))
		price, err := strconv.ParseFloat(strings.TrimSpace(record[6]), 64)
		if symbol == "" || err != nil {
			c.log.Debug().Str("symbol", symbol).Str("close", record[6]).Msg("Dropping row without numeric close")
			continue
		}

		quotes = append(quotes, domain.Quote{
			Symbol:    symbol,
			Price:     price,
			Currency:  "USD",
			FetchedAt: c.quoteTime(record[1], record[2]),
			Provider:  c.Name(),
		})
	}

	return quotes, nil
}

func (c *Client) quoteTime(date, clock string) time.Time {
	ts, err := time.Parse("2006-01-02T15:04:05Z", strings.TrimSpace(date)+"T"+strings.TrimSpace(clock)+"Z")
	if err != nil {
		return c.now().UTC()
	}
	return ts
}
