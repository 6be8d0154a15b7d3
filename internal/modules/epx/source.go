package epx

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Alexander4822/Spielwiese/internal/clients/transport"
	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/Alexander4822/Spielwiese/internal/reliability"
	"github.com/rs/zerolog"
)

// DefaultURL is the public EPX hedonic index page
const DefaultURL = "https://europace.de/epx-hedonic/"

// Source fetches the full index series from one upstream
type Source interface {
	Name() string
	FetchSeries(ctx context.Context) ([]domain.EpxIndex, error)
}

// HTMLSource scrapes the first table of the EPX page
type HTMLSource struct {
	url     string
	http    *transport.Client
	backoff reliability.Backoff
	log     zerolog.Logger
}

// NewHTMLSource creates a scraper for url (DefaultURL when empty)
func NewHTMLSource(url string, backoff reliability.Backoff, log zerolog.Logger) *HTMLSource {
	if url == "" {
		url = DefaultURL
	}
	return &HTMLSource{
		url:     url,
		http:    transport.NewClient("epx", nil),
		backoff: backoff,
		log:     log.With().Str("client", "epx_html").Logger(),
	}
}

// Name returns the source name
func (s *HTMLSource) Name() string {
	return "html"
}

// FetchSeries downloads and parses the page
func (s *HTMLSource) FetchSeries(ctx context.Context) ([]domain.EpxIndex, error) {
	body, err := reliability.Retry(ctx, s.backoff, func(ctx context.Context) ([]byte, error) {
		return s.http.GetBytes(ctx, s.url, "text/html,application/xhtml+xml")
	})
	if err != nil {
		return nil, err
	}

	series, report, err := ParseHTML(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Int("rows", report.Rows).
		Int("parsed", report.Parsed).
		Int("skipped", report.Skipped).
		Msg("Parsed EPX table")
	return series, nil
}

// JSONSource reads the series from a JSON API returning an array of
// {month, apartments, existingHomes, newHomes}
type JSONSource struct {
	url     string
	http    *transport.Client
	backoff reliability.Backoff
	log     zerolog.Logger
}

// NewJSONSource creates an API source for url
func NewJSONSource(url string, backoff reliability.Backoff, log zerolog.Logger) *JSONSource {
	return &JSONSource{
		url:     url,
		http:    transport.NewClient("epx_api", nil),
		backoff: backoff,
		log:     log.With().Str("client", "epx_api").Logger(),
	}
}

// Name returns the source name
func (s *JSONSource) Name() string {
	return "api"
}

// FetchSeries downloads the series; rows with an unparseable month are dropped
func (s *JSONSource) FetchSeries(ctx context.Context) ([]domain.EpxIndex, error) {
	body, err := reliability.Retry(ctx, s.backoff, func(ctx context.Context) ([]byte, error) {
		return s.http.GetBytes(ctx, s.url, "application/json")
	})
	if err != nil {
		return nil, err
	}

	raw := decodeSeries(body)
	series := make([]domain.EpxIndex, 0, len(raw))
	for _, row := range raw {
		month, ok := NormalizeMonth(row.Month)
		if !ok {
			s.log.Debug().Str("month", row.Month).Msg("Dropping EPX API row with invalid month")
			continue
		}
		row.Month = month
		series = append(series, row)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("EPX API returned no usable rows")
	}
	return MergeByMonth(nil, series), nil
}
