package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/reliability"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBackoff() reliability.Backoff {
	return reliability.Backoff{Base: time.Millisecond, MaxRetries: 1, AttemptTimeout: time.Second}
}

func TestGetEquityQuotes_ParsesQuoteResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL,SAP.DE,BROKEN", r.URL.Query().Get("symbols"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"quoteResponse":{"result":[
			{"symbol":"AAPL","regularMarketPrice":239.07,"currency":"USD","regularMarketTime":1741381209},
			{"symbol":"sap.de","regularMarketPrice":265.5,"currency":"EUR"},
			{"symbol":"BROKEN","regularMarketPrice":null}
		]}}`))
	}))
	defer server.Close()

	fixed := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	c := NewClient(testBackoff(), zerolog.Nop())
	c.baseURL = server.URL
	c.now = func() time.Time { return fixed }

	quotes, err := c.GetEquityQuotes(context.Background(), []string{"AAPL", "SAP.DE", "BROKEN"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	assert.Equal(t, "AAPL", quotes[0].Symbol)
	assert.Equal(t, time.Unix(1741381209, 0).UTC(), quotes[0].FetchedAt)
	assert.Equal(t, "SAP.DE", quotes[1].Symbol)
	assert.Equal(t, "EUR", quotes[1].Currency)
	assert.Equal(t, fixed, quotes[1].FetchedAt)
	assert.Equal(t, "yahoo", quotes[1].Provider)
}

func TestGetEquityQuotes_MissingCurrencyDefaultsToUSD(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quoteResponse":{"result":[{"symbol":"MSFT","regularMarketPrice":393.31}]}}`))
	}))
	defer server.Close()

	c := NewClient(testBackoff(), zerolog.Nop())
	c.baseURL = server.URL

	quotes, err := c.GetEquityQuotes(context.Background(), []string{"MSFT"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "USD", quotes[0].Currency)
}

func TestGetEquityQuotes_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient(testBackoff(), zerolog.Nop())
	c.baseURL = server.URL

	_, err := c.GetEquityQuotes(context.Background(), []string{"AAPL"})
	assert.Error(t, err)
}

func TestNativeClient_GetEquityQuotes(t *testing.T) {
	c := NewNativeClient(testBackoff(), zerolog.Nop())
	c.fetch = func(symbol string) (float64, error) {
		if symbol == "AAPL" {
			return 239.07, nil
		}
		return 0, errors.New("no valid price")
	}

	quotes, err := c.GetEquityQuotes(context.Background(), []string{"aapl", "NOPE"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "AAPL", quotes[0].Symbol)
	assert.Equal(t, 239.07, quotes[0].Price)
}

func TestNativeClient_AllFailedIsError(t *testing.T) {
	c := NewNativeClient(testBackoff(), zerolog.Nop())
	c.fetch = func(symbol string) (float64, error) {
		return 0, errors.New("rate limited")
	}

	_, err := c.GetEquityQuotes(context.Background(), []string{"AAPL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
