package stooq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/reliability"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBackoff() reliability.Backoff {
	return reliability.Backoff{Base: time.Millisecond, MaxRetries: 3, AttemptTimeout: time.Second}
}

func newTestClient(url string) *Client {
	c := NewClient(testBackoff(), zerolog.Nop())
	c.baseURL = url
	return c
}

func TestGetEquityQuotes_ParsesCSV(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "aapl,msft,xxx", r.URL.Query().Get("s"))
		assert.Equal(t, "sd2t2ohlcv", r.URL.Query().Get("f"))
		_, _ = w.Write([]byte(strings.Join([]string{
			"Symbol,Date,Time,Open,High,Low,Close,Volume",
			"AAPL.US,2025-03-07,22:00:09,235.1,241.3,234.7,239.07,46273565",
			"MSFT.US,2025-03-07,22:00:09,392.3,394.8,385.5,393.31,22034142",
			"XXX,N/D,N/D,N/D,N/D,N/D,N/D,N/D",
		}, "\n")))
	}))
	defer server.Close()

	quotes, err := newTestClient(server.URL).GetEquityQuotes(context.Background(), []string{"AAPL", "MSFT", "XXX"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	assert.Equal(t, "AAPL.US", quotes[0].Symbol)
	assert.Equal(t, 239.07, quotes[0].Price)
	assert.Equal(t, "USD", quotes[0].Currency)
	assert.Equal(t, "stooq", quotes[0].Provider)
	assert.Equal(t, time.Date(2025, 3, 7, 22, 0, 9, 0, time.UTC), quotes[0].FetchedAt)
}

func TestGetEquityQuotes_InvalidTimestampFallsBackToNow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Symbol,Date,Time,Open,High,Low,Close,Volume\nSAP,bad,bad,1,1,1,180.5,1\n"))
	}))
	defer server.Close()

	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	c := newTestClient(server.URL)
	c.now = func() time.Time { return fixed }

	quotes, err := c.GetEquityQuotes(context.Background(), []string{"SAP"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, fixed, quotes[0].FetchedAt)
}

func TestGetEquityQuotes_BatchesBy25(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		_, _ = w.Write([]byte("Symbol,Date,Time,Open,High,Low,Close,Volume\n"))
	}))
	defer server.Close()

	symbols := make([]string, 30)
	for i := range symbols {
		symbols[i] = "S" + string(rune('A'+i%26))
	}

	_, err := newTestClient(server.URL).GetEquityQuotes(context.Background(), symbols)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestGetEquityQuotes_RetriesThenFails(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetEquityQuotes(context.Background(), []string{"AAPL"})
	require.Error(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(&requests))
}

func TestGetEquityQuotes_EmptyInput(t *testing.T) {
	quotes, err := NewClient(testBackoff(), zerolog.Nop()).GetEquityQuotes(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, quotes)
}
