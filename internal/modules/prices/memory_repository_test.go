package prices

import (
	"context"
	"testing"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/domain"
	testutil "github.com/Alexander4822/Spielwiese/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.SaveMany(ctx, testutil.NewPersistedQuoteFixtures(now)))

	latest, err := repo.GetLatestBySymbols(ctx, []string{"btc", "eurusd"})
	require.NoError(t, err)
	assert.Len(t, latest, 2)
	assert.Contains(t, latest, "crypto:BTC")
	assert.Contains(t, latest, "fx:EURUSD")

	deleted, err := repo.DeleteOlderThan(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}

func TestRedisCodec(t *testing.T) {
	at := time.Date(2025, 3, 7, 22, 0, 9, 0, time.UTC)
	q := domain.PersistedPriceQuote{
		Symbol: "sap.de", AssetClass: domain.AssetClassEquity, Price: 265.5,
		Currency: "EUR", Provider: "yahoo", Timestamp: at,
	}

	b, err := encodeQuote(q)
	require.NoError(t, err)

	decoded, err := decodeQuote(b)
	require.NoError(t, err)
	assert.Equal(t, "SAP.DE", decoded.Symbol)
	assert.True(t, at.Equal(decoded.Timestamp))
	assert.Equal(t, "equity:SAP.DE", decoded.Key())
	assert.Equal(t, "price:equity:SAP.DE", quoteKey(q.AssetClass, q.Symbol))
}
