package testing

import (
	"fmt"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/domain"
)

// NewEpxIndexFixtures returns n consecutive monthly index rows starting at 2024-01.
// Values rise by one point per month from 100/110/120.
func NewEpxIndexFixtures(n int) []domain.EpxIndex {
	out := make([]domain.EpxIndex, 0, n)
	for i := 0; i < n; i++ {
		year := 2024 + i/12
		month := i%12 + 1
		out = append(out, domain.EpxIndex{
			Month:         fmt.Sprintf("%04d-%02d", year, month),
			Apartments:    100 + float64(i),
			ExistingHomes: 110 + float64(i),
			NewHomes:      120 + float64(i),
		})
	}
	return out
}

// NewQuoteFixtures returns equity quotes stamped at fetchedAt
func NewQuoteFixtures(fetchedAt time.Time, symbols ...string) []domain.Quote {
	out := make([]domain.Quote, 0, len(symbols))
	for i, s := range symbols {
		out = append(out, domain.Quote{
			Symbol:    s,
			Price:     100 + float64(i),
			Currency:  "USD",
			FetchedAt: fetchedAt,
			Provider:  "fixture",
		})
	}
	return out
}

// NewPersistedQuoteFixtures returns one persisted quote per asset class
func NewPersistedQuoteFixtures(at time.Time) []domain.PersistedPriceQuote {
	return []domain.PersistedPriceQuote{
		{Symbol: "AAPL", AssetClass: domain.AssetClassEquity, Price: 239.07, Currency: "USD", Provider: "stooq", Timestamp: at},
		{Symbol: "BTC", AssetClass: domain.AssetClassCrypto, Price: 86250.5, Currency: "USD", Provider: "coingecko", Timestamp: at},
		{Symbol: "EURUSD", AssetClass: domain.AssetClassFX, Price: 1.083, Currency: "USD", Provider: "ecb", Timestamp: at},
	}
}
