/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every long-lived instance built at startup. It is the
 * single source of truth handed to the HTTP server and the scheduler.
 */
package di

import (
	"io"

	"github.com/Alexander4822/Spielwiese/internal/clients/coingecko"
	"github.com/Alexander4822/Spielwiese/internal/clients/ecb"
	"github.com/Alexander4822/Spielwiese/internal/clients/stooq"
	"github.com/Alexander4822/Spielwiese/internal/database"
	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/Alexander4822/Spielwiese/internal/marketdata"
	"github.com/Alexander4822/Spielwiese/internal/modules/epx"
	"github.com/Alexander4822/Spielwiese/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Price sink. PriceDB is only set for the sqlite backend.
	PriceDB     *database.DB
	PriceRepo   domain.PriceQuoteRepository
	PricePruner domain.PriceQuotePruner // nil when the sink cannot prune

	// Providers
	StooqClient     *stooq.Client
	YahooClient     domain.EquityQuoteProvider // http or go-yfinance client, depending on YAHOO_CLIENT_MODE
	CoinGeckoClient *coingecko.Client
	ECBClient       *ecb.Client

	// Services
	MarketDataService *marketdata.Service

	// EPX
	EpxStore    epx.Store
	EpxIngestor *epx.Ingestor

	// Remote sinks that hold connections (postgres, redis)
	closers []io.Closer
}

// JobInstances holds references to all job instances.
// PriceRefresh, Retention and Maintenance are nil when not registered.
type JobInstances struct {
	EpxStartup   scheduler.Job
	EpxDaily     scheduler.Job
	PriceRefresh scheduler.Job
	Retention    scheduler.Job
	Maintenance  scheduler.Job
}

// Close releases the price sink
func (c *Container) Close() error {
	var firstErr error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil

	if c.PriceDB != nil {
		if err := c.PriceDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.PriceDB = nil
	}
	return firstErr
}
