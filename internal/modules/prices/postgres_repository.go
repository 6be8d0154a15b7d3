package prices

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/Alexander4822/Spielwiese/internal/utils"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS price_quotes (
		asset_class TEXT NOT NULL,
		symbol TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		currency TEXT NOT NULL,
		provider TEXT NOT NULL,
		quoted_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (asset_class, symbol)
	)
`

const upsertPostgres = `
	INSERT INTO price_quotes (asset_class, symbol, price, currency, provider, quoted_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, now())
	ON CONFLICT (asset_class, symbol) DO UPDATE SET
		price = EXCLUDED.price,
		currency = EXCLUDED.currency,
		provider = EXCLUDED.provider,
		quoted_at = EXCLUDED.quoted_at,
		updated_at = now()
`

// PostgresRepository stores the latest quote per (asset class, symbol) in Postgres
type PostgresRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPostgresRepository connects to dsn and creates the table if needed
func NewPostgresRepository(ctx context.Context, dsn string, log zerolog.Logger) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create price_quotes table: %w", err)
	}

	return &PostgresRepository{
		db:  db,
		log: log.With().Str("repository", "price_quotes_postgres").Logger(),
	}, nil
}

// Close closes the connection pool
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Name identifies the sink in system status
func (r *PostgresRepository) Name() string {
	return "postgres"
}

// HealthCheck pings the database
func (r *PostgresRepository) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.db.PingContext(ctx)
}

// SaveMany upserts quotes in one transaction
func (r *PostgresRepository) SaveMany(ctx context.Context, quotes []domain.PersistedPriceQuote) error {
	if len(quotes) == 0 {
		return nil
	}
	done := utils.MeasureDBQuery("price_quotes_upsert", r.log)

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, upsertPostgres)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, q := range quotes {
		if _, err := stmt.ExecContext(ctx,
			string(q.AssetClass), strings.ToUpper(q.Symbol), q.Price, q.Currency, q.Provider, q.Timestamp.UTC(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to store %s: %w", q.Key(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price quotes: %w", err)
	}

	done(int64(len(quotes)))
	return nil
}

// GetLatestBySymbols returns stored quotes keyed by "assetClass:SYMBOL"
func (r *PostgresRepository) GetLatestBySymbols(ctx context.Context, symbols []string) (map[string]domain.PersistedPriceQuote, error) {
	result := make(map[string]domain.PersistedPriceQuote)
	symbols = utils.NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT asset_class, symbol, price, currency, provider, quoted_at
		 FROM price_quotes WHERE symbol = ANY($1)`,
		pq.Array(symbols),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query price quotes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			q     domain.PersistedPriceQuote
			class string
		)
		if err := rows.Scan(&class, &q.Symbol, &q.Price, &q.Currency, &q.Provider, &q.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan price quote: %w", err)
		}
		q.AssetClass = domain.AssetClass(class)
		q.Timestamp = q.Timestamp.UTC()
		result[q.Key()] = q
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price quotes: %w", err)
	}
	return result, nil
}

// DeleteOlderThan removes quotes whose provider timestamp is before cutoff
func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM price_quotes WHERE quoted_at < $1", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old price quotes: %w", err)
	}
	return result.RowsAffected()
}
