// Package prices persists normalized quotes and exposes them over HTTP.
package prices

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/database"
	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/Alexander4822/Spielwiese/internal/utils"
	"github.com/rs/zerolog"
)

const upsertSQLite = `
	INSERT INTO price_quotes (asset_class, symbol, price, currency, provider, quoted_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(asset_class, symbol) DO UPDATE SET
		price = excluded.price,
		currency = excluded.currency,
		provider = excluded.provider,
		quoted_at = excluded.quoted_at,
		updated_at = excluded.updated_at
`

// Repository stores the latest quote per (asset class, symbol) in sqlite
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new sqlite price repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "price_quotes").Logger(),
	}
}

// SaveMany upserts quotes in one transaction
func (r *Repository) SaveMany(ctx context.Context, quotes []domain.PersistedPriceQuote) error {
	if len(quotes) == 0 {
		return nil
	}

	done := utils.MeasureDBQuery("price_quotes_upsert", r.log)
	now := time.Now().Unix()

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertSQLite)
		if err != nil {
			return fmt.Errorf("failed to prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, q := range quotes {
			if _, err := stmt.ExecContext(ctx,
				string(q.AssetClass), strings.ToUpper(q.Symbol), q.Price, q.Currency, q.Provider,
				q.Timestamp.Unix(), now,
			); err != nil {
				return fmt.Errorf("failed to store %s: %w", q.Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	done(int64(len(quotes)))
	return nil
}

// GetLatestBySymbols returns the stored quotes for symbols across all asset classes,
// keyed by "assetClass:SYMBOL"
func (r *Repository) GetLatestBySymbols(ctx context.Context, symbols []string) (map[string]domain.PersistedPriceQuote, error) {
	result := make(map[string]domain.PersistedPriceQuote)
	symbols = utils.NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(symbols)), ",")
	query := fmt.Sprintf(
		"SELECT asset_class, symbol, price, currency, provider, quoted_at FROM price_quotes WHERE symbol IN (%s)",
		placeholders,
	)
	args := make([]interface{}, len(symbols))
	for i, s := range symbols {
		args[i] = s
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query price quotes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			q        domain.PersistedPriceQuote
			class    string
			quotedAt int64
		)
		if err := rows.Scan(&class, &q.Symbol, &q.Price, &q.Currency, &q.Provider, &quotedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price quote: %w", err)
		}
		q.AssetClass = domain.AssetClass(class)
		q.Timestamp = time.Unix(quotedAt, 0).UTC()
		result[q.Key()] = q
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price quotes: %w", err)
	}

	return result, nil
}

// DeleteOlderThan removes quotes whose provider timestamp is before cutoff.
// Returns the number of rows deleted.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM price_quotes WHERE quoted_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old price quotes: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
