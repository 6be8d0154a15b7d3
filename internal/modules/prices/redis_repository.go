package prices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/Alexander4822/Spielwiese/internal/utils"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

var assetClasses = []domain.AssetClass{domain.AssetClassEquity, domain.AssetClassCrypto, domain.AssetClassFX}

// RedisRepository stores the latest quote per (asset class, symbol) as msgpack values
type RedisRepository struct {
	rdb *redis.Client
	log zerolog.Logger
}

// RedisOptions holds connection settings
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisRepository creates the client and pings the server
func NewRedisRepository(ctx context.Context, opts RedisOptions, log zerolog.Logger) (*RedisRepository, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisRepository{
		rdb: rdb,
		log: log.With().Str("repository", "price_quotes_redis").Logger(),
	}, nil
}

// Close closes the client
func (r *RedisRepository) Close() error {
	return r.rdb.Close()
}

// Name identifies the sink in system status
func (r *RedisRepository) Name() string {
	return "redis"
}

// HealthCheck pings the server
func (r *RedisRepository) HealthCheck(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func quoteKey(class domain.AssetClass, symbol string) string {
	return fmt.Sprintf("price:%s:%s", class, strings.ToUpper(symbol))
}

func encodeQuote(q domain.PersistedPriceQuote) ([]byte, error) {
	q.Symbol = strings.ToUpper(q.Symbol)
	q.Timestamp = q.Timestamp.UTC()
	return msgpack.Marshal(&q)
}

func decodeQuote(b []byte) (domain.PersistedPriceQuote, error) {
	var q domain.PersistedPriceQuote
	err := msgpack.Unmarshal(b, &q)
	q.Timestamp = q.Timestamp.UTC()
	return q, err
}

// SaveMany writes all quotes in one MULTI/EXEC pipeline
func (r *RedisRepository) SaveMany(ctx context.Context, quotes []domain.PersistedPriceQuote) error {
	if len(quotes) == 0 {
		return nil
	}
	done := utils.MeasureDBQuery("price_quotes_set", r.log)

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, q := range quotes {
			b, err := encodeQuote(q)
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", q.Key(), err)
			}
			pipe.Set(ctx, quoteKey(q.AssetClass, q.Symbol), b, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store price quotes in redis: %w", err)
	}

	done(int64(len(quotes)))
	return nil
}

// GetLatestBySymbols looks up every asset class for each symbol with one MGET
func (r *RedisRepository) GetLatestBySymbols(ctx context.Context, symbols []string) (map[string]domain.PersistedPriceQuote, error) {
	result := make(map[string]domain.PersistedPriceQuote)
	symbols = utils.NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return result, nil
	}

	keys := make([]string, 0, len(symbols)*len(assetClasses))
	for _, s := range symbols {
		for _, class := range assetClasses {
			keys = append(keys, quoteKey(class, s))
		}
	}

	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read price quotes from redis: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		q, err := decodeQuote([]byte(raw))
		if err != nil {
			r.log.Warn().Err(err).Str("key", keys[i]).Msg("Skipping undecodable quote")
			continue
		}
		result[q.Key()] = q
	}
	return result, nil
}

// DeleteOlderThan scans stored quotes and removes those quoted before cutoff
func (r *RedisRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	iter := r.rdb.Scan(ctx, 0, "price:*", 200).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		b, err := r.rdb.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		q, err := decodeQuote(b)
		if err != nil || !q.Timestamp.Before(cutoff) {
			continue
		}
		n, err := r.rdb.Del(ctx, key).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to delete %s: %w", key, err)
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan price quotes: %w", err)
	}
	return deleted, nil
}
