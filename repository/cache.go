package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"stock-compass/observability"
)

// Cache data types stored in market_data_cache
const (
	CacheTypeQuote   = "quote"
	CacheTypeMetrics = "metrics"
	CacheTypeSearch  = "search"
)

// GetCachedData retrieves the cached payload for a symbol and data type.
// Returns nil with no error when the entry is missing or expired.
func (r *Repository) GetCachedData(ctx context.Context, symbol, dataType string) (json.RawMessage, error) {
	var data []byte

	timer := observability.GetMetrics().NewTimer()

	// Let the database handle expiry check to avoid timezone issues
	err := r.db.QueryRow(ctx, `
		SELECT data FROM market_data_cache
		WHERE symbol = $1 AND data_type = $2 AND expires_at > NOW()
	`, symbol, dataType).Scan(&data)
	timer.ObserveDB("select", "market_data_cache")

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		observability.GetMetrics().RecordDBError("select", "market_data_cache")
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	return data, nil
}

// SetCachedData stores a JSON-serializable value in the cache with a TTL
func (r *Repository) SetCachedData(ctx context.Context, symbol, dataType string, value any, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	timer := observability.GetMetrics().NewTimer()
	_, err = r.db.Exec(ctx, `
		INSERT INTO market_data_cache (symbol, data_type, data, expires_at)
		VALUES ($1, $2, $3, NOW() + $4::interval)
		ON CONFLICT (symbol, data_type)
		DO UPDATE SET data = EXCLUDED.data, expires_at = NOW() + $4::interval, created_at = NOW()
	`, symbol, dataType, jsonData, ttl.String())
	timer.ObserveDB("upsert", "market_data_cache")

	if err != nil {
		observability.GetMetrics().RecordDBError("upsert", "market_data_cache")
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

// InvalidateCache removes cached data for a symbol and data type
func (r *Repository) InvalidateCache(ctx context.Context, symbol, dataType string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM market_data_cache WHERE symbol = $1 AND data_type = $2
	`, symbol, dataType)

	if err != nil {
		observability.GetMetrics().RecordDBError("delete", "market_data_cache")
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	return nil
}

// InvalidateAllCacheForSymbol removes all cached data for a symbol
func (r *Repository) InvalidateAllCacheForSymbol(ctx context.Context, symbol string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM market_data_cache WHERE symbol = $1`, symbol)
	if err != nil {
		observability.GetMetrics().RecordDBError("delete", "market_data_cache")
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}

// CleanExpiredCache removes all expired cache entries
func (r *Repository) CleanExpiredCache(ctx context.Context) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM market_data_cache WHERE expires_at < NOW()`)
	if err != nil {
		observability.GetMetrics().RecordDBError("delete", "market_data_cache")
		return 0, fmt.Errorf("failed to clean expired cache: %w", err)
	}
	return result.RowsAffected(), nil
}
