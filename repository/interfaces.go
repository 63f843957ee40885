package repository

import (
	"context"
	"encoding/json"
	"time"

	"stock-compass/models"
)

// RepositoryInterface defines all repository operations
type RepositoryInterface interface {
	// Health and lifecycle
	Close()
	Health(ctx context.Context) error

	// Cache
	GetCachedData(ctx context.Context, symbol, dataType string) (json.RawMessage, error)
	SetCachedData(ctx context.Context, symbol, dataType string, value any, ttl time.Duration) error
	InvalidateCache(ctx context.Context, symbol, dataType string) error
	InvalidateAllCacheForSymbol(ctx context.Context, symbol string) error
	CleanExpiredCache(ctx context.Context) (int64, error)

	// Lookup history
	RecordLookup(ctx context.Context, lookup *models.TickerLookup) error
	GetRecentLookups(ctx context.Context, limit int) ([]models.TickerLookup, error)
	DeleteLookupHistory(ctx context.Context, symbol string) error
	PurgeSymbol(ctx context.Context, symbol string) error
}

// Compile-time interface verification
var _ RepositoryInterface = (*Repository)(nil)
