package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"stock-compass/models"
	"stock-compass/observability"
)

// RecordLookup saves a ticker lookup to the viewing history
func (r *Repository) RecordLookup(ctx context.Context, lookup *models.TickerLookup) error {
	if lookup.ID == uuid.Nil {
		lookup.ID = uuid.New()
	}

	timer := observability.GetMetrics().NewTimer()
	_, err := r.db.Exec(ctx, `
		INSERT INTO ticker_lookups (id, symbol, company_name, viewed_at)
		VALUES ($1, $2, $3, $4)
	`, lookup.ID, lookup.Symbol, lookup.CompanyName, lookup.ViewedAt)
	timer.ObserveDB("insert", "ticker_lookups")

	if err != nil {
		observability.GetMetrics().RecordDBError("insert", "ticker_lookups")
		return fmt.Errorf("failed to record lookup: %w", err)
	}

	return nil
}

// GetRecentLookups returns the most recently viewed tickers, deduplicated
// by symbol, newest first.
func (r *Repository) GetRecentLookups(ctx context.Context, limit int) ([]models.TickerLookup, error) {
	if limit <= 0 {
		limit = 10
	}

	timer := observability.GetMetrics().NewTimer()
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT ON (symbol) id, symbol, company_name, viewed_at
		FROM ticker_lookups
		ORDER BY symbol, viewed_at DESC
	`)
	timer.ObserveDB("select", "ticker_lookups")

	if err != nil {
		observability.GetMetrics().RecordDBError("select", "ticker_lookups")
		return nil, fmt.Errorf("failed to query lookups: %w", err)
	}
	defer rows.Close()

	var lookups []models.TickerLookup
	for rows.Next() {
		var l models.TickerLookup
		if err := rows.Scan(&l.ID, &l.Symbol, &l.CompanyName, &l.ViewedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lookup: %w", err)
		}
		lookups = append(lookups, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lookups: %w", err)
	}

	// DISTINCT ON orders by symbol, so re-sort newest first and trim
	sortLookupsByViewedAt(lookups)
	if len(lookups) > limit {
		lookups = lookups[:limit]
	}

	return lookups, nil
}

// DeleteLookupHistory removes all lookup history for a symbol
func (r *Repository) DeleteLookupHistory(ctx context.Context, symbol string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM ticker_lookups WHERE symbol = $1`, symbol)
	if err != nil {
		observability.GetMetrics().RecordDBError("delete", "ticker_lookups")
		return fmt.Errorf("failed to delete lookup history: %w", err)
	}
	return nil
}

func sortLookupsByViewedAt(lookups []models.TickerLookup) {
	sort.Slice(lookups, func(i, j int) bool {
		return lookups[i].ViewedAt.After(lookups[j].ViewedAt)
	})
}
