package services

import (
	"context"

	"stock-compass/models"
)

// FMPServiceInterface defines the market data provider operations the
// dashboard depends on. The app layer consumes this interface so that
// tests can substitute a mock provider.
type FMPServiceInterface interface {
	SearchTickers(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
	GetQuote(ctx context.Context, symbol string) (*models.StockQuote, error)
	GetFinancialMetrics(ctx context.Context, symbol string) (*models.FinancialMetrics, error)
}
