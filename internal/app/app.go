package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stock-compass/config"
	"stock-compass/models"
	"stock-compass/observability"
	"stock-compass/repository"
	"stock-compass/services"
	"stock-compass/valuation"
)

// App struct holds application dependencies using interfaces for testability
type App struct {
	cfg  *config.Config
	repo repository.RepositoryInterface
	fmp  services.FMPServiceInterface

	// now is overridable in tests to pin the projection base year
	now func() time.Time
}

// New creates a new App application struct. repo and fmp may be nil; the
// app degrades to uncached or provider-less operation accordingly.
func New(cfg *config.Config, repo repository.RepositoryInterface, fmp services.FMPServiceInterface) *App {
	return &App{
		cfg:  cfg,
		repo: repo,
		fmp:  fmp,
		now:  time.Now,
	}
}

// Shutdown releases application resources
func (a *App) Shutdown(ctx context.Context) {
	if a.repo != nil {
		a.repo.Close()
	}
}

// Repo returns the repository interface for API handlers
func (a *App) Repo() repository.RepositoryInterface {
	return a.repo
}

// HasProvider reports whether a market data provider is configured
func (a *App) HasProvider() bool {
	return a.fmp != nil
}

// maxSearchResults is the fetch size for provider searches. Searches are
// cached at this size and truncated per request, so the cached set serves
// any smaller limit.
const maxSearchResults = 50

// SearchTickers finds tickers matching the query, serving from cache when
// a recent identical search exists.
func (a *App) SearchTickers(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	if a.fmp == nil {
		return nil, fmt.Errorf("market data provider not configured")
	}

	cacheKey := strings.ToUpper(strings.TrimSpace(query))

	var results []models.SearchResult
	if !a.cacheGet(ctx, cacheKey, repository.CacheTypeSearch, &results) {
		fetched, err := a.fmp.SearchTickers(ctx, query, maxSearchResults)
		if err != nil {
			return nil, err
		}
		a.cacheSet(ctx, cacheKey, repository.CacheTypeSearch, fetched, a.searchTTL())
		results = fetched
	}

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// GetQuote returns the latest quote for a symbol and records the view in
// the lookup history.
func (a *App) GetQuote(ctx context.Context, symbol string) (*models.StockQuote, error) {
	quote, err := a.fetchQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	a.recordLookup(ctx, symbol, quote.CompanyName)

	return quote, nil
}

// GetFinancialMetrics returns normalized trailing financials for a symbol
func (a *App) GetFinancialMetrics(ctx context.Context, symbol string) (*models.FinancialMetrics, error) {
	if a.fmp == nil {
		return nil, fmt.Errorf("market data provider not configured")
	}

	var cached models.FinancialMetrics
	if a.cacheGet(ctx, symbol, repository.CacheTypeMetrics, &cached) {
		return &cached, nil
	}

	metrics, err := a.fmp.GetFinancialMetrics(ctx, symbol)
	if err != nil {
		return nil, err
	}

	a.cacheSet(ctx, symbol, repository.CacheTypeMetrics, metrics, a.metricsTTL())

	return metrics, nil
}

// DefaultAssumptions seeds a full assumption set for a symbol from its
// trailing financials.
func (a *App) DefaultAssumptions(ctx context.Context, symbol string, methodology models.Methodology) (models.ProjectionAssumptions, error) {
	metrics, err := a.GetFinancialMetrics(ctx, symbol)
	if err != nil {
		return models.ProjectionAssumptions{}, err
	}

	assumptions := valuation.DefaultAssumptions(metrics, methodology)
	if a.cfg != nil {
		assumptions.Years = a.cfg.Projection.DefaultYears
		assumptions.DilutionRate = a.cfg.Projection.DefaultDilution
	}

	return assumptions, nil
}

// BuildProjection computes the multi-year price targets for a symbol
// under the given assumptions, fetching trailing financials from the
// provider.
func (a *App) BuildProjection(ctx context.Context, symbol string, assumptions models.ProjectionAssumptions) (*models.ProjectionResult, error) {
	metrics, err := a.GetFinancialMetrics(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return a.BuildProjectionFrom(ctx, symbol, metrics, assumptions)
}

// BuildProjectionFrom computes price targets from caller-supplied
// financials, so projections stay available when no provider is
// configured.
func (a *App) BuildProjectionFrom(ctx context.Context, symbol string, metrics *models.FinancialMetrics, assumptions models.ProjectionAssumptions) (*models.ProjectionResult, error) {
	if !assumptions.Methodology.Valid() {
		return nil, fmt.Errorf("unknown methodology %q", assumptions.Methodology)
	}
	if a.cfg != nil && assumptions.Years > a.cfg.Projection.MaxYears {
		return nil, fmt.Errorf("projection horizon %d exceeds maximum of %d years",
			assumptions.Years, a.cfg.Projection.MaxYears)
	}

	timer := observability.GetMetrics().NewTimer()

	currentYear := a.now().Year()
	projections := valuation.Project(metrics, assumptions, currentYear)
	fairToday := valuation.FairValueToday(metrics, assumptions, currentYear)

	result := &models.ProjectionResult{
		Symbol:         symbol,
		Methodology:    assumptions.Methodology,
		Assumptions:    assumptions,
		FairValueToday: fairToday,
		Projections:    projections,
		ComputedAt:     a.now(),
	}

	// Implied returns need a live price; projections remain usable without one
	if quote, qerr := a.fetchQuote(ctx, symbol); qerr == nil {
		price, _ := quote.Price.Float64()
		result.CurrentPrice = models.Float(price)
		result.ImpliedReturns = valuation.ImpliedAnnualReturns(price, projections, assumptions.Years)
	} else {
		observability.WithMethodology(string(assumptions.Methodology)).Warn("projection computed without live quote", "symbol", symbol, "error", qerr)
	}

	timer.ObserveProjection(string(assumptions.Methodology), assumptions.Years)

	a.recordLookup(ctx, symbol, "")

	return result, nil
}

// ForgetSymbol removes a symbol's lookup history together with its cached
// market data
func (a *App) ForgetSymbol(ctx context.Context, symbol string) error {
	if a.repo == nil {
		return nil
	}
	return a.repo.PurgeSymbol(ctx, symbol)
}

// GetRecentLookups returns the recently viewed tickers, newest first
func (a *App) GetRecentLookups(ctx context.Context, limit int) ([]models.TickerLookup, error) {
	if a.repo == nil {
		return []models.TickerLookup{}, nil
	}
	return a.repo.GetRecentLookups(ctx, limit)
}

// Health reports the health of the app's dependencies
func (a *App) Health(ctx context.Context) error {
	if a.repo != nil {
		if err := a.repo.Health(ctx); err != nil {
			return fmt.Errorf("database unhealthy: %w", err)
		}
	}
	return nil
}

func (a *App) fetchQuote(ctx context.Context, symbol string) (*models.StockQuote, error) {
	if a.fmp == nil {
		return nil, fmt.Errorf("market data provider not configured")
	}

	var cached models.StockQuote
	if a.cacheGet(ctx, symbol, repository.CacheTypeQuote, &cached) {
		return &cached, nil
	}

	quote, err := a.fmp.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	a.cacheSet(ctx, symbol, repository.CacheTypeQuote, quote, a.quoteTTL())

	return quote, nil
}

// cacheGet loads a cached value into out, reporting whether it was found.
// Cache failures degrade to a miss.
func (a *App) cacheGet(ctx context.Context, symbol, dataType string, out any) bool {
	if a.repo == nil {
		return false
	}

	data, err := a.repo.GetCachedData(ctx, symbol, dataType)
	if err != nil {
		observability.WithDataType(dataType).Warn("cache read failed", "symbol", symbol, "error", err)
		return false
	}
	if data == nil {
		observability.GetMetrics().RecordCacheMiss(dataType)
		return false
	}

	if err := json.Unmarshal(data, out); err != nil {
		observability.WithDataType(dataType).Warn("cache entry corrupt", "symbol", symbol, "error", err)
		return false
	}

	observability.GetMetrics().RecordCacheHit(dataType)
	return true
}

func (a *App) cacheSet(ctx context.Context, symbol, dataType string, value any, ttl time.Duration) {
	if a.repo == nil {
		return
	}
	if err := a.repo.SetCachedData(ctx, symbol, dataType, value, ttl); err != nil {
		observability.WithDataType(dataType).Warn("cache write failed", "symbol", symbol, "error", err)
	}
}

func (a *App) recordLookup(ctx context.Context, symbol, companyName string) {
	if a.repo == nil {
		return
	}
	if err := a.repo.RecordLookup(ctx, models.NewTickerLookup(symbol, companyName)); err != nil {
		observability.WithSymbol(symbol).Warn("failed to record lookup", "error", err)
	}
}

func (a *App) quoteTTL() time.Duration {
	if a.cfg == nil {
		return time.Minute
	}
	return time.Duration(a.cfg.Cache.QuoteTTLSeconds) * time.Second
}

func (a *App) metricsTTL() time.Duration {
	if a.cfg == nil {
		return time.Hour
	}
	return time.Duration(a.cfg.Cache.MetricsTTLSeconds) * time.Second
}

func (a *App) searchTTL() time.Duration {
	if a.cfg == nil {
		return 24 * time.Hour
	}
	return time.Duration(a.cfg.Cache.SearchTTLSeconds) * time.Second
}
