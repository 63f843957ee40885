package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"stock-compass/models"
	"stock-compass/observability"

	"github.com/shopspring/decimal"
)

// FMPService handles communication with the Financial Modeling Prep API
type FMPService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewFMPService creates a new FMPService instance
func NewFMPService(apiKey string) *FMPService {
	return NewFMPServiceWithBaseURL(apiKey, "https://financialmodelingprep.com/api/v3")
}

// NewFMPServiceWithBaseURL creates an FMPService against a non-default
// API endpoint, such as a proxy.
func NewFMPServiceWithBaseURL(apiKey, baseURL string) *FMPService {
	return &FMPService{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

// fmpQuoteResponse represents a real-time quote from the FMP API
type fmpQuoteResponse struct {
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	Change            float64 `json:"change"`
	ChangesPercentage float64 `json:"changesPercentage"`
	DayLow            float64 `json:"dayLow"`
	DayHigh           float64 `json:"dayHigh"`
	MarketCap         int64   `json:"marketCap"`
	Volume            int64   `json:"volume"`
	SharesOutstanding float64 `json:"sharesOutstanding"`
	EPS               float64 `json:"eps"`
	PE                float64 `json:"pe"`
	Timestamp         int64   `json:"timestamp"`
}

// fmpSearchResponse represents one match from the FMP ticker search endpoint
type fmpSearchResponse struct {
	Symbol            string `json:"symbol"`
	Name              string `json:"name"`
	Currency          string `json:"currency"`
	StockExchange     string `json:"stockExchange"`
	ExchangeShortName string `json:"exchangeShortName"`
}

// fmpIncomeStatementResponse represents an annual income statement from the FMP API
type fmpIncomeStatementResponse struct {
	Symbol            string  `json:"symbol"`
	Date              string  `json:"date"`
	Revenue           float64 `json:"revenue"`
	GrossProfit       float64 `json:"grossProfit"`
	OperatingIncome   float64 `json:"operatingIncome"`
	EBITDA            float64 `json:"ebitda"`
	NetIncome         float64 `json:"netIncome"`
	EPS               float64 `json:"eps"`
	WeightedAvgShsOut float64 `json:"weightedAverageShsOut"`
}

// fmpBalanceSheetResponse represents an annual balance sheet from the FMP API
type fmpBalanceSheetResponse struct {
	Symbol                 string  `json:"symbol"`
	TotalDebt              float64 `json:"totalDebt"`
	CashAndCashEquivalents float64 `json:"cashAndCashEquivalents"`
	NetDebt                float64 `json:"netDebt"`
}

// fmpCashFlowResponse represents an annual cash flow statement from the FMP API
type fmpCashFlowResponse struct {
	Symbol       string  `json:"symbol"`
	FreeCashFlow float64 `json:"freeCashFlow"`
}

// fmpRatiosResponse represents trailing-twelve-month ratios from the FMP API
type fmpRatiosResponse struct {
	PERatio         float64 `json:"peRatioTTM"`
	PEGRatio        float64 `json:"pegRatioTTM"`
	PriceToSales    float64 `json:"priceToSalesRatioTTM"`
	PriceToBook     float64 `json:"priceToBookRatioTTM"`
	EVToEBITDA      float64 `json:"enterpriseValueMultipleTTM"`
	GrossMargin     float64 `json:"grossProfitMarginTTM"`
	OperatingMargin float64 `json:"operatingProfitMarginTTM"`
	NetMargin       float64 `json:"netProfitMarginTTM"`
	ReturnOnEquity  float64 `json:"returnOnEquityTTM"`
	ReturnOnAssets  float64 `json:"returnOnAssetsTTM"`
}

// get issues one API request and decodes the JSON body into out. The
// operation names the upstream endpoint for metrics.
func (s *FMPService) get(ctx context.Context, operation, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", s.apiKey)
	reqURL := s.baseURL + path + "?" + params.Encode()

	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest("fmp", operation)
	timer := metrics.NewTimer()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		metrics.RecordExternalAPIError("fmp", operation)
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.RecordExternalAPIError("fmp", operation)
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()
	timer.ObserveExternalAPI("fmp", operation)

	if resp.StatusCode != http.StatusOK {
		metrics.RecordExternalAPIError("fmp", operation)
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.RecordExternalAPIError("fmp", operation)
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return nil
}

// SearchTickers returns ticker matches for an autocomplete query
func (s *FMPService) SearchTickers(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	return WithCircuitBreaker(ctx, BreakerFMP, func() ([]models.SearchResult, error) {
		var results []models.SearchResult

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			params := url.Values{}
			params.Set("query", query)
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}

			var searchResp []fmpSearchResponse
			if err := s.get(ctx, "search", "/search", params, &searchResp); err != nil {
				return err
			}

			results = make([]models.SearchResult, 0, len(searchResp))
			for _, m := range searchResp {
				results = append(results, models.SearchResult{
					Symbol:   m.Symbol,
					Name:     m.Name,
					Exchange: m.ExchangeShortName,
					Currency: m.Currency,
				})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		return results, nil
	})
}

// GetQuote returns the latest quote for a symbol
func (s *FMPService) GetQuote(ctx context.Context, symbol string) (*models.StockQuote, error) {
	return WithCircuitBreaker(ctx, BreakerFMP, func() (*models.StockQuote, error) {
		var quote *models.StockQuote

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			var quoteResp []fmpQuoteResponse
			if err := s.get(ctx, "quote", "/quote/"+url.PathEscape(symbol), nil, &quoteResp); err != nil {
				return err
			}
			if len(quoteResp) == 0 {
				return fmt.Errorf("no quote data for symbol %s", symbol)
			}

			q := quoteResp[0]
			ts := time.Now()
			if q.Timestamp > 0 {
				ts = time.Unix(q.Timestamp, 0)
			}
			quote = &models.StockQuote{
				Symbol:        q.Symbol,
				CompanyName:   q.Name,
				Price:         decimal.NewFromFloat(q.Price),
				Change:        decimal.NewFromFloat(q.Change),
				ChangePercent: q.ChangesPercentage,
				DayHigh:       decimal.NewFromFloat(q.DayHigh),
				DayLow:        decimal.NewFromFloat(q.DayLow),
				Volume:        q.Volume,
				MarketCap:     q.MarketCap,
				Timestamp:     ts,
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		return quote, nil
	})
}

// GetFinancialMetrics assembles a normalized fundamentals snapshot from the
// quote, latest annual statements, and TTM ratios. The quote and income
// statement are required; the remaining statements enrich the snapshot and
// their absence leaves fields unknown rather than failing the fetch.
func (s *FMPService) GetFinancialMetrics(ctx context.Context, symbol string) (*models.FinancialMetrics, error) {
	return WithCircuitBreaker(ctx, BreakerFMP, func() (*models.FinancialMetrics, error) {
		var metrics *models.FinancialMetrics

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			escaped := url.PathEscape(symbol)
			annual := func() url.Values {
				v := url.Values{}
				v.Set("period", "annual")
				v.Set("limit", "1")
				return v
			}

			var quoteResp []fmpQuoteResponse
			if err := s.get(ctx, "quote", "/quote/"+escaped, nil, &quoteResp); err != nil {
				return err
			}
			if len(quoteResp) == 0 {
				return fmt.Errorf("no quote data for symbol %s", symbol)
			}
			q := quoteResp[0]

			var incomeResp []fmpIncomeStatementResponse
			if err := s.get(ctx, "income_statement", "/income-statement/"+escaped, annual(), &incomeResp); err != nil {
				return err
			}
			if len(incomeResp) == 0 {
				return fmt.Errorf("no income statement data for symbol %s", symbol)
			}
			inc := incomeResp[0]

			m := &models.FinancialMetrics{
				Symbol:      q.Symbol,
				CompanyName: q.Name,
				Revenue:     models.Float(inc.Revenue),
				NetIncome:   models.Float(inc.NetIncome),
				EBITDA:      models.Float(inc.EBITDA),
				EBIT:        models.Float(inc.OperatingIncome),
				EPS:         models.Float(inc.EPS),
				UpdatedAt:   time.Now(),
			}
			// FMP reports an absent market cap as zero; keep it unknown
			if q.MarketCap > 0 {
				m.MarketCap = models.Float(float64(q.MarketCap))
			}
			if q.SharesOutstanding > 0 {
				m.SharesOutstanding = models.Float(q.SharesOutstanding)
			} else if inc.WeightedAvgShsOut > 0 {
				m.SharesOutstanding = models.Float(inc.WeightedAvgShsOut)
			}

			var balanceResp []fmpBalanceSheetResponse
			if err := s.get(ctx, "balance_sheet", "/balance-sheet-statement/"+escaped, annual(), &balanceResp); err != nil {
				observability.Warn("balance sheet unavailable", "symbol", symbol, "error", err)
			} else if len(balanceResp) > 0 {
				b := balanceResp[0]
				m.TotalDebt = models.Float(b.TotalDebt)
				m.TotalCash = models.Float(b.CashAndCashEquivalents)
				m.NetDebt = models.Float(b.NetDebt)
				if q.MarketCap > 0 {
					m.EnterpriseValue = models.Float(float64(q.MarketCap) + b.NetDebt)
				}
			}

			var cashFlowResp []fmpCashFlowResponse
			if err := s.get(ctx, "cash_flow", "/cash-flow-statement/"+escaped, annual(), &cashFlowResp); err != nil {
				observability.Warn("cash flow statement unavailable", "symbol", symbol, "error", err)
			} else if len(cashFlowResp) > 0 {
				m.FreeCashFlow = models.Float(cashFlowResp[0].FreeCashFlow)
			}

			var ratiosResp []fmpRatiosResponse
			if err := s.get(ctx, "ratios", "/ratios-ttm/"+escaped, nil, &ratiosResp); err != nil {
				observability.Warn("ratios unavailable", "symbol", symbol, "error", err)
			} else if len(ratiosResp) > 0 {
				r := ratiosResp[0]
				m.PERatio = positiveFloat(r.PERatio)
				m.PEGRatio = positiveFloat(r.PEGRatio)
				m.PriceToSales = positiveFloat(r.PriceToSales)
				m.PriceToBook = positiveFloat(r.PriceToBook)
				m.EVToEBITDA = positiveFloat(r.EVToEBITDA)
				// FMP reports margins and returns as decimal ratios;
				// the snapshot carries them as percentages.
				m.GrossMargin = models.Float(r.GrossMargin * 100)
				m.OperatingMargin = models.Float(r.OperatingMargin * 100)
				m.NetMargin = models.Float(r.NetMargin * 100)
				m.ROE = models.Float(r.ReturnOnEquity * 100)
				m.ROA = models.Float(r.ReturnOnAssets * 100)
			}

			metrics = m
			return nil
		})
		if err != nil {
			return nil, err
		}

		return metrics, nil
	})
}

// positiveFloat treats non-positive upstream ratios as unknown. FMP encodes
// "not meaningful" multiples for loss-making companies as zero or negative
// values, which must not be mistaken for real multiples.
func positiveFloat(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}

// Compile-time interface verification
var _ FMPServiceInterface = (*FMPService)(nil)
