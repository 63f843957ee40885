package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"stock-compass/observability"
)

func TestNewFMPService(t *testing.T) {
	service := NewFMPService("test-api-key")
	if service == nil {
		t.Fatal("NewFMPService should not return nil")
	}
	if service.apiKey != "test-api-key" {
		t.Errorf("apiKey = %v, want 'test-api-key'", service.apiKey)
	}
	if service.httpClient == nil {
		t.Error("httpClient should not be nil")
	}
	if service.baseURL != "https://financialmodelingprep.com/api/v3" {
		t.Errorf("baseURL = %v, want FMP v3 URL", service.baseURL)
	}
}

func TestSearchTickers_WithMockServer(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("query"); got != "appl" {
			t.Errorf("query = %q, want 'appl'", got)
		}
		if got := r.URL.Query().Get("limit"); got != "10" {
			t.Errorf("limit = %q, want '10'", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"symbol": "AAPL", "name": "Apple Inc.", "currency": "USD", "stockExchange": "NASDAQ Global Select", "exchangeShortName": "NASDAQ"},
			{"symbol": "APLE", "name": "Apple Hospitality REIT", "currency": "USD", "stockExchange": "New York Stock Exchange", "exchangeShortName": "NYSE"}
		]`))
	}))
	defer server.Close()

	service := NewFMPService("test-key")
	service.baseURL = server.URL

	results, err := service.SearchTickers(context.Background(), "appl", 10)
	if err != nil {
		t.Fatalf("SearchTickers() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Symbol != "AAPL" || results[0].Exchange != "NASDAQ" {
		t.Errorf("results[0] = %+v", results[0])
	}
	if results[1].Name != "Apple Hospitality REIT" {
		t.Errorf("results[1].Name = %q", results[1].Name)
	}
}

func TestGetQuote_WithMockServer(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote/AAPL" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{
			"symbol": "AAPL",
			"name": "Apple Inc.",
			"price": 175.50,
			"change": 2.25,
			"changesPercentage": 1.30,
			"dayLow": 172.10,
			"dayHigh": 176.80,
			"marketCap": 2500000000000,
			"volume": 50000000,
			"sharesOutstanding": 15500000000,
			"eps": 6.13,
			"pe": 28.6,
			"timestamp": 1756400000
		}]`))
	}))
	defer server.Close()

	service := NewFMPService("test-key")
	service.baseURL = server.URL

	quote, err := service.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetQuote() error = %v", err)
	}

	if quote.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want 'AAPL'", quote.Symbol)
	}
	if !quote.Price.Equal(quote.Price.Truncate(2)) || quote.Price.InexactFloat64() != 175.50 {
		t.Errorf("Price = %v, want 175.50", quote.Price)
	}
	if quote.MarketCap != 2500000000000 {
		t.Errorf("MarketCap = %d", quote.MarketCap)
	}
	if quote.Timestamp.Unix() != 1756400000 {
		t.Errorf("Timestamp = %v", quote.Timestamp)
	}
}

func TestGetQuote_EmptyResponse(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	service := NewFMPService("test-key")
	service.baseURL = server.URL

	_, err := service.GetQuote(context.Background(), "NOPE")
	if err == nil {
		t.Error("expected error for unknown symbol")
	}
	if !strings.Contains(err.Error(), "no quote data") {
		t.Errorf("error = %v, want 'no quote data'", err)
	}
}

func TestGetFinancialMetrics_WithMockServer(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/quote/"):
			w.Write([]byte(`[{"symbol": "AAPL", "name": "Apple Inc.", "price": 175.50, "marketCap": 2500000000000, "sharesOutstanding": 15500000000}]`))
		case strings.HasPrefix(r.URL.Path, "/income-statement/"):
			if r.URL.Query().Get("period") != "annual" {
				t.Errorf("period = %q, want 'annual'", r.URL.Query().Get("period"))
			}
			w.Write([]byte(`[{"symbol": "AAPL", "date": "2025-09-27", "revenue": 400000000000, "operatingIncome": 120000000000, "ebitda": 135000000000, "netIncome": 100000000000, "eps": 6.13, "weightedAverageShsOut": 15500000000}]`))
		case strings.HasPrefix(r.URL.Path, "/balance-sheet-statement/"):
			w.Write([]byte(`[{"symbol": "AAPL", "totalDebt": 110000000000, "cashAndCashEquivalents": 30000000000, "netDebt": 80000000000}]`))
		case strings.HasPrefix(r.URL.Path, "/cash-flow-statement/"):
			w.Write([]byte(`[{"symbol": "AAPL", "freeCashFlow": 99000000000}]`))
		case strings.HasPrefix(r.URL.Path, "/ratios-ttm/"):
			w.Write([]byte(`[{"peRatioTTM": 28.6, "priceToSalesRatioTTM": 6.2, "priceToBookRatioTTM": 45.1, "enterpriseValueMultipleTTM": 19.1, "netProfitMarginTTM": 0.25, "operatingProfitMarginTTM": 0.30, "grossProfitMarginTTM": 0.44, "returnOnEquityTTM": 1.50, "returnOnAssetsTTM": 0.28}]`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	service := NewFMPService("test-key")
	service.baseURL = server.URL

	m, err := service.GetFinancialMetrics(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetFinancialMetrics() error = %v", err)
	}

	if m.Symbol != "AAPL" {
		t.Errorf("Symbol = %q", m.Symbol)
	}
	if m.Revenue == nil || *m.Revenue != 400000000000 {
		t.Errorf("Revenue = %v, want 400000000000", m.Revenue)
	}
	if m.SharesOutstanding == nil || *m.SharesOutstanding != 15500000000 {
		t.Errorf("SharesOutstanding = %v", m.SharesOutstanding)
	}
	if m.NetDebt == nil || *m.NetDebt != 80000000000 {
		t.Errorf("NetDebt = %v", m.NetDebt)
	}
	if m.EnterpriseValue == nil || *m.EnterpriseValue != 2580000000000 {
		t.Errorf("EnterpriseValue = %v, want marketCap + netDebt", m.EnterpriseValue)
	}
	if m.FreeCashFlow == nil || *m.FreeCashFlow != 99000000000 {
		t.Errorf("FreeCashFlow = %v", m.FreeCashFlow)
	}
	// Upstream ratio margins arrive as decimals and are carried as percentages
	if m.NetMargin == nil || *m.NetMargin != 25 {
		t.Errorf("NetMargin = %v, want 25", m.NetMargin)
	}
	if m.PERatio == nil || *m.PERatio != 28.6 {
		t.Errorf("PERatio = %v, want 28.6", m.PERatio)
	}
}

func TestGetFinancialMetrics_PartialData(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	// Only quote and income statement succeed; enrichment endpoints fail
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/quote/"):
			w.Write([]byte(`[{"symbol": "NEWCO", "name": "New Co", "price": 12.00, "marketCap": 500000000}]`))
		case strings.HasPrefix(r.URL.Path, "/income-statement/"):
			w.Write([]byte(`[{"symbol": "NEWCO", "revenue": 80000000, "netIncome": -5000000, "weightedAverageShsOut": 40000000}]`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	service := NewFMPService("test-key")
	service.baseURL = server.URL

	m, err := service.GetFinancialMetrics(context.Background(), "NEWCO")
	if err != nil {
		t.Fatalf("GetFinancialMetrics() error = %v", err)
	}

	if m.Revenue == nil || *m.Revenue != 80000000 {
		t.Errorf("Revenue = %v", m.Revenue)
	}
	// Missing enrichment propagates as unknown, not zero
	if m.NetDebt != nil {
		t.Errorf("NetDebt = %v, want nil", *m.NetDebt)
	}
	if m.NetMargin != nil {
		t.Errorf("NetMargin = %v, want nil", *m.NetMargin)
	}
	if m.SharesOutstanding == nil || *m.SharesOutstanding != 40000000 {
		t.Errorf("SharesOutstanding = %v, want income-statement fallback", m.SharesOutstanding)
	}
}

func TestGetFinancialMetrics_QuoteFailure(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	service := NewFMPService("test-key")
	service.baseURL = server.URL

	if _, err := service.GetFinancialMetrics(context.Background(), "NOPE"); err == nil {
		t.Error("expected error when quote endpoint fails")
	}
}

func TestPositiveFloat(t *testing.T) {
	if got := positiveFloat(28.6); got == nil || *got != 28.6 {
		t.Errorf("positiveFloat(28.6) = %v", got)
	}
	if got := positiveFloat(0); got != nil {
		t.Errorf("positiveFloat(0) = %v, want nil", *got)
	}
	if got := positiveFloat(-12.5); got != nil {
		t.Errorf("positiveFloat(-12.5) = %v, want nil", *got)
	}
}

func TestFMPRatiosResponse_Deserialization(t *testing.T) {
	jsonResponse := `[{"peRatioTTM": 15.2, "pegRatioTTM": 1.8, "priceToSalesRatioTTM": 2.1, "netProfitMarginTTM": 0.14}]`

	var resp []fmpRatiosResponse
	if err := json.Unmarshal([]byte(jsonResponse), &resp); err != nil {
		t.Fatalf("failed to unmarshal ratios response: %v", err)
	}

	if resp[0].PERatio != 15.2 {
		t.Errorf("PERatio = %v, want 15.2", resp[0].PERatio)
	}
	if resp[0].NetMargin != 0.14 {
		t.Errorf("NetMargin = %v, want 0.14", resp[0].NetMargin)
	}
}

func TestGetFinancialMetrics_MissingMarketCap(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/quote/"):
			w.Write([]byte(`[{"symbol": "PINK", "name": "Pink Sheet Co", "price": 0.80, "marketCap": 0}]`))
		case strings.HasPrefix(r.URL.Path, "/income-statement/"):
			w.Write([]byte(`[{"symbol": "PINK", "revenue": 9000000, "netIncome": 400000, "weightedAverageShsOut": 12000000}]`))
		case strings.HasPrefix(r.URL.Path, "/balance-sheet-statement/"):
			w.Write([]byte(`[{"symbol": "PINK", "totalDebt": 2000000, "cashAndCashEquivalents": 500000, "netDebt": 1500000}]`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	service := NewFMPService("test-key")
	service.baseURL = server.URL

	m, err := service.GetFinancialMetrics(context.Background(), "PINK")
	if err != nil {
		t.Fatalf("GetFinancialMetrics() error = %v", err)
	}

	// An upstream market cap of zero is unknown, and no enterprise value
	// can be derived from it
	if m.MarketCap != nil {
		t.Errorf("MarketCap = %v, want nil", *m.MarketCap)
	}
	if m.EnterpriseValue != nil {
		t.Errorf("EnterpriseValue = %v, want nil", *m.EnterpriseValue)
	}
	if m.NetDebt == nil || *m.NetDebt != 1500000 {
		t.Errorf("NetDebt = %v, want 1500000", m.NetDebt)
	}
}

func TestFMPRequests_RecordMetrics(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	m := observability.GetMetrics()
	requests := m.ExternalAPIRequestsTotal.WithLabelValues("fmp", "search")
	errs := m.ExternalAPIErrorsTotal.WithLabelValues("fmp", "search")
	requestsBefore := testutil.ToFloat64(requests)
	errorsBefore := testutil.ToFloat64(errs)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"symbol": "AAPL", "name": "Apple Inc."}]`))
	}))
	defer server.Close()

	service := NewFMPService("test-key")
	service.baseURL = server.URL

	if _, err := service.SearchTickers(context.Background(), "apple", 5); err != nil {
		t.Fatalf("SearchTickers() error = %v", err)
	}

	if got := testutil.ToFloat64(requests) - requestsBefore; got != 1 {
		t.Errorf("search request counter delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(errs) - errorsBefore; got != 0 {
		t.Errorf("search error counter delta = %v, want 0", got)
	}
}

func TestFMPRequests_RecordErrorMetrics(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	m := observability.GetMetrics()
	requests := m.ExternalAPIRequestsTotal.WithLabelValues("fmp", "quote")
	errs := m.ExternalAPIErrorsTotal.WithLabelValues("fmp", "quote")
	requestsBefore := testutil.ToFloat64(requests)
	errorsBefore := testutil.ToFloat64(errs)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	service := NewFMPService("test-key")
	service.baseURL = server.URL

	if _, err := service.GetQuote(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error from failing upstream")
	}

	requestDelta := testutil.ToFloat64(requests) - requestsBefore
	errorDelta := testutil.ToFloat64(errs) - errorsBefore
	if requestDelta < 1 {
		t.Errorf("quote request counter delta = %v, want at least 1", requestDelta)
	}
	if errorDelta != requestDelta {
		t.Errorf("error delta = %v, request delta = %v; every failed attempt should count both", errorDelta, requestDelta)
	}
}
