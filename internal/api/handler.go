package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"stock-compass/config"
	"stock-compass/internal/app"
	"stock-compass/models"
	"stock-compass/services"
)

// Handler handles HTTP API requests
type Handler struct {
	app *app.App
	cfg *config.Config
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	return &Handler{app: application, cfg: cfg}
}

// HandleIndex serves a minimal landing document pointing at the API
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]string{
		"service": "stock-compass",
		"health":  "/api/health",
		"metrics": "/metrics",
	})
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"services": map[string]string{
			"database": "unknown",
			"provider": "unknown",
		},
	}

	svcStatus := status["services"].(map[string]string)

	if h.app.Repo() != nil {
		if err := h.app.Repo().Health(r.Context()); err == nil {
			svcStatus["database"] = "connected"
		} else {
			svcStatus["database"] = "disconnected"
			status["status"] = "degraded"
		}
	} else {
		svcStatus["database"] = "not_configured"
	}

	if h.app.HasProvider() {
		svcStatus["provider"] = "configured"
	} else {
		svcStatus["provider"] = "not_configured"
	}

	// Add circuit breaker status
	cbStatus := services.GetGlobalRegistry().Status()
	status["circuit_breakers"] = cbStatus

	// Check if any breakers are open (degraded state)
	for _, cb := range cbStatus {
		if cb.State == "open" {
			status["status"] = "degraded"
			break
		}
	}

	h.jsonResponse(w, status)
}

// HandleSearch returns ticker matches for an autocomplete query
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.jsonError(w, "query parameter 'q' is required", http.StatusBadRequest)
		return
	}

	limit := h.ParseLimitParam(r, 10)

	results, err := h.app.SearchTickers(r.Context(), query, limit)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	if results == nil {
		results = []models.SearchResult{}
	}
	h.jsonResponse(w, results)
}

// HandleGetQuote returns the latest quote for a symbol
func (h *Handler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	quote, err := h.app.GetQuote(r.Context(), symbol)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.jsonResponse(w, quote)
}

// HandleGetMetrics returns normalized trailing financials for a symbol
func (h *Handler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	metrics, err := h.app.GetFinancialMetrics(r.Context(), symbol)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.jsonResponse(w, metrics)
}

// HandleGetAssumptions returns default projection assumptions seeded from
// a symbol's trailing financials. The methodology defaults to P/E.
func (h *Handler) HandleGetAssumptions(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	methodology := models.MethodologyPE
	if param := r.URL.Query().Get("methodology"); param != "" {
		parsed, err := models.ParseMethodology(param)
		if err != nil {
			h.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		methodology = parsed
	}

	assumptions, err := h.app.DefaultAssumptions(r.Context(), symbol, methodology)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.jsonResponse(w, assumptions)
}

// ProjectionRequest is the body of a projection computation request.
// Metrics are optional; when present the projection is computed from them
// instead of fetching from the provider.
type ProjectionRequest struct {
	Assumptions models.ProjectionAssumptions `json:"assumptions"`
	Metrics     *models.FinancialMetrics     `json:"metrics,omitempty"`
}

// HandleBuildProjection computes price targets for a symbol
func (h *Handler) HandleBuildProjection(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	var req ProjectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid JSON request", http.StatusBadRequest)
		return
	}

	var result *models.ProjectionResult
	var err error
	if req.Metrics != nil {
		result, err = h.app.BuildProjectionFrom(r.Context(), symbol, req.Metrics, req.Assumptions)
	} else {
		result, err = h.app.BuildProjection(r.Context(), symbol, req.Assumptions)
	}
	if err != nil {
		if isValidationError(err) {
			h.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.serviceError(w, err)
		return
	}

	h.jsonResponse(w, result)
}

// HandleGetHistory returns recently viewed tickers
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := h.ParseLimitParam(r, 10)

	lookups, err := h.app.GetRecentLookups(r.Context(), limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if lookups == nil {
		lookups = []models.TickerLookup{}
	}
	h.jsonResponse(w, lookups)
}

// HandleDeleteHistory removes a symbol's viewing history and cached data
func (h *Handler) HandleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	if err := h.app.ForgetSymbol(r.Context(), symbol); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helper functions

// symbolParam extracts and validates the symbol path parameter
func (h *Handler) symbolParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
	if err := h.ValidateSymbol(symbol); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return symbol, true
}

// ValidateSymbol validates a stock symbol
func (h *Handler) ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	if len(symbol) > 10 {
		return fmt.Errorf("symbol too long (max 10 characters)")
	}

	matched, _ := regexp.MatchString("^[A-Z0-9.-]+$", symbol)
	if !matched {
		return fmt.Errorf("invalid symbol format (alphanumeric, dots, and dashes only)")
	}

	return nil
}

// ParseLimitParam parses the limit query parameter
func (h *Handler) ParseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

// serviceError maps upstream failures to 503 and everything else to 500
func (h *Handler) serviceError(w http.ResponseWriter, err error) {
	if strings.Contains(err.Error(), "not configured") || strings.Contains(err.Error(), "circuit breaker") {
		h.jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	h.jsonError(w, err.Error(), http.StatusInternalServerError)
}

// isValidationError reports whether the failure came from bad user input
func isValidationError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unknown methodology") || strings.Contains(msg, "exceeds maximum")
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
