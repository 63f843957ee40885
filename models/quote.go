package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockQuote represents the latest market quote for a symbol
type StockQuote struct {
	Symbol        string          `json:"symbol"`
	CompanyName   string          `json:"company_name,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent float64         `json:"change_percent"`
	DayHigh       decimal.Decimal `json:"day_high"`
	DayLow        decimal.Decimal `json:"day_low"`
	Volume        int64           `json:"volume"`
	MarketCap     int64           `json:"market_cap"`
	Timestamp     time.Time       `json:"timestamp"`
}

// SearchResult represents a single ticker search match for autocomplete
type SearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange,omitempty"`
	Currency string `json:"currency,omitempty"`
}
