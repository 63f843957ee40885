package models

import (
	"time"

	"github.com/google/uuid"
)

// TickerLookup records a ticker the user researched, powering the
// recent-history panel on the dashboard.
type TickerLookup struct {
	ID          uuid.UUID `json:"id"`
	Symbol      string    `json:"symbol"`
	CompanyName string    `json:"company_name,omitempty"`
	ViewedAt    time.Time `json:"viewed_at"`
}

// NewTickerLookup creates a lookup record for a symbol view
func NewTickerLookup(symbol, companyName string) *TickerLookup {
	return &TickerLookup{
		ID:          uuid.New(),
		Symbol:      symbol,
		CompanyName: companyName,
		ViewedAt:    time.Now(),
	}
}
