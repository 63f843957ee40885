// Package valuation implements the dashboard's projection engine: pure
// financial formulas that turn a trailing fundamentals snapshot plus
// user-supplied growth/margin/multiple assumptions into multi-year price
// targets. Every function here is total over its numeric domain — degenerate
// inputs produce a well-defined (possibly $0) price, never an error.
package valuation

import (
	"stock-compass/models"
)

// Fixed heuristics that approximate operating and EBITDA margins from the
// single net-margin dial the user controls. They are deliberate
// simplifications, not accounting identities, and must not change: output
// parity with the dashboard depends on them.
const (
	operatingMarginScale = 1.3
	ebitdaMarginScale    = 1.2
)

// FairValuePrice computes a per-share fair value for the given revenue,
// share count, target margin (decimal ratio, e.g. 0.15 for 15%), and exit
// multiple under the selected methodology. metrics supplies net debt for
// EV-based methods, defaulting to 0 when unknown.
//
// A non-positive share count falls back to 1 so the division never
// collapses; a negative equity value clamps to a $0 price.
func FairValuePrice(revenue, sharesOutstanding, targetMargin, exitMultiple float64, methodology models.Methodology, metrics *models.FinancialMetrics) float64 {
	if sharesOutstanding <= 0 {
		sharesOutstanding = 1
	}

	netDebt := metrics.NetDebtOrZero()

	var equityValue float64
	switch methodology {
	case models.MethodologyPE:
		// Revenue × margin is a net-income proxy; no debt adjustment for
		// an equity multiple.
		equityValue = revenue * targetMargin * exitMultiple
	case models.MethodologyEVEBIT:
		operatingMargin := targetMargin * operatingMarginScale
		equityValue = revenue*operatingMargin*exitMultiple - netDebt
	case models.MethodologyEVEBITDA:
		operatingMargin := targetMargin * operatingMarginScale
		equityValue = revenue*operatingMargin*ebitdaMarginScale*exitMultiple - netDebt
	case models.MethodologyEVRevenue:
		equityValue = revenue*exitMultiple - netDebt
	case models.MethodologyEVFCF:
		// FCF margin approximated by the net-margin dial.
		equityValue = revenue*targetMargin*exitMultiple - netDebt
	default:
		// Unknown methodology behaves as P/E rather than failing; the API
		// layer rejects bad methodology strings before they reach here.
		equityValue = revenue * targetMargin * exitMultiple
	}

	price := equityValue / sharesOutstanding
	if price < 0 {
		return 0
	}
	return price
}
