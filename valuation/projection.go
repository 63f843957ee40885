package valuation

import (
	"math"

	"stock-compass/models"
)

// Project iterates the valuation engine over a 1..Years horizon for the
// three scenarios. Revenue compounds geometrically at each scenario's
// growth rate; the share count compounds at the shared dilution rate. The
// result has exactly assumptions.Years entries with contiguous year
// numbers starting at currentYear+1.
//
// Missing revenue projects from 0 and missing shares from 1 — the engine
// always yields a (possibly degenerate) series instead of failing.
func Project(metrics *models.FinancialMetrics, assumptions models.ProjectionAssumptions, currentYear int) []models.PriceProjection {
	if assumptions.Years <= 0 {
		return []models.PriceProjection{}
	}

	revenue := metrics.RevenueOrZero()
	shares := metrics.SharesOrOne()

	projections := make([]models.PriceProjection, 0, assumptions.Years)
	for i := 1; i <= assumptions.Years; i++ {
		projectedShares := shares * math.Pow(1+assumptions.DilutionRate/100, float64(i))

		p := models.PriceProjection{Year: currentYear + i}
		for _, s := range models.Scenarios {
			sa := assumptions.Scenario(s)
			projectedRevenue := revenue * math.Pow(1+sa.RevenueGrowth/100, float64(i))
			price := FairValuePrice(projectedRevenue, projectedShares, sa.TargetMargin/100, sa.ExitMultiple, assumptions.Methodology, metrics)

			switch s {
			case models.ScenarioBear:
				p.BearCase = price
			case models.ScenarioBull:
				p.BullCase = price
			default:
				p.BaseCase = price
			}
		}
		projections = append(projections, p)
	}

	return projections
}

// FairValueToday is the zero-growth, zero-dilution special case: the
// engine applied to current trailing revenue and shares with each
// scenario's margin and multiple. It anchors year 0 of the chart.
func FairValueToday(metrics *models.FinancialMetrics, assumptions models.ProjectionAssumptions, currentYear int) models.PriceProjection {
	revenue := metrics.RevenueOrZero()
	shares := metrics.SharesOrOne()

	p := models.PriceProjection{Year: currentYear}
	for _, s := range models.Scenarios {
		sa := assumptions.Scenario(s)
		price := FairValuePrice(revenue, shares, sa.TargetMargin/100, sa.ExitMultiple, assumptions.Methodology, metrics)

		switch s {
		case models.ScenarioBear:
			p.BearCase = price
		case models.ScenarioBull:
			p.BullCase = price
		default:
			p.BaseCase = price
		}
	}
	return p
}

// CAGR returns the compound annual growth rate from currentPrice to
// finalPrice over the horizon, as a percentage. It is undefined (nil) when
// the current price is non-positive or the horizon is empty.
func CAGR(currentPrice, finalPrice float64, years int) *float64 {
	if currentPrice <= 0 || years <= 0 {
		return nil
	}
	r := (math.Pow(finalPrice/currentPrice, 1/float64(years)) - 1) * 100
	return &r
}

// ImpliedAnnualReturns derives per-scenario annualized returns from the
// final projected year against the current market price. Entries are nil
// when CAGR is undefined or the series is empty.
func ImpliedAnnualReturns(currentPrice float64, projections []models.PriceProjection, years int) models.ImpliedReturns {
	if len(projections) == 0 {
		return models.ImpliedReturns{}
	}
	final := projections[len(projections)-1]
	return models.ImpliedReturns{
		BearCase: CAGR(currentPrice, final.BearCase, years),
		BaseCase: CAGR(currentPrice, final.BaseCase, years),
		BullCase: CAGR(currentPrice, final.BullCase, years),
	}
}
