package valuation

import (
	"math"

	"stock-compass/models"
)

// Seeding policy for a fresh assumptions object. The growth triple and the
// multiple scaling are fixed; margins are centered on the company's current
// net margin with an additive spread. The spread is additive rather than
// multiplicative so the bear < base < bull ordering survives negative
// current margins.
const (
	defaultBearGrowth = 5
	defaultBaseGrowth = 10
	defaultBullGrowth = 18

	defaultMarginCenter = 10 // used when the current net margin is unknown
	marginSpreadRatio   = 0.25
	marginSpreadFloor   = 5

	bearMultipleScale = 0.7
	bullMultipleScale = 1.3

	// DefaultYears is the standard projection horizon.
	DefaultYears = 5

	// DefaultDilutionRate is the shared annual share dilution assumption (%).
	DefaultDilutionRate = 1.0
)

// Fallback exit multiples used when the snapshot carries no usable current
// multiple for the selected methodology (fresh listings, loss-making
// companies with negative trailing multiples). Rough sector-agnostic
// midpoints.
var fallbackMultiples = map[models.Methodology]float64{
	models.MethodologyPE:        20,
	models.MethodologyEVEBIT:    15,
	models.MethodologyEVEBITDA:  12,
	models.MethodologyEVRevenue: 3,
	models.MethodologyEVFCF:     20,
}

// DefaultAssumptions seeds a full assumptions object from a metrics
// snapshot under the given methodology.
func DefaultAssumptions(metrics *models.FinancialMetrics, methodology models.Methodology) models.ProjectionAssumptions {
	bearMargin, baseMargin, bullMargin := defaultMargins(metrics)
	bearMult, baseMult, bullMult := defaultMultiples(metrics, methodology)

	return models.ProjectionAssumptions{
		Bear: models.ScenarioAssumption{
			RevenueGrowth: defaultBearGrowth,
			TargetMargin:  bearMargin,
			ExitMultiple:  bearMult,
		},
		Base: models.ScenarioAssumption{
			RevenueGrowth: defaultBaseGrowth,
			TargetMargin:  baseMargin,
			ExitMultiple:  baseMult,
		},
		Bull: models.ScenarioAssumption{
			RevenueGrowth: defaultBullGrowth,
			TargetMargin:  bullMargin,
			ExitMultiple:  bullMult,
		},
		DilutionRate: DefaultDilutionRate,
		Methodology:  methodology,
		Years:        DefaultYears,
	}
}

// ChangeMethodology returns a copy of the assumptions switched to a new
// methodology, with all three exit multiples re-seeded from the new
// methodology's current multiple. Growth, margins, dilution and horizon
// are preserved.
func ChangeMethodology(a models.ProjectionAssumptions, metrics *models.FinancialMetrics, methodology models.Methodology) models.ProjectionAssumptions {
	bearMult, baseMult, bullMult := defaultMultiples(metrics, methodology)
	a.Methodology = methodology
	a.Bear.ExitMultiple = bearMult
	a.Base.ExitMultiple = baseMult
	a.Bull.ExitMultiple = bullMult
	return a
}

func defaultMargins(metrics *models.FinancialMetrics) (bear, base, bull float64) {
	center := float64(defaultMarginCenter)
	if metrics != nil && metrics.NetMargin != nil {
		center = *metrics.NetMargin
	}
	spread := math.Max(math.Abs(center)*marginSpreadRatio, marginSpreadFloor)
	return center - spread, center, center + spread
}

func defaultMultiples(metrics *models.FinancialMetrics, methodology models.Methodology) (bear, base, bull float64) {
	current := CurrentMultiple(metrics, methodology)
	return current * bearMultipleScale, current, current * bullMultipleScale
}

// CurrentMultiple returns the company's current valuation multiple under
// the given methodology, deriving EV-based multiples from enterprise value
// when the snapshot does not carry them directly. Unknown or non-positive
// multiples fall back to a fixed per-methodology default.
func CurrentMultiple(metrics *models.FinancialMetrics, methodology models.Methodology) float64 {
	fallback := fallbackMultiples[methodology]
	if metrics == nil {
		return fallback
	}

	var m *float64
	switch methodology {
	case models.MethodologyPE:
		m = metrics.PERatio
	case models.MethodologyEVEBIT:
		m = orDerived(metrics.EVToEBIT, metrics.EnterpriseValue, metrics.EBIT)
	case models.MethodologyEVEBITDA:
		m = orDerived(metrics.EVToEBITDA, metrics.EnterpriseValue, metrics.EBITDA)
	case models.MethodologyEVRevenue:
		m = orDerived(metrics.EVToRevenue, metrics.EnterpriseValue, metrics.Revenue)
	case models.MethodologyEVFCF:
		m = orDerived(metrics.EVToFCF, metrics.EnterpriseValue, metrics.FreeCashFlow)
	}

	if m == nil || *m <= 0 {
		return fallback
	}
	return *m
}

// orDerived prefers the reported multiple, otherwise divides numerator by
// denominator when both are known and the denominator is positive.
func orDerived(reported, numerator, denominator *float64) *float64 {
	if reported != nil {
		return reported
	}
	if numerator == nil || denominator == nil || *denominator <= 0 {
		return nil
	}
	derived := *numerator / *denominator
	return &derived
}
