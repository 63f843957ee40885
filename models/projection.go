package models

import (
	"fmt"
	"time"
)

// Methodology selects the valuation basis used to convert projected
// financials into an equity value.
type Methodology string

const (
	MethodologyPE        Methodology = "pe"
	MethodologyEVEBIT    Methodology = "evEbit"
	MethodologyEVEBITDA  Methodology = "evEbitda"
	MethodologyEVRevenue Methodology = "evRevenue"
	MethodologyEVFCF     Methodology = "evFcf"
)

// Methodologies lists every supported valuation methodology.
var Methodologies = []Methodology{
	MethodologyPE,
	MethodologyEVEBIT,
	MethodologyEVEBITDA,
	MethodologyEVRevenue,
	MethodologyEVFCF,
}

// ParseMethodology validates a methodology string from user input
func ParseMethodology(s string) (Methodology, error) {
	for _, m := range Methodologies {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown methodology %q", s)
}

// Valid reports whether the methodology is one of the supported variants
func (m Methodology) Valid() bool {
	_, err := ParseMethodology(string(m))
	return err == nil
}

// Scenario identifies one of the three projection cases
type Scenario string

const (
	ScenarioBear Scenario = "bear"
	ScenarioBase Scenario = "base"
	ScenarioBull Scenario = "bull"
)

// Scenarios lists the three cases in conventional order. The order is a
// presentation convention only; nothing enforces bear < base < bull.
var Scenarios = []Scenario{ScenarioBear, ScenarioBase, ScenarioBull}

// ScenarioAssumption holds the three per-scenario dials: revenue growth
// (% CAGR), target margin (%), and exit multiple (multiplier).
type ScenarioAssumption struct {
	RevenueGrowth float64 `json:"revenue_growth"`
	TargetMargin  float64 `json:"target_margin"`
	ExitMultiple  float64 `json:"exit_multiple"`
}

// ProjectionAssumptions is the full set of user inputs driving a
// projection. It is a value type: the With* transforms return modified
// copies and never mutate the receiver.
type ProjectionAssumptions struct {
	Bear         ScenarioAssumption `json:"bear"`
	Base         ScenarioAssumption `json:"base"`
	Bull         ScenarioAssumption `json:"bull"`
	DilutionRate float64            `json:"dilution_rate"`
	Methodology  Methodology        `json:"methodology"`
	Years        int                `json:"years"`
}

// Scenario returns the assumption triple for the given scenario
func (a ProjectionAssumptions) Scenario(s Scenario) ScenarioAssumption {
	switch s {
	case ScenarioBear:
		return a.Bear
	case ScenarioBull:
		return a.Bull
	default:
		return a.Base
	}
}

func (a ProjectionAssumptions) withScenario(s Scenario, sa ScenarioAssumption) ProjectionAssumptions {
	switch s {
	case ScenarioBear:
		a.Bear = sa
	case ScenarioBull:
		a.Bull = sa
	default:
		a.Base = sa
	}
	return a
}

// WithRevenueGrowth returns a copy with one scenario's growth rate changed
func (a ProjectionAssumptions) WithRevenueGrowth(s Scenario, pct float64) ProjectionAssumptions {
	sa := a.Scenario(s)
	sa.RevenueGrowth = pct
	return a.withScenario(s, sa)
}

// WithTargetMargin returns a copy with one scenario's target margin changed
func (a ProjectionAssumptions) WithTargetMargin(s Scenario, pct float64) ProjectionAssumptions {
	sa := a.Scenario(s)
	sa.TargetMargin = pct
	return a.withScenario(s, sa)
}

// WithExitMultiple returns a copy with one scenario's exit multiple changed
func (a ProjectionAssumptions) WithExitMultiple(s Scenario, multiple float64) ProjectionAssumptions {
	sa := a.Scenario(s)
	sa.ExitMultiple = multiple
	return a.withScenario(s, sa)
}

// WithDilutionRate returns a copy with the shared annual dilution rate changed
func (a ProjectionAssumptions) WithDilutionRate(pct float64) ProjectionAssumptions {
	a.DilutionRate = pct
	return a
}

// WithYears returns a copy with the projection horizon changed
func (a ProjectionAssumptions) WithYears(years int) ProjectionAssumptions {
	a.Years = years
	return a
}

// PriceProjection is one projected year of the three scenario prices.
// Produced fresh on every computation and never mutated.
type PriceProjection struct {
	Year     int     `json:"year"`
	BearCase float64 `json:"bear_case"`
	BaseCase float64 `json:"base_case"`
	BullCase float64 `json:"bull_case"`
}

// ImpliedReturns holds the annualized return implied by each scenario's
// final-year price against the current market price. A nil entry means the
// return is undefined (no current price, or a zero-year horizon).
type ImpliedReturns struct {
	BearCase *float64 `json:"bear_case,omitempty"`
	BaseCase *float64 `json:"base_case,omitempty"`
	BullCase *float64 `json:"bull_case,omitempty"`
}

// ProjectionResult is the full output of one projection computation
type ProjectionResult struct {
	Symbol         string                `json:"symbol"`
	Methodology    Methodology           `json:"methodology"`
	CurrentPrice   *float64              `json:"current_price,omitempty"`
	Assumptions    ProjectionAssumptions `json:"assumptions"`
	FairValueToday PriceProjection       `json:"fair_value_today"`
	Projections    []PriceProjection     `json:"projections"`
	ImpliedReturns ImpliedReturns        `json:"implied_returns"`
	ComputedAt     time.Time             `json:"computed_at"`
}
