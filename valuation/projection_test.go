package valuation

import (
	"math"
	"reflect"
	"testing"

	"stock-compass/models"
)

func testMetrics() *models.FinancialMetrics {
	return &models.FinancialMetrics{
		Symbol:            "TEST",
		Revenue:           models.Float(1000),
		SharesOutstanding: models.Float(100),
		NetDebt:           models.Float(200),
		NetMargin:         models.Float(12),
	}
}

func testAssumptions() models.ProjectionAssumptions {
	return models.ProjectionAssumptions{
		Bear:         models.ScenarioAssumption{RevenueGrowth: 5, TargetMargin: 8, ExitMultiple: 14},
		Base:         models.ScenarioAssumption{RevenueGrowth: 10, TargetMargin: 12, ExitMultiple: 20},
		Bull:         models.ScenarioAssumption{RevenueGrowth: 18, TargetMargin: 15, ExitMultiple: 26},
		DilutionRate: 1,
		Methodology:  models.MethodologyPE,
		Years:        5,
	}
}

func TestProject_YearsContiguous(t *testing.T) {
	const currentYear = 2026
	got := Project(testMetrics(), testAssumptions(), currentYear)

	if len(got) != 5 {
		t.Fatalf("Project() returned %d entries, want 5", len(got))
	}
	for i, p := range got {
		if p.Year != currentYear+1+i {
			t.Errorf("Projections[%d].Year = %d, want %d", i, p.Year, currentYear+1+i)
		}
	}
}

func TestProject_FirstYearValues(t *testing.T) {
	metrics := testMetrics()
	assumptions := testAssumptions()
	got := Project(metrics, assumptions, 2026)

	// Year 1 base case: revenue 1000×1.10, shares 100×1.01, margin 12%, multiple 20
	wantBase := (1000 * 1.10 * 0.12 * 20) / (100 * 1.01)
	if math.Abs(got[0].BaseCase-wantBase) > 1e-9 {
		t.Errorf("year 1 base case = %v, want %v", got[0].BaseCase, wantBase)
	}

	wantBear := (1000 * 1.05 * 0.08 * 14) / (100 * 1.01)
	if math.Abs(got[0].BearCase-wantBear) > 1e-9 {
		t.Errorf("year 1 bear case = %v, want %v", got[0].BearCase, wantBear)
	}
}

func TestProject_GrowthMonotonicity(t *testing.T) {
	metrics := testMetrics()
	low := testAssumptions()
	high := low.WithRevenueGrowth(models.ScenarioBase, low.Base.RevenueGrowth+5)

	lowSeries := Project(metrics, low, 2026)
	highSeries := Project(metrics, high, 2026)

	for i := range lowSeries {
		if highSeries[i].BaseCase <= lowSeries[i].BaseCase {
			t.Errorf("year %d: higher growth should strictly raise base price, got %v <= %v",
				lowSeries[i].Year, highSeries[i].BaseCase, lowSeries[i].BaseCase)
		}
	}
}

func TestProject_Idempotent(t *testing.T) {
	metrics := testMetrics()
	assumptions := testAssumptions()

	first := Project(metrics, assumptions, 2026)
	second := Project(metrics, assumptions, 2026)

	if !reflect.DeepEqual(first, second) {
		t.Error("Project() is not idempotent for identical inputs")
	}
}

func TestProject_DegenerateInputs(t *testing.T) {
	t.Run("missing revenue", func(t *testing.T) {
		metrics := &models.FinancialMetrics{SharesOutstanding: models.Float(100)}
		got := Project(metrics, testAssumptions(), 2026)

		if len(got) != 5 {
			t.Fatalf("expected full series for missing revenue, got %d entries", len(got))
		}
		for _, p := range got {
			if p.BearCase != 0 || p.BaseCase != 0 || p.BullCase != 0 {
				t.Errorf("year %d: missing revenue should project $0, got %+v", p.Year, p)
			}
		}
	})

	t.Run("missing shares", func(t *testing.T) {
		metrics := &models.FinancialMetrics{Revenue: models.Float(1000)}
		got := Project(metrics, testAssumptions(), 2026)

		if len(got) != 5 {
			t.Fatalf("expected full series for missing shares, got %d entries", len(got))
		}
		// Shares floor of 1 means the full equity value per "share"
		if got[0].BaseCase <= 0 {
			t.Errorf("shares floor should keep prices finite and positive, got %v", got[0].BaseCase)
		}
	})

	t.Run("zero horizon", func(t *testing.T) {
		got := Project(testMetrics(), testAssumptions().WithYears(0), 2026)
		if len(got) != 0 {
			t.Errorf("zero-year horizon should produce empty series, got %d entries", len(got))
		}
	})
}

func TestFairValueToday(t *testing.T) {
	metrics := testMetrics()
	assumptions := testAssumptions()

	got := FairValueToday(metrics, assumptions, 2026)

	if got.Year != 2026 {
		t.Errorf("FairValueToday year = %d, want 2026", got.Year)
	}

	// No growth, no dilution: base = 1000 × 0.12 × 20 / 100
	wantBase := 24.0
	if math.Abs(got.BaseCase-wantBase) > 1e-9 {
		t.Errorf("fair value today base = %v, want %v", got.BaseCase, wantBase)
	}
}

func TestCAGR(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		final := 100 * math.Pow(1.10, 5)
		got := CAGR(100, final, 5)
		if got == nil {
			t.Fatal("CAGR() = nil, want value")
		}
		if math.Abs(*got-10.0) > 1e-9 {
			t.Errorf("CAGR() = %v, want 10.0", *got)
		}
	})

	t.Run("zero current price", func(t *testing.T) {
		if got := CAGR(0, 200, 5); got != nil {
			t.Errorf("CAGR(0, ...) = %v, want nil", *got)
		}
	})

	t.Run("negative current price", func(t *testing.T) {
		if got := CAGR(-10, 200, 5); got != nil {
			t.Errorf("CAGR(-10, ...) = %v, want nil", *got)
		}
	})

	t.Run("zero years", func(t *testing.T) {
		if got := CAGR(100, 200, 0); got != nil {
			t.Errorf("CAGR(..., 0) = %v, want nil", *got)
		}
	})

	t.Run("declining price", func(t *testing.T) {
		got := CAGR(100, 50, 5)
		if got == nil {
			t.Fatal("CAGR() = nil, want negative value")
		}
		if *got >= 0 {
			t.Errorf("CAGR for halving = %v, want < 0", *got)
		}
	})
}

func TestImpliedAnnualReturns(t *testing.T) {
	metrics := testMetrics()
	assumptions := testAssumptions()
	series := Project(metrics, assumptions, 2026)

	t.Run("defined for positive price", func(t *testing.T) {
		got := ImpliedAnnualReturns(25, series, assumptions.Years)
		if got.BearCase == nil || got.BaseCase == nil || got.BullCase == nil {
			t.Fatal("expected all scenario returns to be defined")
		}
		if !(*got.BullCase > *got.BaseCase && *got.BaseCase > *got.BearCase) {
			t.Errorf("expected bull > base > bear returns, got bear=%v base=%v bull=%v",
				*got.BearCase, *got.BaseCase, *got.BullCase)
		}
	})

	t.Run("undefined without current price", func(t *testing.T) {
		got := ImpliedAnnualReturns(0, series, assumptions.Years)
		if got.BearCase != nil || got.BaseCase != nil || got.BullCase != nil {
			t.Error("expected nil returns when current price is zero")
		}
	})

	t.Run("empty series", func(t *testing.T) {
		got := ImpliedAnnualReturns(25, nil, assumptions.Years)
		if got.BaseCase != nil {
			t.Error("expected nil returns for empty series")
		}
	})
}
