package models

import "time"

// FinancialMetrics is a snapshot of a company's trailing fundamentals as
// normalized from the data provider. Optional fields are pointers so that
// an unknown value stays unknown instead of collapsing to zero; formulas
// that allow a zero default (net debt) apply it at the point of use.
type FinancialMetrics struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"company_name,omitempty"`
	Sector      string `json:"sector,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Currency    string `json:"currency,omitempty"`

	Revenue           *float64 `json:"revenue,omitempty"`
	NetIncome         *float64 `json:"net_income,omitempty"`
	EBIT              *float64 `json:"ebit,omitempty"`
	EBITDA            *float64 `json:"ebitda,omitempty"`
	FreeCashFlow      *float64 `json:"free_cash_flow,omitempty"`
	EPS               *float64 `json:"eps,omitempty"`
	SharesOutstanding *float64 `json:"shares_outstanding,omitempty"`
	TotalDebt         *float64 `json:"total_debt,omitempty"`
	TotalCash         *float64 `json:"total_cash,omitempty"`
	NetDebt           *float64 `json:"net_debt,omitempty"`
	EnterpriseValue   *float64 `json:"enterprise_value,omitempty"`
	MarketCap         *float64 `json:"market_cap,omitempty"`

	PERatio      *float64 `json:"pe_ratio,omitempty"`
	ForwardPE    *float64 `json:"forward_pe,omitempty"`
	PEGRatio     *float64 `json:"peg_ratio,omitempty"`
	PriceToSales *float64 `json:"price_to_sales,omitempty"`
	PriceToBook  *float64 `json:"price_to_book,omitempty"`
	EVToRevenue  *float64 `json:"ev_to_revenue,omitempty"`
	EVToEBIT     *float64 `json:"ev_to_ebit,omitempty"`
	EVToEBITDA   *float64 `json:"ev_to_ebitda,omitempty"`
	EVToFCF      *float64 `json:"ev_to_fcf,omitempty"`

	GrossMargin     *float64 `json:"gross_margin,omitempty"`
	OperatingMargin *float64 `json:"operating_margin,omitempty"`
	NetMargin       *float64 `json:"net_margin,omitempty"`
	ROE             *float64 `json:"roe,omitempty"`
	ROA             *float64 `json:"roa,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NetDebtOrZero returns net debt, defaulting to 0 when unknown. This is the
// one place where an absent field is deliberately coerced: EV-based
// valuation formulas treat unknown net debt as zero rather than failing.
func (m *FinancialMetrics) NetDebtOrZero() float64 {
	if m == nil || m.NetDebt == nil {
		return 0
	}
	return *m.NetDebt
}

// RevenueOrZero returns trailing revenue, defaulting to 0 when unknown.
// A zero-revenue company projects to a $0 price rather than an error.
func (m *FinancialMetrics) RevenueOrZero() float64 {
	if m == nil || m.Revenue == nil {
		return 0
	}
	return *m.Revenue
}

// SharesOrOne returns shares outstanding, substituting 1 when the value is
// missing or non-positive so per-share division never collapses.
func (m *FinancialMetrics) SharesOrOne() float64 {
	if m == nil || m.SharesOutstanding == nil || *m.SharesOutstanding <= 0 {
		return 1
	}
	return *m.SharesOutstanding
}

// Float is a convenience for building optional metric fields in place.
func Float(v float64) *float64 {
	return &v
}
