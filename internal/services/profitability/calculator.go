// Package profitability holds the rate and margin math: per-load and
// batch profitability, target-rate back-solving, and the reporting
// aggregations built on top of them.
//
// The calculators are pure functions. Internally everything runs on
// decimals; monetary outputs are rounded to two decimals once, at the
// end, so aggregation never compounds rounding error.
package profitability

import (
	"github.com/shopspring/decimal"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/models"
)

// LoadResult is the profitability breakdown of a single load. Per-mile
// figures are present only when the load carries positive mileage.
type LoadResult struct {
	LoadID     string `json:"loadId,omitempty"`
	LoadNumber string `json:"loadNumber,omitempty"`

	GrossRevenue  float64 `json:"grossRevenue"`
	GrossCost     float64 `json:"grossCost"`
	GrossProfit   float64 `json:"grossProfit"`
	MarginPercent float64 `json:"marginPercent"`

	RevenuePerMile *float64 `json:"revenuePerMile,omitempty"`
	CostPerMile    *float64 `json:"costPerMile,omitempty"`
	MarginPerMile  *float64 `json:"marginPerMile,omitempty"`
}

// BatchTotals sums LoadResult across a batch.
type BatchTotals struct {
	TotalRevenue         float64 `json:"totalRevenue"`
	TotalCost            float64 `json:"totalCost"`
	TotalProfit          float64 `json:"totalProfit"`
	TotalMiles           float64 `json:"totalMiles"`
	AverageMarginPercent float64 `json:"averageMarginPercent"`
	ProfitPerMile        float64 `json:"profitPerMile"`
	LoadCount            int     `json:"loadCount"`
}

type BatchResult struct {
	PerLoad []LoadResult `json:"perLoad"`
	Totals  BatchTotals  `json:"totals"`
}

// loadFigures computes the unrounded decimals a load contributes.
func loadFigures(l *models.Load) (revenue, cost decimal.Decimal) {
	if l.CustomerRate != nil {
		revenue = decimal.NewFromFloat(*l.CustomerRate)
	}
	if l.CarrierRate != nil {
		cost = decimal.NewFromFloat(*l.CarrierRate)
	}
	for _, a := range l.Accessorials {
		amt := decimal.NewFromFloat(a.Amount)
		switch a.BillTo {
		case models.BillToCustomer:
			revenue = revenue.Add(amt)
		case models.BillToCarrier:
			cost = cost.Add(amt)
		}
	}
	return revenue, cost
}

// ForLoad computes the profitability of one load. Margin percent is
// zero when revenue is zero; there is no division fault path.
func ForLoad(l *models.Load) LoadResult {
	revenue, cost := loadFigures(l)
	profit := revenue.Sub(cost)

	res := LoadResult{
		LoadID:       l.ID,
		LoadNumber:   l.LoadNumber,
		GrossRevenue: round(revenue),
		GrossCost:    round(cost),
		GrossProfit:  round(profit),
	}
	if !revenue.IsZero() {
		res.MarginPercent = round(profit.Div(revenue).Mul(decimal.NewFromInt(100)))
	}

	if l.Miles != nil && *l.Miles > 0 {
		miles := decimal.NewFromFloat(*l.Miles)
		res.RevenuePerMile = ptr(round(revenue.Div(miles)))
		res.CostPerMile = ptr(round(cost.Div(miles)))
		res.MarginPerMile = ptr(round(profit.Div(miles)))
	}
	return res
}

// ForBatch computes per-load results plus totals for a load set.
func ForBatch(loads []*models.Load) BatchResult {
	perLoad := make([]LoadResult, 0, len(loads))
	var revenue, cost, miles decimal.Decimal
	for _, l := range loads {
		perLoad = append(perLoad, ForLoad(l))
		r, c := loadFigures(l)
		revenue = revenue.Add(r)
		cost = cost.Add(c)
		if l.Miles != nil && *l.Miles > 0 {
			miles = miles.Add(decimal.NewFromFloat(*l.Miles))
		}
	}
	profit := revenue.Sub(cost)

	totals := BatchTotals{
		TotalRevenue: round(revenue),
		TotalCost:    round(cost),
		TotalProfit:  round(profit),
		TotalMiles:   round(miles),
		LoadCount:    len(loads),
	}
	if !revenue.IsZero() {
		totals.AverageMarginPercent = round(profit.Div(revenue).Mul(decimal.NewFromInt(100)))
	}
	if !miles.IsZero() {
		totals.ProfitPerMile = round(profit.Div(miles))
	}
	return BatchResult{PerLoad: perLoad, Totals: totals}
}

// TargetRate back-solves the minimum customer rate that yields the
// target margin over the given carrier cost:
//
//	revenue = cost / (1 - margin/100)
func TargetRate(carrierRate, targetMarginPercent float64) (float64, error) {
	if targetMarginPercent >= 100 {
		return 0, errs.Computationf("target margin must be below 100%%, got %v", targetMarginPercent)
	}
	cost := decimal.NewFromFloat(carrierRate)
	denom := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(targetMarginPercent).Div(decimal.NewFromInt(100)))
	return round(cost.Div(denom)), nil
}

func round(d decimal.Decimal) float64 {
	v, _ := d.Round(2).Float64()
	return v
}

func ptr(v float64) *float64 { return &v }
