// Package money keeps monetary arithmetic exact until the final
// rounding step. Intermediate sums are decimal; rounding to cents
// happens once, half away from zero.
package money

import "github.com/shopspring/decimal"

// Round2 rounds to 2 decimal places, half away from zero.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Sum adds amounts without intermediate rounding and rounds the result
// to 2 decimal places.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	f, _ := total.Round(2).Float64()
	return f
}

// Percent returns base × pct/100 rounded to 2 decimal places.
func Percent(base, pct float64) float64 {
	f, _ := decimal.NewFromFloat(base).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100)).
		Round(2).Float64()
	return f
}
