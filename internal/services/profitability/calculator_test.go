package profitability

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/models"
)

func f(v float64) *float64 { return &v }

func load(customer, carrier float64, miles *float64, acc ...models.Accessorial) *models.Load {
	return &models.Load{
		CustomerRate: f(customer),
		CarrierRate:  f(carrier),
		Miles:        miles,
		Accessorials: acc,
	}
}

func TestForLoad(t *testing.T) {
	res := ForLoad(load(1500, 1200, f(500)))
	require.Equal(t, 1500.0, res.GrossRevenue)
	require.Equal(t, 1200.0, res.GrossCost)
	require.Equal(t, 300.0, res.GrossProfit)
	require.Equal(t, 20.0, res.MarginPercent)
	require.NotNil(t, res.RevenuePerMile)
	require.Equal(t, 3.0, *res.RevenuePerMile)
	require.Equal(t, 2.4, *res.CostPerMile)
	require.Equal(t, 0.6, *res.MarginPerMile)
}

func TestForLoad_accessorials(t *testing.T) {
	res := ForLoad(load(1000, 800, nil,
		models.Accessorial{Type: models.AccessorialDetention, Amount: 150, BillTo: models.BillToCustomer},
		models.Accessorial{Type: models.AccessorialLumper, Amount: 75, BillTo: models.BillToCarrier},
		models.Accessorial{Type: models.AccessorialOther, Amount: 999, BillTo: models.BillToInternal},
	))
	require.Equal(t, 1150.0, res.GrossRevenue)
	require.Equal(t, 875.0, res.GrossCost)
	require.Equal(t, 275.0, res.GrossProfit)
}

func TestForLoad_zeroRevenue(t *testing.T) {
	res := ForLoad(&models.Load{CarrierRate: f(500)})
	require.Equal(t, 0.0, res.GrossRevenue)
	require.Equal(t, -500.0, res.GrossProfit)
	require.Equal(t, 0.0, res.MarginPercent)
}

func TestForLoad_noMiles(t *testing.T) {
	require.Nil(t, ForLoad(load(1000, 800, nil)).RevenuePerMile)
	require.Nil(t, ForLoad(load(1000, 800, f(0))).CostPerMile)
	require.Nil(t, ForLoad(load(1000, 800, f(-10))).MarginPerMile)
}

func TestForLoad_pure(t *testing.T) {
	l := load(1234.56, 987.65, f(432.1))
	require.Equal(t, ForLoad(l), ForLoad(l))
}

func TestForBatch_additivity(t *testing.T) {
	loads := []*models.Load{
		load(1000, 800, f(500)),
		load(2000, 1700, f(700)),
		load(500, 600, nil),
	}
	res := ForBatch(loads)
	require.Len(t, res.PerLoad, 3)

	var profit float64
	for _, l := range loads {
		profit += ForLoad(l).GrossProfit
	}
	require.Equal(t, profit, res.Totals.TotalProfit)
	require.Equal(t, 3500.0, res.Totals.TotalRevenue)
	require.Equal(t, 3100.0, res.Totals.TotalCost)
	require.Equal(t, 1200.0, res.Totals.TotalMiles)
	require.InDelta(t, 0.33, res.Totals.ProfitPerMile, 0.001)
	require.Equal(t, 3, res.Totals.LoadCount)
}

func TestForBatch_empty(t *testing.T) {
	res := ForBatch(nil)
	require.Empty(t, res.PerLoad)
	require.Equal(t, 0.0, res.Totals.TotalProfit)
	require.Equal(t, 0.0, res.Totals.AverageMarginPercent)
	require.Equal(t, 0.0, res.Totals.ProfitPerMile)
}

func TestTargetRate(t *testing.T) {
	rate, err := TargetRate(800, 20)
	require.NoError(t, err)
	require.Equal(t, 1000.0, rate)

	rate, err = TargetRate(1000, 15)
	require.NoError(t, err)
	require.InDelta(t, 1176.47, rate, 0.001)
}

func TestTargetRate_marginCollapse(t *testing.T) {
	_, err := TargetRate(800, 100)
	require.Error(t, err)
	require.True(t, errs.IsComputation(err))

	_, err = TargetRate(800, 150)
	require.True(t, errs.IsComputation(err))
}
