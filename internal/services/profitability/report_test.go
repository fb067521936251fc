package profitability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SprintLogistics/sptms/internal/models"
)

func laneLoad(customer, carrier float64, origin, dest string, customerID string) *models.Load {
	l := load(customer, carrier, nil)
	l.CustomerID = customerID
	l.PickupAddress = &models.Address{City: "A", State: origin}
	l.DeliveryAddress = &models.Address{City: "B", State: dest}
	return l
}

func TestByCustomer_sortedByProfit(t *testing.T) {
	loads := []*models.Load{
		laneLoad(1000, 900, "TX", "GA", "c1"),
		laneLoad(2000, 1500, "TX", "GA", "c2"),
		laneLoad(1000, 800, "TX", "GA", "c1"),
	}
	groups := ByCustomer(loads, map[string]string{"c1": "Acme", "c2": "Globex"})
	require.Len(t, groups, 2)

	require.Equal(t, "c2", groups[0].CustomerID)
	require.Equal(t, "Globex", groups[0].CustomerName)
	require.Equal(t, 500.0, groups[0].TotalProfit)

	require.Equal(t, "c1", groups[1].CustomerID)
	require.Equal(t, 2, groups[1].LoadCount)
	require.Equal(t, 300.0, groups[1].TotalProfit)
	require.Equal(t, 15.0, groups[1].AverageMarginPercent)
}

func TestByCarrier_sortedByPaid(t *testing.T) {
	a := laneLoad(1000, 900, "TX", "GA", "c1")
	a.CarrierID = "k1"
	b := laneLoad(2000, 1500, "TX", "GA", "c1")
	b.CarrierID = "k2"
	unassigned := laneLoad(500, 0, "TX", "GA", "c1")

	groups := ByCarrier([]*models.Load{a, b, unassigned}, nil)
	require.Len(t, groups, 2)
	require.Equal(t, "k2", groups[0].CarrierID)
	require.Equal(t, 1500.0, groups[0].TotalPaid)
	require.Equal(t, 1500.0, groups[0].AverageRatePerLoad)
	require.Equal(t, "k1", groups[1].CarrierID)
}

func TestByLane_groupsByStatePair(t *testing.T) {
	loads := []*models.Load{
		laneLoad(1000, 800, "TX", "GA", "c1"),
		laneLoad(1200, 900, "TX", "GA", "c2"),
		laneLoad(900, 850, "IL", "OH", "c1"),
		laneLoad(700, 600, "", "OH", "c1"), // no origin state, skipped
	}
	groups := ByLane(loads)
	require.Len(t, groups, 2)

	require.Equal(t, "TX", groups[0].OriginState)
	require.Equal(t, "GA", groups[0].DestinationState)
	require.Equal(t, 2, groups[0].LoadCount)
	require.Equal(t, 500.0, groups[0].TotalProfit)

	require.Equal(t, "IL", groups[1].OriginState)
	require.Equal(t, 50.0, groups[1].TotalProfit)
}

type fakeLoadLister struct {
	out []*models.Load
}

func (f *fakeLoadLister) InPeriod(ctx context.Context, start, end time.Time) ([]*models.Load, error) {
	return f.out, nil
}

type fakeCustomerGetter struct {
	byID map[string]*models.Customer
}

func (f *fakeCustomerGetter) ByID(ctx context.Context, id string) (*models.Customer, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("customers not found: %s", id)
	}
	return c, nil
}

type fakeCarrierGetter struct {
	byID map[string]*models.Carrier
}

func (f *fakeCarrierGetter) ByID(ctx context.Context, id string) (*models.Carrier, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("carriers not found: %s", id)
	}
	return c, nil
}

func TestReporter_Summarize(t *testing.T) {
	var loads []*models.Load
	// 12 customers so the top list has to truncate.
	for i := 0; i < 12; i++ {
		l := laneLoad(1000+float64(i)*100, 800, "TX", "GA", fmt.Sprintf("c%d", i))
		l.Status = models.LoadStatusDelivered
		l.CarrierID = "k1"
		loads = append(loads, l)
	}
	loads[0].Status = models.LoadStatusBooked

	r := NewReporter(
		&fakeLoadLister{out: loads},
		&fakeCustomerGetter{byID: map[string]*models.Customer{
			"c11": {ID: "c11", CompanyName: "Best Freight"},
		}},
		&fakeCarrierGetter{byID: map[string]*models.Carrier{
			"k1": {ID: "k1", CompanyName: "Fast Trucking"},
		}},
	)

	sum, err := r.Summarize(context.Background(), time.Now().Add(-24*time.Hour), time.Now())
	require.NoError(t, err)

	require.Len(t, sum.TopCustomers, 10)
	// Highest customer rate means highest profit, so c11 leads.
	require.Equal(t, "c11", sum.TopCustomers[0].CustomerID)
	require.Equal(t, "Best Freight", sum.TopCustomers[0].CustomerName)

	require.Len(t, sum.TopLanes, 1)
	require.Equal(t, 12, sum.TopLanes[0].LoadCount)

	require.Len(t, sum.Carriers, 1)
	require.Equal(t, "Fast Trucking", sum.Carriers[0].CarrierName)
	require.Equal(t, 12, sum.Carriers[0].LoadCount)

	require.Equal(t, 11, sum.LoadsByStatus[models.LoadStatusDelivered])
	require.Equal(t, 1, sum.LoadsByStatus[models.LoadStatusBooked])
	require.Equal(t, 12, sum.Totals.LoadCount)
}
