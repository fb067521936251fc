package profitability

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SprintLogistics/sptms/internal/models"
)

const topN = 10

// CustomerGroup aggregates the loads of one customer.
type CustomerGroup struct {
	CustomerID           string  `json:"customerId"`
	CustomerName         string  `json:"customerName,omitempty"`
	LoadCount            int     `json:"loadCount"`
	TotalRevenue         float64 `json:"totalRevenue"`
	TotalProfit          float64 `json:"totalProfit"`
	AverageMarginPercent float64 `json:"averageMarginPercent"`
}

// CarrierGroup aggregates the loads of one carrier by what we pay it.
type CarrierGroup struct {
	CarrierID          string  `json:"carrierId"`
	CarrierName        string  `json:"carrierName,omitempty"`
	LoadCount          int     `json:"loadCount"`
	TotalPaid          float64 `json:"totalPaid"`
	AverageRatePerLoad float64 `json:"averageRatePerLoad"`
	AverageRatePerMile float64 `json:"averageRatePerMile,omitempty"`
}

// LaneGroup aggregates loads by origin/destination state pair. State
// level, not city level: coarse enough to have repeat lanes at
// brokerage volume.
type LaneGroup struct {
	OriginState          string  `json:"originState"`
	DestinationState     string  `json:"destinationState"`
	LoadCount            int     `json:"loadCount"`
	TotalRevenue         float64 `json:"totalRevenue"`
	TotalProfit          float64 `json:"totalProfit"`
	AverageMarginPercent float64 `json:"averageMarginPercent"`
}

type Summary struct {
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`

	Totals        BatchTotals               `json:"totals"`
	TopCustomers  []CustomerGroup           `json:"topCustomers"`
	TopLanes      []LaneGroup               `json:"topLanes"`
	Carriers      []CarrierGroup            `json:"carriers"`
	LoadsByStatus map[models.LoadStatus]int `json:"loadsByStatus"`
}

type group struct {
	key     string
	loads   []*models.Load
	revenue decimal.Decimal
	cost    decimal.Decimal
}

func (g *group) add(l *models.Load) {
	g.loads = append(g.loads, l)
	r, c := loadFigures(l)
	g.revenue = g.revenue.Add(r)
	g.cost = g.cost.Add(c)
}

func (g *group) profit() decimal.Decimal { return g.revenue.Sub(g.cost) }

func (g *group) marginPercent() float64 {
	if g.revenue.IsZero() {
		return 0
	}
	return round(g.profit().Div(g.revenue).Mul(decimal.NewFromInt(100)))
}

// collect groups loads by key, preserving first-seen order so the later
// stable sort keeps input order among ties.
func collect(loads []*models.Load, key func(*models.Load) string) []*group {
	idx := map[string]*group{}
	var ordered []*group
	for _, l := range loads {
		k := key(l)
		if k == "" {
			continue
		}
		g, ok := idx[k]
		if !ok {
			g = &group{key: k}
			idx[k] = g
			ordered = append(ordered, g)
		}
		g.add(l)
	}
	return ordered
}

// ByCustomer groups loads per customer, sorted by total profit
// descending. names maps customer id to display name and may be nil.
func ByCustomer(loads []*models.Load, names map[string]string) []CustomerGroup {
	groups := collect(loads, func(l *models.Load) string { return l.CustomerID })
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].profit().GreaterThan(groups[j].profit())
	})

	out := make([]CustomerGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, CustomerGroup{
			CustomerID:           g.key,
			CustomerName:         names[g.key],
			LoadCount:            len(g.loads),
			TotalRevenue:         round(g.revenue),
			TotalProfit:          round(g.profit()),
			AverageMarginPercent: g.marginPercent(),
		})
	}
	return out
}

// ByCarrier groups loads per carrier, sorted by total paid descending.
func ByCarrier(loads []*models.Load, names map[string]string) []CarrierGroup {
	groups := collect(loads, func(l *models.Load) string { return l.CarrierID })
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].cost.GreaterThan(groups[j].cost)
	})

	out := make([]CarrierGroup, 0, len(groups))
	for _, g := range groups {
		cg := CarrierGroup{
			CarrierID:   g.key,
			CarrierName: names[g.key],
			LoadCount:   len(g.loads),
			TotalPaid:   round(g.cost),
		}
		cg.AverageRatePerLoad = round(g.cost.Div(decimal.NewFromInt(int64(len(g.loads)))))
		var miles float64
		for _, l := range g.loads {
			if l.Miles != nil {
				miles += *l.Miles
			}
		}
		if miles > 0 {
			cg.AverageRatePerMile = round(g.cost.Div(decimal.NewFromFloat(miles)))
		}
		out = append(out, cg)
	}
	return out
}

func laneKey(l *models.Load) string {
	if l.PickupAddress == nil || l.DeliveryAddress == nil {
		return ""
	}
	if l.PickupAddress.State == "" || l.DeliveryAddress.State == "" {
		return ""
	}
	return l.PickupAddress.State + "-" + l.DeliveryAddress.State
}

// ByLane groups loads per origin/destination state pair, sorted by
// total profit descending. Loads without both states are skipped.
func ByLane(loads []*models.Load) []LaneGroup {
	groups := collect(loads, laneKey)
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].profit().GreaterThan(groups[j].profit())
	})

	out := make([]LaneGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, LaneGroup{
			OriginState:          g.loads[0].PickupAddress.State,
			DestinationState:     g.loads[0].DeliveryAddress.State,
			LoadCount:            len(g.loads),
			TotalRevenue:         round(g.revenue),
			TotalProfit:          round(g.profit()),
			AverageMarginPercent: g.marginPercent(),
		})
	}
	return out
}

func top[T any](items []T) []T {
	if len(items) > topN {
		return items[:topN]
	}
	return items
}

type loadLister interface {
	InPeriod(ctx context.Context, start, end time.Time) ([]*models.Load, error)
}

type customerGetter interface {
	ByID(ctx context.Context, id string) (*models.Customer, error)
}

type carrierGetter interface {
	ByID(ctx context.Context, id string) (*models.Carrier, error)
}

// Reporter assembles period summaries from stored loads.
type Reporter struct {
	loads     loadLister
	customers customerGetter
	carriers  carrierGetter
}

func NewReporter(loads loadLister, customers customerGetter, carriers carrierGetter) *Reporter {
	return &Reporter{loads: loads, customers: customers, carriers: carriers}
}

// Summarize builds the profitability summary for loads created within
// [start, end].
func (r *Reporter) Summarize(ctx context.Context, start, end time.Time) (*Summary, error) {
	loads, err := r.loads.InPeriod(ctx, start, end)
	if err != nil {
		return nil, err
	}

	byStatus := map[models.LoadStatus]int{}
	for _, l := range loads {
		byStatus[l.Status]++
	}

	names := map[string]string{}
	for _, l := range loads {
		if l.CustomerID == "" {
			continue
		}
		if _, ok := names[l.CustomerID]; ok {
			continue
		}
		c, err := r.customers.ByID(ctx, l.CustomerID)
		if err != nil {
			// Имя — украшение отчёта, без него считать всё равно можно.
			names[l.CustomerID] = ""
			continue
		}
		names[l.CustomerID] = c.CompanyName
	}

	carrierNames := map[string]string{}
	for _, l := range loads {
		if l.CarrierID == "" {
			continue
		}
		if _, ok := carrierNames[l.CarrierID]; ok {
			continue
		}
		c, err := r.carriers.ByID(ctx, l.CarrierID)
		if err != nil {
			carrierNames[l.CarrierID] = ""
			continue
		}
		carrierNames[l.CarrierID] = c.CompanyName
	}

	return &Summary{
		PeriodStart:   start,
		PeriodEnd:     end,
		Totals:        ForBatch(loads).Totals,
		TopCustomers:  top(ByCustomer(loads, names)),
		TopLanes:      top(ByLane(loads)),
		Carriers:      ByCarrier(loads, carrierNames),
		LoadsByStatus: byStatus,
	}, nil
}
