package dat

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/integrations/providerkit"
)

const defaultHistoryDays = 90

type RateQuery struct {
	Origin        Place
	Destination   Place
	EquipmentType string
	Date          *time.Time
}

type RateStats struct {
	Low     float64 `json:"low"`
	Average float64 `json:"average"`
	High    float64 `json:"high"`
	PerMile float64 `json:"perMile"`
}

type Trend struct {
	Direction     string  `json:"direction"` // up | down | stable
	PercentChange float64 `json:"percentChange"`
	Period        string  `json:"period"`
}

// LaneRates is the RateView answer for one lane.
type LaneRates struct {
	Spot       RateStats  `json:"spot"`
	Contract   *RateStats `json:"contract,omitempty"`
	TotalMiles float64    `json:"totalMiles"`
	SampleSize *int       `json:"sampleSize,omitempty"`

	FuelSurcharge *float64 `json:"fuelSurcharge,omitempty"`
	Trend         *Trend   `json:"trend,omitempty"`
}

func rateCacheKey(q RateQuery) string {
	return "dat:rates:" + q.Origin.City + "," + q.Origin.State +
		":" + q.Destination.City + "," + q.Destination.State +
		":" + EquipmentCode(q.EquipmentType)
}

// GetRates fetches spot and contract market rates for a lane. Answers
// are cached briefly; lane rates move slowly and RateView calls are
// metered. Date-specific queries bypass the cache.
func (s *Service) GetRates(ctx context.Context, q RateQuery) (*LaneRates, error) {
	cacheable := s.rates != nil && q.Date == nil && s.cfg.RateCacheTTL > 0
	key := rateCacheKey(q)
	if cacheable {
		if b, ok, err := s.rates.Get(ctx, key); err == nil && ok {
			var cached LaneRates
			if err := json.Unmarshal(b, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	params := url.Values{}
	params.Set("originCity", q.Origin.City)
	params.Set("originState", q.Origin.State)
	params.Set("destCity", q.Destination.City)
	params.Set("destState", q.Destination.State)
	params.Set("equipmentType", EquipmentCode(q.EquipmentType))
	if q.Date != nil {
		params.Set("date", q.Date.Format("2006-01-02"))
	}

	var raw providerkit.Object
	if err := s.request(ctx, "get rates", http.MethodGet, "/rateview/rates?"+params.Encode(), nil, &raw); err != nil {
		return nil, err
	}

	rates := parseLaneRates(raw)
	if cacheable {
		if b, err := json.Marshal(rates); err == nil {
			_ = s.rates.Set(ctx, key, b, s.cfg.RateCacheTTL)
		}
	}
	return rates, nil
}

func parseLaneRates(raw providerkit.Object) *LaneRates {
	out := &LaneRates{}

	if spot, ok := raw.Object("spot"); ok {
		out.Spot.Low, _ = spot.Float("low")
		out.Spot.Average, _ = spot.Float("average")
		out.Spot.High, _ = spot.Float("high")
		out.Spot.PerMile, _ = spot.Float("perMile")
		if n, ok := spot.Float("sampleSize"); ok {
			size := int(n)
			out.SampleSize = &size
		}
	} else {
		// Flat variant of the same answer.
		out.Spot.Low, _ = raw.Float("spotLow")
		out.Spot.Average, _ = raw.Float("spotAverage")
		out.Spot.High, _ = raw.Float("spotHigh")
		out.Spot.PerMile, _ = raw.Float("spotPerMile")
	}

	out.TotalMiles, _ = raw.Float("mileage", "totalMiles")

	if contract, ok := raw.Object("contract"); ok {
		c := RateStats{}
		c.Low, _ = contract.Float("low")
		c.Average, _ = contract.Float("average")
		c.High, _ = contract.Float("high")
		c.PerMile, _ = contract.Float("perMile")
		out.Contract = &c
	}
	if fuel, ok := raw.Float("fuelSurcharge"); ok {
		out.FuelSurcharge = &fuel
	}
	if trend, ok := raw.Object("trend"); ok {
		t := Trend{}
		t.Direction, _ = trend.String("direction")
		t.PercentChange, _ = trend.Float("percentChange")
		t.Period, _ = trend.String("period")
		if t.Period == "" {
			t.Period = "7d"
		}
		out.Trend = &t
	}
	return out
}

type HistoryPoint struct {
	Date         string   `json:"date"`
	SpotRate     float64  `json:"spotRate"`
	ContractRate *float64 `json:"contractRate,omitempty"`
	Volume       *int     `json:"volume,omitempty"`
	FuelPrice    *float64 `json:"fuelPrice,omitempty"`
}

// LaneHistory fetches the historical rate series for a lane, days back
// from today (90 when days <= 0).
func (s *Service) LaneHistory(ctx context.Context, origin, destination Place, equipmentType string, days int) ([]HistoryPoint, error) {
	if days <= 0 {
		days = defaultHistoryDays
	}
	params := url.Values{}
	params.Set("originCity", origin.City)
	params.Set("originState", origin.State)
	params.Set("destCity", destination.City)
	params.Set("destState", destination.State)
	params.Set("equipmentType", EquipmentCode(equipmentType))
	params.Set("days", strconv.Itoa(days))

	var raw providerkit.Object
	if err := s.request(ctx, "lane history", http.MethodGet, "/rateview/history?"+params.Encode(), nil, &raw); err != nil {
		return nil, err
	}

	items, _ := raw.Objects("history", "data")
	out := make([]HistoryPoint, 0, len(items))
	for _, item := range items {
		p := HistoryPoint{}
		p.Date, _ = item.String("date")
		p.SpotRate, _ = item.Float("spotRate", "spot")
		if v, ok := item.Float("contractRate", "contract"); ok {
			p.ContractRate = &v
		}
		if v, ok := item.Float("volume", "loadCount"); ok {
			n := int(v)
			p.Volume = &n
		}
		if v, ok := item.Float("fuelPrice"); ok {
			p.FuelPrice = &v
		}
		out = append(out, p)
	}
	return out, nil
}

// SuggestedRate derives customer and carrier quotes from the lane's
// spot average: carrier rate at market, customer rate marked up to the
// target margin. Both rounded to whole dollars for quoting.
type SuggestedRate struct {
	CustomerRate  float64 `json:"suggestedCustomerRate"`
	CarrierRate   float64 `json:"suggestedCarrierRate"`
	MarketRate    float64 `json:"marketRate"`
	MarginPercent float64 `json:"marginPercent"`
	Mileage       float64 `json:"mileage"`
}

const defaultTargetMarginPercent = 15.0

func (s *Service) SuggestedRate(ctx context.Context, q RateQuery, targetMarginPercent float64) (*SuggestedRate, error) {
	if targetMarginPercent <= 0 {
		targetMarginPercent = defaultTargetMarginPercent
	}
	if targetMarginPercent >= 100 {
		return nil, errs.Computationf("target margin must be below 100%%, got %v", targetMarginPercent)
	}

	rates, err := s.GetRates(ctx, q)
	if err != nil {
		return nil, err
	}

	carrier := math.Round(rates.Spot.Average)
	customer := math.Round(carrier / (1 - targetMarginPercent/100))
	return &SuggestedRate{
		CustomerRate:  customer,
		CarrierRate:   carrier,
		MarketRate:    rates.Spot.Average,
		MarginPercent: targetMarginPercent,
		Mileage:       rates.TotalMiles,
	}, nil
}
