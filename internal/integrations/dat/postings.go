package dat

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/SprintLogistics/sptms/internal/integrations/providerkit"
	"github.com/SprintLogistics/sptms/internal/models"
)

const (
	defaultDeadheadRadius = 50
	defaultSearchRadius   = 100
	defaultMaxDeadhead    = 150
	defaultSearchLimit    = 50
)

type Place struct {
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode,omitempty"`
	Radius  int    `json:"radius,omitempty"`
}

// LoadPosting is the domain-side shape of a load-board posting.
type LoadPosting struct {
	PostingID       string `json:"postingId,omitempty"`
	ReferenceNumber string `json:"referenceNumber"`
	Origin          Place  `json:"origin"`
	Destination     Place  `json:"destination"`

	PickupDate   time.Time  `json:"pickupDate"`
	DeliveryDate *time.Time `json:"deliveryDate,omitempty"`

	EquipmentType string   `json:"equipmentType"`
	LengthFeet    *float64 `json:"length,omitempty"`
	WeightPounds  *float64 `json:"weight,omitempty"`

	Rate     *float64 `json:"rate,omitempty"`
	RateType string   `json:"rateType,omitempty"` // flat | per-mile

	Commodity string `json:"commodity,omitempty"`
	Comments  string `json:"comments,omitempty"`

	ContactName  string `json:"contactName,omitempty"`
	ContactPhone string `json:"contactPhone,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty"`

	TeamRequired bool `json:"teamRequired,omitempty"`
	Hazmat       bool `json:"hazmat,omitempty"`
	Partial      bool `json:"partial,omitempty"`
}

type PostingResult struct {
	PostingID      string `json:"postingId"`
	MatchingAssets int    `json:"matchingAssets,omitempty"`
}

// BuildPosting derives a posting from a load; the caller can adjust it
// before posting.
func BuildPosting(l *models.Load, contactName, contactPhone, contactEmail string) LoadPosting {
	p := LoadPosting{
		ReferenceNumber: l.LoadNumber,
		PickupDate:      l.PickupDate,
		EquipmentType:   l.EquipmentType,
		WeightPounds:    l.Weight,
		Rate:            l.CustomerRate,
		Commodity:       l.Commodity,
		Comments:        l.SpecialInstructions,
		ContactName:     contactName,
		ContactPhone:    contactPhone,
		ContactEmail:    contactEmail,
	}
	if p.ReferenceNumber == "" {
		p.ReferenceNumber = l.ID
	}
	if !l.DeliveryDate.IsZero() {
		d := l.DeliveryDate
		p.DeliveryDate = &d
	}
	if a := l.PickupAddress; a != nil {
		p.Origin = Place{City: a.City, State: a.State, ZipCode: a.ZipCode}
	}
	if a := l.DeliveryAddress; a != nil {
		p.Destination = Place{City: a.City, State: a.State, ZipCode: a.ZipCode}
	}
	return p
}

// wirePosting renders the posting in DAT's schema.
func wirePosting(p LoadPosting) map[string]any {
	originRadius := p.Origin.Radius
	if originRadius == 0 {
		originRadius = defaultDeadheadRadius
	}
	destRadius := p.Destination.Radius
	if destRadius == 0 {
		destRadius = defaultDeadheadRadius
	}

	body := map[string]any{
		"referenceNumber": p.ReferenceNumber,
		"origin": map[string]any{
			"city":           p.Origin.City,
			"stateProvince":  p.Origin.State,
			"postalCode":     p.Origin.ZipCode,
			"deadheadRadius": originRadius,
		},
		"destination": map[string]any{
			"city":           p.Destination.City,
			"stateProvince":  p.Destination.State,
			"postalCode":     p.Destination.ZipCode,
			"deadheadRadius": destRadius,
		},
		"earliestAvailability": p.PickupDate.Format(time.RFC3339),
		"equipmentType":        EquipmentCode(p.EquipmentType),
		"commodity":            p.Commodity,
		"comments":             p.Comments,
		"contact": map[string]any{
			"name":  p.ContactName,
			"phone": p.ContactPhone,
			"email": p.ContactEmail,
		},
		"requirements": map[string]any{
			"teamRequired": p.TeamRequired,
			"hazmat":       p.Hazmat,
		},
	}
	if p.DeliveryDate != nil {
		body["latestAvailability"] = p.DeliveryDate.Format(time.RFC3339)
	}
	if p.LengthFeet != nil {
		body["lengthFeet"] = *p.LengthFeet
	}
	if p.WeightPounds != nil {
		body["weightPounds"] = *p.WeightPounds
	}
	if p.Rate != nil {
		rateType := "FLAT"
		if p.RateType == "per-mile" {
			rateType = "PER_MILE"
		}
		body["rate"] = map[string]any{"amount": *p.Rate, "type": rateType}
	}
	if p.Partial {
		body["loadType"] = "PARTIAL"
	} else {
		body["loadType"] = "FULL"
	}
	return body
}

// PostLoad publishes a posting to the load board.
func (s *Service) PostLoad(ctx context.Context, p LoadPosting) (*PostingResult, error) {
	var raw providerkit.Object
	if err := s.request(ctx, "post load", http.MethodPost, "/loadboard/postings", wirePosting(p), &raw); err != nil {
		return nil, err
	}

	id, _ := raw.String("postingId", "id")
	res := &PostingResult{PostingID: id}
	if n, ok := raw.Float("matchingAssets", "matchingAssetCount"); ok {
		res.MatchingAssets = int(n)
	}
	return res, nil
}

// UpdatePosting replaces an existing posting.
func (s *Service) UpdatePosting(ctx context.Context, postingID string, p LoadPosting) (*PostingResult, error) {
	if err := s.request(ctx, "update posting", http.MethodPut, "/loadboard/postings/"+url.PathEscape(postingID), wirePosting(p), nil); err != nil {
		return nil, err
	}
	return &PostingResult{PostingID: postingID}, nil
}

// RemovePosting takes a posting off the board.
func (s *Service) RemovePosting(ctx context.Context, postingID string) error {
	return s.request(ctx, "remove posting", http.MethodDelete, "/loadboard/postings/"+url.PathEscape(postingID), nil, nil)
}

// MyPostings lists our active postings.
func (s *Service) MyPostings(ctx context.Context) ([]LoadPosting, error) {
	var raw providerkit.Object
	if err := s.request(ctx, "list postings", http.MethodGet, "/loadboard/postings/mine", nil, &raw); err != nil {
		return nil, err
	}

	items, _ := raw.Objects("postings", "data")
	out := make([]LoadPosting, 0, len(items))
	for _, item := range items {
		p := LoadPosting{}
		p.PostingID, _ = item.String("postingId", "id")
		p.ReferenceNumber, _ = item.String("referenceNumber")
		p.EquipmentType, _ = item.String("equipmentType")
		if o, ok := item.Object("origin"); ok {
			p.Origin.City, _ = o.String("city")
			p.Origin.State, _ = o.String("stateProvince", "state")
			p.Origin.ZipCode, _ = o.String("postalCode", "zipCode")
		}
		if d, ok := item.Object("destination"); ok {
			p.Destination.City, _ = d.String("city")
			p.Destination.State, _ = d.String("stateProvince", "state")
			p.Destination.ZipCode, _ = d.String("postalCode", "zipCode")
		}
		if ts, ok := item.String("earliestAvailability", "pickupDate"); ok {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				p.PickupDate = t
			}
		}
		if ts, ok := item.String("latestAvailability", "deliveryDate"); ok {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				p.DeliveryDate = &t
			}
		}
		if rate, ok := item.Object("rate"); ok {
			if amount, ok := rate.Float("amount"); ok {
				p.Rate = &amount
			}
			if rt, _ := rate.String("type"); rt == "PER_MILE" {
				p.RateType = "per-mile"
			} else {
				p.RateType = "flat"
			}
		}
		out = append(out, p)
	}
	return out, nil
}

type TruckSearch struct {
	Origin      Place
	Destination *Place

	EquipmentTypes []string
	AvailableDate  *time.Time

	MaxDeadheadOrigin      int
	MaxDeadheadDestination int
	Limit                  int
}

type Truck struct {
	PostingID string `json:"postingId"`

	CarrierName    string   `json:"carrierName"`
	MCNumber       string   `json:"mcNumber,omitempty"`
	DOTNumber      string   `json:"dotNumber,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Email          string   `json:"email,omitempty"`
	Rating         *float64 `json:"rating,omitempty"`
	AuthorityAge   *float64 `json:"authorityMonths,omitempty"`
	EquipmentType  string   `json:"equipmentType"`
	LengthFeet     *float64 `json:"lengthFeet,omitempty"`
	Location       Place    `json:"location"`
	Destination    *Place   `json:"destination,omitempty"`
	AvailableDate  string   `json:"availableDate,omitempty"`
	Comments       string   `json:"comments,omitempty"`
}

// SearchTrucks queries available capacity near an origin.
func (s *Service) SearchTrucks(ctx context.Context, search TruckSearch) ([]Truck, int, error) {
	q := url.Values{}
	q.Set("originCity", search.Origin.City)
	q.Set("originState", search.Origin.State)
	q.Set("originRadius", strconv.Itoa(orDefault(search.Origin.Radius, defaultSearchRadius)))
	if search.Destination != nil {
		q.Set("destCity", search.Destination.City)
		q.Set("destState", search.Destination.State)
		q.Set("destRadius", strconv.Itoa(orDefault(search.Destination.Radius, defaultSearchRadius)))
	}
	if len(search.EquipmentTypes) > 0 {
		codes := make([]byte, 0, 16)
		for i, t := range search.EquipmentTypes {
			if i > 0 {
				codes = append(codes, ',')
			}
			codes = append(codes, EquipmentCode(t)...)
		}
		q.Set("equipmentTypes", string(codes))
	}
	if search.AvailableDate != nil {
		q.Set("availableDate", search.AvailableDate.Format(time.RFC3339))
	}
	q.Set("maxDeadheadOrigin", strconv.Itoa(orDefault(search.MaxDeadheadOrigin, defaultMaxDeadhead)))
	q.Set("maxDeadheadDestination", strconv.Itoa(orDefault(search.MaxDeadheadDestination, defaultMaxDeadhead)))
	q.Set("limit", strconv.Itoa(orDefault(search.Limit, defaultSearchLimit)))

	var raw providerkit.Object
	if err := s.request(ctx, "search trucks", http.MethodGet, "/loadboard/trucks/search?"+q.Encode(), nil, &raw); err != nil {
		return nil, 0, err
	}

	items, _ := raw.Objects("trucks", "results")
	trucks := make([]Truck, 0, len(items))
	for _, item := range items {
		t := Truck{}
		t.PostingID, _ = item.String("postingId", "id")
		t.EquipmentType, _ = item.String("equipmentType")
		if length, ok := item.Float("lengthFeet"); ok {
			t.LengthFeet = &length
		}
		if c, ok := item.Object("carrier"); ok {
			t.CarrierName, _ = c.String("name", "companyName")
			t.MCNumber, _ = c.String("mcNumber")
			t.DOTNumber, _ = c.String("dotNumber")
			t.Phone, _ = c.String("phone")
			t.Email, _ = c.String("email")
			if r, ok := c.Float("rating"); ok {
				t.Rating = &r
			}
			if a, ok := c.Float("authorityMonths"); ok {
				t.AuthorityAge = &a
			}
		} else {
			t.CarrierName, _ = item.String("companyName")
		}
		if t.Phone == "" {
			if contact, ok := item.Object("contact"); ok {
				t.Phone, _ = contact.String("phone")
				if t.Email == "" {
					t.Email, _ = contact.String("email")
				}
			}
		}
		if o, ok := item.Object("origin", "location"); ok {
			t.Location.City, _ = o.String("city")
			t.Location.State, _ = o.String("stateProvince", "state")
			t.Location.ZipCode, _ = o.String("postalCode", "zipCode")
		}
		if d, ok := item.Object("destination"); ok {
			dest := Place{}
			dest.City, _ = d.String("city")
			dest.State, _ = d.String("stateProvince", "state")
			t.Destination = &dest
		}
		t.AvailableDate, _ = item.String("availableDate", "earliestAvailability")
		t.Comments, _ = item.String("comments")
		trucks = append(trucks, t)
	}

	total := len(trucks)
	if n, ok := raw.Float("totalCount"); ok {
		total = int(n)
	}
	return trucks, total, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
