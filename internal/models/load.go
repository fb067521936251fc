package models

import "time"

// Статусы груза. Порядок важен: автоматические переходы (вебхуки)
// двигаются только вперёд по этому списку.
type LoadStatus string

const (
	LoadStatusBooked     LoadStatus = "booked"
	LoadStatusDispatched LoadStatus = "dispatched"
	LoadStatusInTransit  LoadStatus = "in-transit"
	LoadStatusDelivered  LoadStatus = "delivered"
	LoadStatusInvoiced   LoadStatus = "invoiced"
	LoadStatusPaid       LoadStatus = "paid"

	// Terminal side states, reachable only by manual action.
	LoadStatusCancelled LoadStatus = "cancelled"
	LoadStatusTONU      LoadStatus = "tonu"
)

var loadStatusRank = map[LoadStatus]int{
	LoadStatusBooked:     0,
	LoadStatusDispatched: 1,
	LoadStatusInTransit:  2,
	LoadStatusDelivered:  3,
	LoadStatusInvoiced:   4,
	LoadStatusPaid:       5,
}

// Rank returns the position of s in the canonical forward ordering,
// or -1 for terminal side states and unknown values.
func (s LoadStatus) Rank() int {
	r, ok := loadStatusRank[s]
	if !ok {
		return -1
	}
	return r
}

// ForwardOf reports whether s is strictly ahead of other in the
// canonical ordering. False whenever either side is a terminal side
// state or unknown.
func (s LoadStatus) ForwardOf(other LoadStatus) bool {
	a, b := s.Rank(), other.Rank()
	if a < 0 || b < 0 {
		return false
	}
	return a > b
}

type AccessorialType string

const (
	AccessorialDetention AccessorialType = "detention"
	AccessorialLayover   AccessorialType = "layover"
	AccessorialTONU      AccessorialType = "tonu"
	AccessorialLumper    AccessorialType = "lumper"
	AccessorialStop      AccessorialType = "stop"
	AccessorialFuel      AccessorialType = "fuel"
	AccessorialOther     AccessorialType = "other"
)

type BillTo string

const (
	BillToCustomer BillTo = "customer"
	BillToCarrier  BillTo = "carrier"
	BillToInternal BillTo = "internal"
)

type Accessorial struct {
	Type        AccessorialType `json:"type"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description,omitempty"`
	BillTo      BillTo          `json:"billTo"`
}

type Address struct {
	FacilityName string `json:"facilityName,omitempty"`
	AddressLine1 string `json:"addressLine1,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	ZipCode      string `json:"zipCode,omitempty"`
	ContactName  string `json:"contactName,omitempty"`
	ContactPhone string `json:"contactPhone,omitempty"`
}

// StatusChange is one append-only status-history entry. History is
// never rewritten, only appended to.
type StatusChange struct {
	Status    LoadStatus `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
	Note      string     `json:"note,omitempty"`
}

// TrackingInfo is the cached tracking sub-record on a load.
type TrackingInfo struct {
	TrackingID   string     `json:"trackingId,omitempty"`
	Active       bool       `json:"active"`
	LastLocation string     `json:"lastLocation,omitempty"`
	LastUpdate   *time.Time `json:"lastUpdate,omitempty"`
}

type DocumentFlags struct {
	RateConSent bool `json:"rateConSent"`
	BOLReceived bool `json:"bolReceived"`
	PODReceived bool `json:"podReceived"`
}

type DriverInfo struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Load is the central entity: a single freight movement booked with a
// customer and fulfilled by a carrier.
type Load struct {
	ID         string     `json:"id,omitempty"`
	LoadNumber string     `json:"loadNumber"`
	Status     LoadStatus `json:"status"`

	CustomerID string `json:"customer"`
	CarrierID  string `json:"carrier,omitempty"`

	CustomerRate *float64 `json:"customerRate,omitempty"`
	CarrierRate  *float64 `json:"carrierRate,omitempty"`
	Margin       float64  `json:"margin"`
	Miles        *float64 `json:"miles,omitempty"`

	EquipmentType string   `json:"equipmentType,omitempty"`
	Commodity     string   `json:"commodity,omitempty"`
	Weight        *float64 `json:"weight,omitempty"`

	PickupAddress   *Address   `json:"pickupAddress,omitempty"`
	DeliveryAddress *Address   `json:"deliveryAddress,omitempty"`
	PickupDate      time.Time  `json:"pickupDate"`
	PickupDateEnd   *time.Time `json:"pickupDateEnd,omitempty"`
	DeliveryDate    time.Time  `json:"deliveryDate"`
	DeliveryDateEnd *time.Time `json:"deliveryDateEnd,omitempty"`

	Accessorials  []Accessorial  `json:"accessorials,omitempty"`
	StatusHistory []StatusChange `json:"statusHistory,omitempty"`
	Tracking      *TrackingInfo  `json:"tracking,omitempty"`
	Documents     DocumentFlags  `json:"documents"`
	Driver        *DriverInfo    `json:"driverInfo,omitempty"`

	SpecialInstructions string `json:"specialInstructions,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ComputeMargin recomputes the derived margin field. Zero when either
// rate is absent.
func (l *Load) ComputeMargin() {
	if l.CustomerRate == nil || l.CarrierRate == nil {
		l.Margin = 0
		return
	}
	l.Margin = *l.CustomerRate - *l.CarrierRate
}

// AppendStatus moves the load to status and records the transition in
// the history log.
func (l *Load) AppendStatus(status LoadStatus, at time.Time, note string) {
	l.Status = status
	l.StatusHistory = append(l.StatusHistory, StatusChange{
		Status:    status,
		Timestamp: at,
		Note:      note,
	})
}

// RouteDescription renders "City, ST to City, ST" with placeholders for
// missing address parts.
func (l *Load) RouteDescription() string {
	from := "Origin"
	if l.PickupAddress != nil && l.PickupAddress.City != "" {
		from = l.PickupAddress.City + ", " + l.PickupAddress.State
	}
	to := "Destination"
	if l.DeliveryAddress != nil && l.DeliveryAddress.City != "" {
		to = l.DeliveryAddress.City + ", " + l.DeliveryAddress.State
	}
	return from + " to " + to
}
