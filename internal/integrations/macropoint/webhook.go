package macropoint

import (
	"strings"
	"time"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/integrations/providerkit"
	"github.com/SprintLogistics/sptms/internal/models"
)

// Update is a normalized tracking webhook: the minimum we need to
// record an event and maybe advance the load.
type Update struct {
	OrderID   string    `json:"orderId"`
	EventCode string    `json:"eventCode"`
	EventTime time.Time `json:"eventTime"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
	Address   string   `json:"address,omitempty"`

	ETA    *models.ETA        `json:"eta,omitempty"`
	Driver *models.DriverInfo `json:"driver,omitempty"`
}

// ParseWebhook normalizes a raw webhook body. MacroPoint's payloads
// drift between camelCase and snake_case, so every field is read
// through candidate keys. Missing orderId or eventCode is a validation
// failure; the caller acknowledges it without processing.
func ParseWebhook(raw []byte, now time.Time) (*Update, error) {
	obj, err := providerkit.ParseObject(raw)
	if err != nil {
		return nil, errs.Validationf("unparseable webhook payload: %v", err)
	}
	upd := parseUpdate(obj, now)
	if upd.OrderID == "" {
		return nil, errs.Validationf("webhook payload has no orderId")
	}
	if upd.EventCode == "" {
		return nil, errs.Validationf("webhook payload has no eventCode")
	}
	return &upd, nil
}

func parseUpdate(obj providerkit.Object, now time.Time) Update {
	upd := Update{EventTime: now}
	upd.OrderID, _ = obj.String("orderId", "order_id")
	upd.EventCode, _ = obj.String("eventCode", "event_code")

	if ts, ok := obj.String("eventTime", "event_time"); ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			upd.EventTime = t.UTC()
		}
	}

	if lat, ok := obj.Float("latitude", "lat"); ok {
		upd.Latitude = &lat
	}
	if lng, ok := obj.Float("longitude", "lng", "lon"); ok {
		upd.Longitude = &lng
	}
	upd.City, _ = obj.String("city")
	upd.State, _ = obj.String("state")
	upd.Address, _ = obj.String("address")

	if eta, ok := obj.Object("eta"); ok {
		e := models.ETA{}
		if ts, ok := eta.String("arrival", "estimatedArrival"); ok {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				e.EstimatedArrival = t.UTC()
			}
		}
		e.MilesRemaining, _ = eta.Float("milesRemaining", "miles_remaining")
		e.MinutesRemaining, _ = eta.Float("minutesRemaining", "minutes_remaining")
		upd.ETA = &e
	}
	if driver, ok := obj.Object("driver"); ok {
		d := models.DriverInfo{}
		d.Name, _ = driver.String("name")
		d.Phone, _ = driver.String("phone")
		upd.Driver = &d
	}
	return upd
}

var eventTypes = map[string]models.TrackingEventType{
	"X1":        models.EventDepartedPickup,
	"X2":        models.EventDepartedDelivery,
	"X3":        models.EventArrivedPickup,
	"X4":        models.EventArrivedDelivery,
	"LOCATION":  models.EventLocation,
	"LOC":       models.EventLocation,
	"DELAY":     models.EventDelay,
	"EXCEPTION": models.EventException,
	"EXC":       models.EventException,
}

// EventType maps a provider event code to the domain event type,
// case-insensitively. Unknown codes are plain location pings.
func EventType(code string) models.TrackingEventType {
	if t, ok := eventTypes[strings.ToUpper(code)]; ok {
		return t
	}
	return models.EventLocation
}

// StatusForEvent returns the load status an event code drives, if any:
// only departed-pickup and arrived-delivery move the load. Arrival at
// pickup is recorded but the load stays dispatched.
func StatusForEvent(code string) (models.LoadStatus, bool) {
	switch strings.ToUpper(code) {
	case "X1":
		return models.LoadStatusInTransit, true
	case "X4":
		return models.LoadStatusDelivered, true
	default:
		return "", false
	}
}

// Location assembles the event location from the update.
func (u *Update) Location() models.EventLoc {
	return models.EventLoc{
		Latitude:  u.Latitude,
		Longitude: u.Longitude,
		City:      u.City,
		State:     u.State,
		Address:   u.Address,
	}
}
