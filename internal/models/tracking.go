package models

import (
	"encoding/json"
	"strconv"
	"time"
)

type TrackingEventType string

const (
	EventLocation         TrackingEventType = "location"
	EventArrivedPickup    TrackingEventType = "arrived-pickup"
	EventDepartedPickup   TrackingEventType = "departed-pickup"
	EventArrivedDelivery  TrackingEventType = "arrived-delivery"
	EventDepartedDelivery TrackingEventType = "departed-delivery"
	EventDelay            TrackingEventType = "delay"
	EventException        TrackingEventType = "exception"
)

type EventLoc struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
	Address   string   `json:"address,omitempty"`
}

// Display renders the location for humans: "City, ST", falling back to
// raw coordinates, then "Unknown".
func (l EventLoc) Display() string {
	switch {
	case l.City != "" && l.State != "":
		return l.City + ", " + l.State
	case l.City != "":
		return l.City
	case l.State != "":
		return l.State
	case l.Latitude != nil && l.Longitude != nil:
		return strconv.FormatFloat(*l.Latitude, 'f', -1, 64) + ", " +
			strconv.FormatFloat(*l.Longitude, 'f', -1, 64)
	default:
		return "Unknown"
	}
}

type ETA struct {
	EstimatedArrival time.Time `json:"estimatedArrival"`
	MilesRemaining   float64   `json:"milesRemaining,omitempty"`
	MinutesRemaining float64   `json:"minutesRemaining,omitempty"`
}

// TrackingEvent is immutable once created; event history is read in
// descending timestamp order.
type TrackingEvent struct {
	ID        string            `json:"id,omitempty"`
	LoadID    string            `json:"load"`
	EventType TrackingEventType `json:"eventType"`
	Timestamp time.Time         `json:"timestamp"`
	Location  EventLoc          `json:"location"`
	Source    string            `json:"source"`

	OrderID    string          `json:"orderId,omitempty"`
	EventCode  string          `json:"eventCode,omitempty"`
	RawPayload json.RawMessage `json:"rawPayload,omitempty"`

	ETA *ETA `json:"eta,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}
