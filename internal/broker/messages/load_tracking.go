// Package messages holds the wire contracts published to Kafka.
package messages

import (
	"encoding/json"
	"time"
)

const (
	// TopicTrackingPolled carries raw provider updates fetched by the
	// worker; the api binary consumes it and applies them to loads.
	TopicTrackingPolled = "sptms.tracking-polled"

	// TopicLoadTracking carries applied, load-resolved updates for
	// downstream consumers.
	TopicLoadTracking = "sptms.load-tracking"
)

// TrackingPolled is one update pulled from the tracking provider by
// the worker, not yet applied to a load.
type TrackingPolled struct {
	OrderID   string    `json:"order_id"`
	EventCode string    `json:"event_code,omitempty"`
	EventTime time.Time `json:"event_time"`
	CheckedAt time.Time `json:"checked_at"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
	Address   string   `json:"address,omitempty"`

	DriverName  string `json:"driver_name,omitempty"`
	DriverPhone string `json:"driver_phone,omitempty"`
}

// LoadTrackingUpdated is emitted for every tracking update applied to a
// load, whether it came in over the webhook or from a poll cycle.
type LoadTrackingUpdated struct {
	LoadID     string `json:"load_id"`
	LoadNumber string `json:"load_number,omitempty"`
	OrderID    string `json:"order_id,omitempty"`

	EventCode string    `json:"event_code,omitempty"`
	EventType string    `json:"event_type"`
	EventTime time.Time `json:"event_time"`
	CheckedAt time.Time `json:"checked_at"`

	Status         string `json:"status,omitempty"`
	PreviousStatus string `json:"previous_status,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`

	Raw json.RawMessage `json:"raw,omitempty"`
}
