// Package trackingfeed applies inbound tracking updates to loads: it
// records the event, refreshes the cached last location, and moves the
// load status forward when the event warrants it.
package trackingfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SprintLogistics/sptms/internal/broker/messages"
	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/integrations/macropoint"
	"github.com/SprintLogistics/sptms/internal/models"
)

type loadRepo interface {
	ByID(ctx context.Context, id string) (*models.Load, error)
	ByTrackingID(ctx context.Context, trackingID string) (*models.Load, error)
	Update(ctx context.Context, l *models.Load) (*models.Load, error)
}

type eventRepo interface {
	Create(ctx context.Context, e *models.TrackingEvent) (*models.TrackingEvent, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Ack is what the webhook endpoint answers with. The provider retries
// on anything but a 2xx, so the endpoint always acknowledges; Processed
// tells whether the update actually landed on a load.
type Ack struct {
	Received   bool   `json:"received"`
	Processed  bool   `json:"processed"`
	LoadNumber string `json:"loadNumber,omitempty"`
	EventType  string `json:"eventType,omitempty"`
	Location   string `json:"location,omitempty"`
	Error      string `json:"error,omitempty"`
}

type Processor struct {
	loads    loadRepo
	events   eventRepo
	producer Producer
	now      func() time.Time
}

func NewProcessor(loads loadRepo, events eventRepo, producer Producer) *Processor {
	return &Processor{loads: loads, events: events, producer: producer, now: time.Now}
}

// Process handles one raw webhook payload. It never returns an error:
// failures come back as an unprocessed Ack so the endpoint can answer
// 200 and stop the provider from retrying a payload we cannot use.
func (p *Processor) Process(ctx context.Context, raw []byte) Ack {
	upd, err := macropoint.ParseWebhook(raw, p.now())
	if err != nil {
		return Ack{Received: true, Error: err.Error()}
	}
	return p.Apply(ctx, upd, raw)
}

// ApplyPolled lands one worker-polled update. raw is the kafka message
// body; it goes into the event audit trail like a webhook payload.
func (p *Processor) ApplyPolled(ctx context.Context, msg messages.TrackingPolled, raw []byte) Ack {
	upd := &macropoint.Update{
		OrderID:   msg.OrderID,
		EventCode: msg.EventCode,
		EventTime: msg.EventTime,
		Latitude:  msg.Latitude,
		Longitude: msg.Longitude,
		City:      msg.City,
		State:     msg.State,
		Address:   msg.Address,
	}
	if upd.EventTime.IsZero() {
		upd.EventTime = p.now()
	}
	if msg.DriverName != "" || msg.DriverPhone != "" {
		upd.Driver = &models.DriverInfo{Name: msg.DriverName, Phone: msg.DriverPhone}
	}
	return p.Apply(ctx, upd, raw)
}

// Apply lands a parsed update on its load.
func (p *Processor) Apply(ctx context.Context, upd *macropoint.Update, raw []byte) Ack {
	l, err := p.resolveLoad(ctx, upd.OrderID)
	if err != nil {
		return Ack{Received: true, Error: err.Error()}
	}
	if l == nil {
		return Ack{Received: true, Error: fmt.Sprintf("no load for tracking order %s", upd.OrderID)}
	}

	eventType := macropoint.EventType(upd.EventCode)
	loc := upd.Location()

	event := &models.TrackingEvent{
		LoadID:     l.ID,
		EventType:  eventType,
		Timestamp:  upd.EventTime,
		Location:   loc,
		Source:     "macropoint",
		OrderID:    upd.OrderID,
		EventCode:  upd.EventCode,
		RawPayload: raw,
		ETA:        upd.ETA,
		CreatedAt:  p.now().UTC(),
	}
	if _, err := p.events.Create(ctx, event); err != nil {
		return Ack{Received: true, Error: err.Error()}
	}

	previous := l.Status
	p.applyToLoad(l, upd, loc)
	if _, err := p.loads.Update(ctx, l); err != nil {
		return Ack{Received: true, Error: err.Error()}
	}

	p.publish(ctx, l, upd, previous, eventType, raw)

	return Ack{
		Received:   true,
		Processed:  true,
		LoadNumber: l.LoadNumber,
		EventType:  string(eventType),
		Location:   loc.Display(),
	}
}

// resolveLoad tries the tracking order id first, then falls back to
// treating it as a load id (tracking orders are created with the load
// id as orderId).
func (p *Processor) resolveLoad(ctx context.Context, orderID string) (*models.Load, error) {
	l, err := p.loads.ByTrackingID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if l != nil {
		return l, nil
	}
	l, err = p.loads.ByID(ctx, orderID)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

func (p *Processor) applyToLoad(l *models.Load, upd *macropoint.Update, loc models.EventLoc) {
	if l.Tracking == nil {
		l.Tracking = &models.TrackingInfo{TrackingID: upd.OrderID, Active: true}
	}
	l.Tracking.LastLocation = loc.Display()
	at := upd.EventTime
	l.Tracking.LastUpdate = &at

	if upd.Driver != nil {
		l.Driver = upd.Driver
	}

	next, ok := macropoint.StatusForEvent(upd.EventCode)
	// Автоматика двигает статус только вперёд; вручную отменённые
	// грузы вебхук не трогает.
	if ok && next.ForwardOf(l.Status) {
		note := fmt.Sprintf("Status changed from %s to %s", l.Status, next)
		l.AppendStatus(next, upd.EventTime, note)
	}
	l.UpdatedAt = p.now().UTC()
}

// publish is best-effort: a broker outage must not fail the webhook.
func (p *Processor) publish(ctx context.Context, l *models.Load, upd *macropoint.Update, previous models.LoadStatus, eventType models.TrackingEventType, raw []byte) {
	if p.producer == nil {
		return
	}
	msg := messages.LoadTrackingUpdated{
		LoadID:     l.ID,
		LoadNumber: l.LoadNumber,
		OrderID:    upd.OrderID,
		EventCode:  upd.EventCode,
		EventType:  string(eventType),
		EventTime:  upd.EventTime,
		CheckedAt:  p.now().UTC(),
		Status:     string(l.Status),
		Latitude:   upd.Latitude,
		Longitude:  upd.Longitude,
		City:       upd.City,
		State:      upd.State,
		Raw:        raw,
	}
	if previous != l.Status {
		msg.PreviousStatus = string(previous)
	}
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal tracking message", "load_id", l.ID, "error", err.Error())
		return
	}
	if err := p.producer.Publish(ctx, messages.TopicLoadTracking, []byte(l.ID), b); err != nil {
		slog.Error("publish tracking message", "load_id", l.ID, "error", err.Error())
	}
}
