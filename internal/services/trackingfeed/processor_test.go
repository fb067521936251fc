package trackingfeed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SprintLogistics/sptms/internal/broker/messages"
	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/models"
)

type fakeLoads struct {
	byTracking map[string]*models.Load
	byID       map[string]*models.Load
	updated    []*models.Load
}

func (f *fakeLoads) ByID(ctx context.Context, id string) (*models.Load, error) {
	if l, ok := f.byID[id]; ok {
		return l, nil
	}
	return nil, errs.NotFound("loads", id)
}

func (f *fakeLoads) ByTrackingID(ctx context.Context, trackingID string) (*models.Load, error) {
	return f.byTracking[trackingID], nil
}

func (f *fakeLoads) Update(ctx context.Context, l *models.Load) (*models.Load, error) {
	f.updated = append(f.updated, l)
	return l, nil
}

type fakeEvents struct {
	created []*models.TrackingEvent
}

func (f *fakeEvents) Create(ctx context.Context, e *models.TrackingEvent) (*models.TrackingEvent, error) {
	f.created = append(f.created, e)
	return e, nil
}

type fakeProducer struct {
	topics []string
	keys   [][]byte
	values [][]byte
}

func (f *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	f.topics = append(f.topics, topic)
	f.keys = append(f.keys, key)
	f.values = append(f.values, value)
	return nil
}

func trackedLoad(status models.LoadStatus) *models.Load {
	return &models.Load{
		ID:         "l1",
		LoadNumber: "SPTMS-202501-0001",
		Status:     status,
		Tracking:   &models.TrackingInfo{TrackingID: "l1", Active: true},
	}
}

func newProcessor(l *models.Load) (*Processor, *fakeLoads, *fakeEvents, *fakeProducer) {
	loads := &fakeLoads{
		byTracking: map[string]*models.Load{},
		byID:       map[string]*models.Load{},
	}
	if l != nil {
		loads.byTracking[l.Tracking.TrackingID] = l
		loads.byID[l.ID] = l
	}
	events := &fakeEvents{}
	producer := &fakeProducer{}
	p := NewProcessor(loads, events, producer)
	p.now = func() time.Time { return time.Date(2025, time.January, 20, 15, 0, 0, 0, time.UTC) }
	return p, loads, events, producer
}

func payload(eventCode string) []byte {
	return []byte(`{
		"orderId": "l1",
		"eventCode": "` + eventCode + `",
		"eventTime": "2025-01-20T14:55:00Z",
		"latitude": 33.75,
		"longitude": -84.39,
		"city": "Atlanta",
		"state": "GA"
	}`)
}

func TestProcessor_departedPickupAdvancesStatus(t *testing.T) {
	l := trackedLoad(models.LoadStatusDispatched)
	p, loads, events, producer := newProcessor(l)

	ack := p.Process(context.Background(), payload("X1"))
	require.True(t, ack.Received)
	require.True(t, ack.Processed)
	require.Equal(t, "SPTMS-202501-0001", ack.LoadNumber)
	require.Equal(t, "departed-pickup", ack.EventType)
	require.Equal(t, "Atlanta, GA", ack.Location)

	require.Len(t, events.created, 1)
	require.Equal(t, models.EventDepartedPickup, events.created[0].EventType)
	require.Equal(t, "macropoint", events.created[0].Source)
	require.NotEmpty(t, events.created[0].RawPayload)

	require.Len(t, loads.updated, 1)
	require.Equal(t, models.LoadStatusInTransit, l.Status)
	require.Equal(t, "Atlanta, GA", l.Tracking.LastLocation)
	require.NotNil(t, l.Tracking.LastUpdate)
	require.Len(t, l.StatusHistory, 1)
	require.Contains(t, l.StatusHistory[0].Note, "from dispatched to in-transit")

	require.Len(t, producer.values, 1)
	require.Equal(t, messages.TopicLoadTracking, producer.topics[0])
	var msg messages.LoadTrackingUpdated
	require.NoError(t, json.Unmarshal(producer.values[0], &msg))
	require.Equal(t, "in-transit", msg.Status)
	require.Equal(t, "dispatched", msg.PreviousStatus)
}

func TestProcessor_arrivedDeliveryOnDeliveredLoad(t *testing.T) {
	// Повторный X4 пишет событие, но статус уже не двигает.
	l := trackedLoad(models.LoadStatusDelivered)
	p, _, events, _ := newProcessor(l)

	ack := p.Process(context.Background(), payload("X4"))
	require.True(t, ack.Processed)
	require.Len(t, events.created, 1)
	require.Equal(t, models.LoadStatusDelivered, l.Status)
	require.Empty(t, l.StatusHistory)
}

func TestProcessor_arrivedPickupNeverAdvances(t *testing.T) {
	l := trackedLoad(models.LoadStatusDispatched)
	p, _, events, _ := newProcessor(l)

	ack := p.Process(context.Background(), payload("X3"))
	require.True(t, ack.Processed)
	require.Equal(t, "arrived-pickup", ack.EventType)
	require.Len(t, events.created, 1)
	require.Equal(t, models.LoadStatusDispatched, l.Status)
}

func TestProcessor_cancelledLoadUntouched(t *testing.T) {
	l := trackedLoad(models.LoadStatusCancelled)
	p, _, _, _ := newProcessor(l)

	ack := p.Process(context.Background(), payload("X1"))
	require.True(t, ack.Processed)
	require.Equal(t, models.LoadStatusCancelled, l.Status)
	require.Empty(t, l.StatusHistory)
}

func TestProcessor_locationOnlyUpdate(t *testing.T) {
	l := trackedLoad(models.LoadStatusInTransit)
	p, _, events, _ := newProcessor(l)

	ack := p.Process(context.Background(), []byte(`{
		"orderId": "l1",
		"eventCode": "LOCATION",
		"latitude": 35.1,
		"longitude": -90.0,
		"city": "Memphis",
		"state": "TN",
		"driver": {"name": "J. Smith", "phone": "555-0100"}
	}`))
	require.True(t, ack.Processed)
	require.Equal(t, "location", ack.EventType)
	require.Len(t, events.created, 1)
	require.Equal(t, models.LoadStatusInTransit, l.Status)
	require.Equal(t, "Memphis, TN", l.Tracking.LastLocation)
	require.NotNil(t, l.Driver)
	require.Equal(t, "J. Smith", l.Driver.Name)
}

func TestProcessor_malformedPayloadAcked(t *testing.T) {
	p, loads, events, producer := newProcessor(trackedLoad(models.LoadStatusBooked))

	ack := p.Process(context.Background(), []byte(`{"eventCode": "X1"}`))
	require.True(t, ack.Received)
	require.False(t, ack.Processed)
	require.NotEmpty(t, ack.Error)
	require.Empty(t, events.created)
	require.Empty(t, loads.updated)
	require.Empty(t, producer.values)
}

func TestProcessor_unknownOrderAcked(t *testing.T) {
	p, _, events, _ := newProcessor(nil)

	ack := p.Process(context.Background(), payload("X1"))
	require.True(t, ack.Received)
	require.False(t, ack.Processed)
	require.Contains(t, ack.Error, "no load for tracking order")
	require.Empty(t, events.created)
}

func TestProcessor_applyPolled(t *testing.T) {
	l := trackedLoad(models.LoadStatusInTransit)
	p, _, events, _ := newProcessor(l)

	lat, lng := 35.1, -90.0
	ack := p.ApplyPolled(context.Background(), messages.TrackingPolled{
		OrderID:   "l1",
		EventCode: "LOCATION",
		Latitude:  &lat, Longitude: &lng,
		City: "Memphis", State: "TN",
		DriverName: "J. Smith",
	}, []byte(`{"orderId":"l1"}`))
	require.True(t, ack.Processed)
	require.Len(t, events.created, 1)
	// Пустое eventTime заполняется временем обработки.
	require.False(t, events.created[0].Timestamp.IsZero())
	require.Equal(t, "Memphis, TN", l.Tracking.LastLocation)
	require.Equal(t, "J. Smith", l.Driver.Name)
}

func TestProcessor_fallbackToLoadID(t *testing.T) {
	l := trackedLoad(models.LoadStatusDispatched)
	loads := &fakeLoads{
		byTracking: map[string]*models.Load{},
		byID:       map[string]*models.Load{"l1": l},
	}
	p := NewProcessor(loads, &fakeEvents{}, nil)
	p.now = time.Now

	ack := p.Process(context.Background(), payload("X1"))
	require.True(t, ack.Processed)
	require.Equal(t, models.LoadStatusInTransit, l.Status)
}
