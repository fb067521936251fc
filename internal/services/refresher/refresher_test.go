package refresher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SprintLogistics/sptms/internal/broker/messages"
	"github.com/SprintLogistics/sptms/internal/integrations/macropoint"
	"github.com/SprintLogistics/sptms/internal/models"
)

type fakeRepo struct {
	mu      sync.Mutex
	stale   []*models.Load
	cutoff  time.Time
	limit   int
	updated []*models.Load
	err     error
}

func (f *fakeRepo) StaleActiveTracking(ctx context.Context, cutoff time.Time, limit int) ([]*models.Load, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoff, f.limit = cutoff, limit
	return f.stale, f.err
}

func (f *fakeRepo) Update(ctx context.Context, l *models.Load) (*models.Load, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, l)
	return l, nil
}

type fakeTracker struct {
	mu       sync.Mutex
	statuses map[string]*macropoint.OrderStatus
	err      error
	calls    []string
}

func (f *fakeTracker) Status(ctx context.Context, orderID string) (*macropoint.OrderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, orderID)
	if f.err != nil {
		return nil, f.err
	}
	return f.statuses[orderID], nil
}

type fakeProducer struct {
	mu     sync.Mutex
	topics []string
	values [][]byte
	err    error
}

func (f *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.values = append(f.values, value)
	return f.err
}

type fakeLimiter struct {
	mu    sync.Mutex
	keys  []string
	allow bool
}

func (f *fakeLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return f.allow, 1, nil
}

func staleLoad(id, trackingID string) *models.Load {
	last := time.Now().UTC().Add(-time.Hour)
	return &models.Load{
		ID:     id,
		Status: models.LoadStatusInTransit,
		Tracking: &models.TrackingInfo{
			TrackingID: trackingID,
			Active:     true,
			LastUpdate: &last,
		},
	}
}

func TestRefresher_runOnce_publishesPolledUpdate(t *testing.T) {
	lat, lng := 35.1, -90.0
	repo := &fakeRepo{stale: []*models.Load{staleLoad("l1", "mp-1")}}
	tracker := &fakeTracker{statuses: map[string]*macropoint.OrderStatus{
		"mp-1": {Status: "in-transit", LastLocation: &macropoint.Update{
			OrderID: "mp-1", EventCode: "LOCATION",
			Latitude: &lat, Longitude: &lng, City: "Memphis", State: "TN",
		}},
	}}
	producer := &fakeProducer{}
	rl := &fakeLimiter{allow: true}

	r := New(repo, tracker, producer, rl)
	r.runOnce(context.Background())

	require.Equal(t, []string{"mp-1"}, tracker.calls)
	require.Equal(t, []string{messages.TopicTrackingPolled}, producer.topics)
	var msg messages.TrackingPolled
	require.NoError(t, json.Unmarshal(producer.values[0], &msg))
	require.Equal(t, "mp-1", msg.OrderID)
	require.Equal(t, "Memphis", msg.City)
	require.False(t, msg.CheckedAt.IsZero())
	require.Contains(t, rl.keys[0], "rl:macropoint:")

	st := r.Stats()
	require.Equal(t, int64(1), st.TotalScanned)
	require.Equal(t, int64(1), st.TotalRefreshed)
	require.Equal(t, int64(0), st.TotalErrors)
}

func TestRefresher_runOnce_noLocationTouchesLoad(t *testing.T) {
	l := staleLoad("l1", "mp-1")
	before := *l.Tracking.LastUpdate
	repo := &fakeRepo{stale: []*models.Load{l}}
	tracker := &fakeTracker{statuses: map[string]*macropoint.OrderStatus{
		"mp-1": {Status: "pending"},
	}}
	producer := &fakeProducer{}

	r := New(repo, tracker, producer, nil)
	r.runOnce(context.Background())

	require.Empty(t, producer.values)
	require.Len(t, repo.updated, 1)
	require.True(t, repo.updated[0].Tracking.LastUpdate.After(before))
}

func TestRefresher_runOnce_trackerErrorCounted(t *testing.T) {
	repo := &fakeRepo{stale: []*models.Load{staleLoad("l1", "mp-1")}}
	tracker := &fakeTracker{err: errors.New("macropoint: get status: status 503")}

	r := New(repo, tracker, &fakeProducer{}, nil)
	r.runOnce(context.Background())

	st := r.Stats()
	require.Equal(t, int64(1), st.TotalErrors)
	require.Contains(t, st.LastError, "503")
}

func TestRefresher_Run_triggerAndStop(t *testing.T) {
	repo := &fakeRepo{}
	r := New(repo, &fakeTracker{}, &fakeProducer{}, nil).
		WithSettings(time.Hour, 10*time.Minute, 25, 2, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	r.Trigger()
	require.Eventually(t, func() bool {
		return r.Stats().LastCycleAt != nil
	}, time.Second, 10*time.Millisecond)

	repo.mu.Lock()
	limit := repo.limit
	repo.mu.Unlock()
	require.Equal(t, 25, limit)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
