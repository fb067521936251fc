// Package refresher is the worker loop that polls MacroPoint for loads
// whose tracking has gone quiet, so the board stays current even when
// webhooks are delayed or dropped.
package refresher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/SprintLogistics/sptms/internal/broker/messages"
	"github.com/SprintLogistics/sptms/internal/integrations/macropoint"
	"github.com/SprintLogistics/sptms/internal/models"
)

type Repository interface {
	StaleActiveTracking(ctx context.Context, cutoff time.Time, limit int) ([]*models.Load, error)
	Update(ctx context.Context, l *models.Load) (*models.Load, error)
}

type Tracker interface {
	Status(ctx context.Context, orderID string) (*macropoint.OrderStatus, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Refresher struct {
	repo     Repository
	tracker  Tracker
	producer Producer
	rl       RateLimiter

	pollInterval       time.Duration
	staleAfter         time.Duration
	batchSize          int
	concurrency        int
	rateLimitPerMinute int64

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalScanned        atomic.Int64
	totalRefreshed      atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, tracker Tracker, producer Producer, rl RateLimiter) *Refresher {
	return &Refresher{
		repo: repo, tracker: tracker, producer: producer, rl: rl,
		pollInterval:       time.Minute,
		staleAfter:         15 * time.Minute,
		batchSize:          50,
		concurrency:        5,
		rateLimitPerMinute: 60,
		triggerCh:          make(chan struct{}, 1),
		startedAtUnixNano:  time.Now().UTC().UnixNano(),
	}
}

func (r *Refresher) WithSettings(pollInterval, staleAfter time.Duration, batchSize, concurrency int, rlPerMin int64) *Refresher {
	if pollInterval > 0 {
		r.pollInterval = pollInterval
	}
	if staleAfter > 0 {
		r.staleAfter = staleAfter
	}
	if batchSize > 0 {
		r.batchSize = batchSize
	}
	if concurrency > 0 {
		r.concurrency = concurrency
	}
	if rlPerMin > 0 {
		r.rateLimitPerMinute = rlPerMin
	}
	return r
}

// Trigger forces an immediate refresh cycle (best-effort, non-blocking).
func (r *Refresher) Trigger() {
	r.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastCycleAt    *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt  *time.Time `json:"lastTriggerAt,omitempty"`
	TotalScanned   int64      `json:"totalScanned"`
	TotalRefreshed int64      `json:"totalRefreshed"`
	TotalErrors    int64      `json:"totalErrors"`
	InFlight       int64      `json:"inFlight"`
	LastError      string     `json:"lastError,omitempty"`
}

func (r *Refresher) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, r.startedAtUnixNano).UTC(),
		TotalScanned:   r.totalScanned.Load(),
		TotalRefreshed: r.totalRefreshed.Load(),
		TotalErrors:    r.totalErrors.Load(),
		InFlight:       r.inFlight.Load(),
	}
	if n := r.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := r.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	r.lastErrorMu.Lock()
	st.LastError = r.lastError
	r.lastErrorMu.Unlock()
	return st
}

func (r *Refresher) Run(ctx context.Context) error {
	t := time.NewTicker(r.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.runOnce(ctx)
		case <-r.triggerCh:
			r.runOnce(ctx)
		}
	}
}

func (r *Refresher) runOnce(ctx context.Context) {
	now := time.Now().UTC()
	r.lastCycleUnixNano.Store(now.UnixNano())

	loads, err := r.repo.StaleActiveTracking(ctx, now.Add(-r.staleAfter), r.batchSize)
	if err != nil {
		slog.Error("scan stale trackings", "error", err.Error())
		r.recordError(err)
		return
	}
	r.totalScanned.Add(int64(len(loads)))

	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup
	for _, l := range loads {
		sem <- struct{}{}
		wg.Add(1)
		load := l
		r.inFlight.Add(1)
		go func() {
			defer func() {
				r.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			if err := r.refreshOne(ctx, load); err != nil {
				r.totalErrors.Add(1)
				r.recordError(err)
				slog.Error("refresh tracking", "load_id", load.ID, "error", err.Error())
				return
			}
			r.totalRefreshed.Add(1)
		}()
	}
	wg.Wait()
}

func (r *Refresher) refreshOne(ctx context.Context, l *models.Load) error {
	now := time.Now().UTC()

	if r.rl != nil && r.rateLimitPerMinute > 0 {
		minuteKey := fmt.Sprintf("rl:macropoint:%s", now.Format("200601021504"))
		allowed, n, err := r.rl.Allow(ctx, minuteKey, r.rateLimitPerMinute, 70*time.Second)
		if err != nil {
			return err
		}
		if !allowed {
			// Слишком много запросов в минуту: подождём немного, чтобы разгрузить источник.
			slog.Warn("rate limit exceeded", "provider", "macropoint", "count", n)
			time.Sleep(500 * time.Millisecond)
		}
	}

	orderID := l.ID
	if l.Tracking != nil && l.Tracking.TrackingID != "" {
		orderID = l.Tracking.TrackingID
	}

	status, err := r.tracker.Status(ctx, orderID)
	if err != nil {
		return err
	}

	if status == nil || status.LastLocation == nil {
		// Без свежей позиции просто отмечаем проверку, чтобы груз не
		// попадал в каждый цикл заново.
		if l.Tracking != nil {
			l.Tracking.LastUpdate = &now
		}
		l.UpdatedAt = now
		_, err := r.repo.Update(ctx, l)
		return err
	}

	upd := status.LastLocation
	if upd.OrderID == "" {
		upd.OrderID = orderID
	}
	if upd.EventTime.IsZero() {
		upd.EventTime = now
	}

	msg := messages.TrackingPolled{
		OrderID:   upd.OrderID,
		EventCode: upd.EventCode,
		EventTime: upd.EventTime,
		CheckedAt: now,
		Latitude:  upd.Latitude,
		Longitude: upd.Longitude,
		City:      upd.City,
		State:     upd.State,
		Address:   upd.Address,
	}
	if upd.Driver != nil {
		msg.DriverName = upd.Driver.Name
		msg.DriverPhone = upd.Driver.Phone
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal polled update")
	}
	return r.producer.Publish(ctx, messages.TopicTrackingPolled, []byte(upd.OrderID), b)
}

func (r *Refresher) recordError(err error) {
	r.lastErrorMu.Lock()
	r.lastError = err.Error()
	r.lastErrorMu.Unlock()
}
