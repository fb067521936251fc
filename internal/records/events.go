package records

import (
	"context"

	"github.com/SprintLogistics/sptms/internal/models"
	"github.com/SprintLogistics/sptms/internal/storage/store"
)

type TrackingEvents struct {
	st store.Store
}

func NewTrackingEvents(st store.Store) *TrackingEvents {
	return &TrackingEvents{st: st}
}

func (r *TrackingEvents) Create(ctx context.Context, ev *models.TrackingEvent) (*models.TrackingEvent, error) {
	doc, err := r.st.Create(ctx, store.CollectionTrackingEvents, ev)
	if err != nil {
		return nil, err
	}
	return decode[models.TrackingEvent](doc)
}

// ListByLoad returns the event feed for a load, newest first.
func (r *TrackingEvents) ListByLoad(ctx context.Context, loadID string, limit int) ([]*models.TrackingEvent, error) {
	docs, err := r.st.Find(ctx, store.CollectionTrackingEvents, store.Filter{
		store.Eq("load", loadID),
	}, &store.Sort{Field: "timestamp", Desc: true}, limit)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.TrackingEvent](docs)
}
