package records

import (
	"context"
	"time"

	"github.com/SprintLogistics/sptms/internal/models"
	"github.com/SprintLogistics/sptms/internal/storage/store"
)

type Loads struct {
	st store.Store
}

func NewLoads(st store.Store) *Loads {
	return &Loads{st: st}
}

func (r *Loads) ByID(ctx context.Context, id string) (*models.Load, error) {
	doc, err := r.st.FindByID(ctx, store.CollectionLoads, id)
	if err != nil {
		return nil, err
	}
	return decode[models.Load](doc)
}

func (r *Loads) ByIDs(ctx context.Context, ids []string) ([]*models.Load, error) {
	docs, err := r.st.Find(ctx, store.CollectionLoads, store.Filter{
		store.In("id", ids),
	}, nil, 0)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Load](docs)
}

// ByTrackingID resolves a load by its active provider tracking id.
func (r *Loads) ByTrackingID(ctx context.Context, trackingID string) (*models.Load, error) {
	docs, err := r.st.Find(ctx, store.CollectionLoads, store.Filter{
		store.Eq("tracking.trackingId", trackingID),
	}, nil, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return decode[models.Load](docs[0])
}

func (r *Loads) Create(ctx context.Context, l *models.Load) (*models.Load, error) {
	doc, err := r.st.Create(ctx, store.CollectionLoads, l)
	if err != nil {
		return nil, err
	}
	return decode[models.Load](doc)
}

func (r *Loads) Update(ctx context.Context, l *models.Load) (*models.Load, error) {
	doc, err := r.st.Update(ctx, store.CollectionLoads, l.ID, l)
	if err != nil {
		return nil, err
	}
	return decode[models.Load](doc)
}

// InPeriod lists loads created within [start, end], newest first.
func (r *Loads) InPeriod(ctx context.Context, start, end time.Time) ([]*models.Load, error) {
	docs, err := r.st.Find(ctx, store.CollectionLoads, store.Filter{
		store.GTE("createdAt", start),
		store.LTE("createdAt", end),
	}, &store.Sort{Field: "createdAt", Desc: true}, 0)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Load](docs)
}

// StaleActiveTracking lists loads whose tracking is active but whose
// last update is older than cutoff. Loads that never got an update are
// not matched; the provider webhook is their first signal.
func (r *Loads) StaleActiveTracking(ctx context.Context, cutoff time.Time, limit int) ([]*models.Load, error) {
	docs, err := r.st.Find(ctx, store.CollectionLoads, store.Filter{
		store.Eq("tracking.active", true),
		store.LTE("tracking.lastUpdate", cutoff),
	}, &store.Sort{Field: "tracking.lastUpdate", Desc: false}, limit)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Load](docs)
}
