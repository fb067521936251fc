package records

import (
	"context"

	"github.com/SprintLogistics/sptms/internal/models"
	"github.com/SprintLogistics/sptms/internal/storage/store"
)

type Customers struct {
	st store.Store
}

func NewCustomers(st store.Store) *Customers {
	return &Customers{st: st}
}

func (r *Customers) ByID(ctx context.Context, id string) (*models.Customer, error) {
	doc, err := r.st.FindByID(ctx, store.CollectionCustomers, id)
	if err != nil {
		return nil, err
	}
	return decode[models.Customer](doc)
}

func (r *Customers) Create(ctx context.Context, c *models.Customer) (*models.Customer, error) {
	doc, err := r.st.Create(ctx, store.CollectionCustomers, c)
	if err != nil {
		return nil, err
	}
	return decode[models.Customer](doc)
}

func (r *Customers) Update(ctx context.Context, c *models.Customer) (*models.Customer, error) {
	doc, err := r.st.Update(ctx, store.CollectionCustomers, c.ID, c)
	if err != nil {
		return nil, err
	}
	return decode[models.Customer](doc)
}

type Carriers struct {
	st store.Store
}

func NewCarriers(st store.Store) *Carriers {
	return &Carriers{st: st}
}

func (r *Carriers) ByID(ctx context.Context, id string) (*models.Carrier, error) {
	doc, err := r.st.FindByID(ctx, store.CollectionCarriers, id)
	if err != nil {
		return nil, err
	}
	return decode[models.Carrier](doc)
}

func (r *Carriers) ByMCNumber(ctx context.Context, mc string) (*models.Carrier, error) {
	docs, err := r.st.Find(ctx, store.CollectionCarriers, store.Filter{
		store.Eq("mcNumber", mc),
	}, nil, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return decode[models.Carrier](docs[0])
}

func (r *Carriers) Create(ctx context.Context, c *models.Carrier) (*models.Carrier, error) {
	doc, err := r.st.Create(ctx, store.CollectionCarriers, c)
	if err != nil {
		return nil, err
	}
	return decode[models.Carrier](doc)
}

func (r *Carriers) Update(ctx context.Context, c *models.Carrier) (*models.Carrier, error) {
	doc, err := r.st.Update(ctx, store.CollectionCarriers, c.ID, c)
	if err != nil {
		return nil, err
	}
	return decode[models.Carrier](doc)
}
