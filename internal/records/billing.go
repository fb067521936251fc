package records

import (
	"context"

	"github.com/SprintLogistics/sptms/internal/models"
	"github.com/SprintLogistics/sptms/internal/storage/store"
)

type Invoices struct {
	st store.Store
}

func NewInvoices(st store.Store) *Invoices {
	return &Invoices{st: st}
}

func (r *Invoices) ByID(ctx context.Context, id string) (*models.Invoice, error) {
	doc, err := r.st.FindByID(ctx, store.CollectionInvoices, id)
	if err != nil {
		return nil, err
	}
	return decode[models.Invoice](doc)
}

func (r *Invoices) Create(ctx context.Context, inv *models.Invoice) (*models.Invoice, error) {
	doc, err := r.st.Create(ctx, store.CollectionInvoices, inv)
	if err != nil {
		return nil, err
	}
	return decode[models.Invoice](doc)
}

func (r *Invoices) Update(ctx context.Context, inv *models.Invoice) (*models.Invoice, error) {
	doc, err := r.st.Update(ctx, store.CollectionInvoices, inv.ID, inv)
	if err != nil {
		return nil, err
	}
	return decode[models.Invoice](doc)
}

type Payments struct {
	st store.Store
}

func NewPayments(st store.Store) *Payments {
	return &Payments{st: st}
}

func (r *Payments) ByID(ctx context.Context, id string) (*models.CarrierPayment, error) {
	doc, err := r.st.FindByID(ctx, store.CollectionPayments, id)
	if err != nil {
		return nil, err
	}
	return decode[models.CarrierPayment](doc)
}

func (r *Payments) Create(ctx context.Context, p *models.CarrierPayment) (*models.CarrierPayment, error) {
	doc, err := r.st.Create(ctx, store.CollectionPayments, p)
	if err != nil {
		return nil, err
	}
	return decode[models.CarrierPayment](doc)
}

// ByTransactionID resolves a pay sheet by its ePay transaction id.
// Returns nil when nothing matches; webhook callers treat that as a
// transaction we did not originate.
func (r *Payments) ByTransactionID(ctx context.Context, txID string) (*models.CarrierPayment, error) {
	docs, err := r.st.Find(ctx, store.CollectionPayments,
		store.Filter{store.Eq("epaySync.externalId", txID)}, nil, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return decode[models.CarrierPayment](docs[0])
}

func (r *Payments) Update(ctx context.Context, p *models.CarrierPayment) (*models.CarrierPayment, error) {
	doc, err := r.st.Update(ctx, store.CollectionPayments, p.ID, p)
	if err != nil {
		return nil, err
	}
	return decode[models.CarrierPayment](doc)
}
