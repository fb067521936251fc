package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/models"
	"github.com/SprintLogistics/sptms/internal/money"
	"github.com/SprintLogistics/sptms/internal/services/sequence"
	"github.com/SprintLogistics/sptms/internal/storage/store"
)

type loadRepo interface {
	ByIDs(ctx context.Context, ids []string) ([]*models.Load, error)
	Update(ctx context.Context, l *models.Load) (*models.Load, error)
}

type customerRepo interface {
	ByID(ctx context.Context, id string) (*models.Customer, error)
}

type carrierRepo interface {
	ByID(ctx context.Context, id string) (*models.Carrier, error)
}

type invoiceRepo interface {
	Create(ctx context.Context, inv *models.Invoice) (*models.Invoice, error)
}

type paymentRepo interface {
	Create(ctx context.Context, p *models.CarrierPayment) (*models.CarrierPayment, error)
}

type numberer interface {
	Next(ctx context.Context, collection, field, prefix string) (string, error)
}

// InvoiceAssembler turns delivered loads into customer invoices.
type InvoiceAssembler struct {
	loads     loadRepo
	customers customerRepo
	invoices  invoiceRepo
	numbers   numberer

	billingCompanyName string
	now                func() time.Time
}

func NewInvoiceAssembler(loads loadRepo, customers customerRepo, invoices invoiceRepo, numbers numberer, billingCompanyName string) *InvoiceAssembler {
	return &InvoiceAssembler{
		loads:              loads,
		customers:          customers,
		invoices:           invoices,
		numbers:            numbers,
		billingCompanyName: billingCompanyName,
		now:                time.Now,
	}
}

type InvoiceRequest struct {
	LoadIDs      []string `json:"loadIds"`
	CombineLoads bool     `json:"combineLoads"`
}

// Generate validates the whole load set up front and only then creates
// documents, so a bad load in the batch means no invoice is written at
// all. Each source load is moved to invoiced afterwards.
func (a *InvoiceAssembler) Generate(ctx context.Context, req InvoiceRequest) ([]*models.Invoice, error) {
	loads, err := a.resolveLoads(ctx, req.LoadIDs)
	if err != nil {
		return nil, err
	}

	for _, l := range loads {
		if l.CustomerID == "" {
			return nil, errs.Validationf("load %s has no customer", l.LoadNumber)
		}
		switch l.Status {
		case models.LoadStatusDelivered:
		case models.LoadStatusInvoiced, models.LoadStatusPaid:
			return nil, errs.Validationf("load %s is already invoiced", l.LoadNumber)
		default:
			return nil, errs.Validationf("load %s is not delivered (status %s)", l.LoadNumber, l.Status)
		}
	}
	if req.CombineLoads {
		for _, l := range loads[1:] {
			if l.CustomerID != loads[0].CustomerID {
				return nil, errs.Validationf("combined loads must share one customer: %s differs", l.LoadNumber)
			}
		}
	}

	groups := [][]*models.Load{}
	if req.CombineLoads {
		groups = append(groups, loads)
	} else {
		for _, l := range loads {
			groups = append(groups, []*models.Load{l})
		}
	}

	var out []*models.Invoice
	for _, group := range groups {
		inv, err := a.assemble(ctx, group)
		if err != nil {
			return out, err
		}
		out = append(out, inv)
	}
	return out, nil
}

func (a *InvoiceAssembler) assemble(ctx context.Context, loads []*models.Load) (*models.Invoice, error) {
	customer, err := a.customers.ByID(ctx, loads[0].CustomerID)
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	number, err := a.numbers.Next(ctx, store.CollectionInvoices, "invoiceNumber",
		sequence.PeriodPrefix(sequence.KindInvoice, now))
	if err != nil {
		return nil, err
	}

	items := CustomerLineItems(loads)
	amounts := make([]float64, 0, len(items))
	for _, it := range items {
		amounts = append(amounts, it.Total)
	}
	subtotal := money.Sum(amounts...)

	terms := customer.PaymentTerms
	if terms == "" {
		terms = models.TermsNet30
	}

	loadIDs := make([]string, 0, len(loads))
	for _, l := range loads {
		loadIDs = append(loadIDs, l.ID)
	}

	inv := &models.Invoice{
		InvoiceNumber:      number,
		Status:             models.InvoiceStatusDraft,
		CustomerID:         customer.ID,
		LoadIDs:            loadIDs,
		InvoiceDate:        now,
		PaymentTerms:       terms,
		DueDate:            now.AddDate(0, 0, terms.Days()),
		LineItems:          items,
		Subtotal:           subtotal,
		Total:              subtotal,
		BillingCompanyName: a.billingCompanyName,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	created, err := a.invoices.Create(ctx, inv)
	if err != nil {
		return nil, err
	}

	for _, l := range loads {
		prev := l.Status
		l.AppendStatus(models.LoadStatusInvoiced, now,
			fmt.Sprintf("Status changed from %s to %s (invoice %s)", prev, models.LoadStatusInvoiced, number))
		l.UpdatedAt = now
		if _, err := a.loads.Update(ctx, l); err != nil {
			return created, err
		}
	}
	return created, nil
}

func (a *InvoiceAssembler) resolveLoads(ctx context.Context, ids []string) ([]*models.Load, error) {
	return resolveLoads(ctx, a.loads, ids)
}

// resolveLoads fetches the requested loads and fails with a not-found
// on the first missing id, preserving the request order.
func resolveLoads(ctx context.Context, repo loadRepo, ids []string) ([]*models.Load, error) {
	if len(ids) == 0 {
		return nil, errs.Validationf("no loads requested")
	}
	found, err := repo.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Load, len(found))
	for _, l := range found {
		byID[l.ID] = l
	}
	out := make([]*models.Load, 0, len(ids))
	for _, id := range ids {
		l, ok := byID[id]
		if !ok {
			return nil, errs.NotFound(store.CollectionLoads, id)
		}
		out = append(out, l)
	}
	return out, nil
}
