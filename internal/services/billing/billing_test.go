package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/models"
)

type fakeLoads struct {
	byID    map[string]*models.Load
	updated []*models.Load
}

func (f *fakeLoads) ByIDs(ctx context.Context, ids []string) ([]*models.Load, error) {
	var out []*models.Load
	for _, id := range ids {
		if l, ok := f.byID[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLoads) Update(ctx context.Context, l *models.Load) (*models.Load, error) {
	f.updated = append(f.updated, l)
	return l, nil
}

type fakeCustomers struct {
	byID map[string]*models.Customer
}

func (f *fakeCustomers) ByID(ctx context.Context, id string) (*models.Customer, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, errs.NotFound("customers", id)
	}
	return c, nil
}

type fakeCarriers struct {
	byID map[string]*models.Carrier
}

func (f *fakeCarriers) ByID(ctx context.Context, id string) (*models.Carrier, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, errs.NotFound("carriers", id)
	}
	return c, nil
}

type fakeInvoices struct {
	created []*models.Invoice
}

func (f *fakeInvoices) Create(ctx context.Context, inv *models.Invoice) (*models.Invoice, error) {
	inv.ID = "inv-1"
	f.created = append(f.created, inv)
	return inv, nil
}

type fakePayments struct {
	created []*models.CarrierPayment
}

func (f *fakePayments) Create(ctx context.Context, p *models.CarrierPayment) (*models.CarrierPayment, error) {
	p.ID = "pay-1"
	f.created = append(f.created, p)
	return p, nil
}

type fakeNumbers struct {
	next int
}

func (f *fakeNumbers) Next(ctx context.Context, collection, field, prefix string) (string, error) {
	f.next++
	return prefix + "000" + string(rune('0'+f.next)), nil
}

func f64(v float64) *float64 { return &v }

func deliveredLoad(id, number, customerID, carrierID string, customerRate, carrierRate float64) *models.Load {
	return &models.Load{
		ID:           id,
		LoadNumber:   number,
		Status:       models.LoadStatusDelivered,
		CustomerID:   customerID,
		CarrierID:    carrierID,
		CustomerRate: f64(customerRate),
		CarrierRate:  f64(carrierRate),
		PickupAddress: &models.Address{
			City: "Dallas", State: "TX",
		},
		DeliveryAddress: &models.Address{
			City: "Atlanta", State: "GA",
		},
	}
}

func TestCustomerLineItems(t *testing.T) {
	l := deliveredLoad("l1", "SPTMS-202501-0001", "c1", "k1", 1500, 1200)
	l.Accessorials = []models.Accessorial{
		{Type: models.AccessorialDetention, Amount: 150, Description: "4h at receiver", BillTo: models.BillToCustomer},
		{Type: models.AccessorialLumper, Amount: 75, BillTo: models.BillToCarrier},
	}

	items := CustomerLineItems([]*models.Load{l})
	require.Len(t, items, 2)
	require.Equal(t, "Freight: SPTMS-202501-0001 - Dallas, TX to Atlanta, GA", items[0].Description)
	require.Equal(t, 1500.0, items[0].Rate)
	require.Equal(t, 1500.0, items[0].Total)
	require.Equal(t, "l1", items[0].LoadID)
	require.Equal(t, "Detention: 4h at receiver (SPTMS-202501-0001)", items[1].Description)
	require.Equal(t, 150.0, items[1].Total)
}

func TestCustomerLineItems_routeFallback(t *testing.T) {
	l := deliveredLoad("l1", "SPTMS-202501-0001", "c1", "k1", 1000, 800)
	l.PickupAddress = nil
	l.DeliveryAddress = &models.Address{State: "GA"}

	items := CustomerLineItems([]*models.Load{l})
	require.Equal(t, "Freight: SPTMS-202501-0001 - Origin to GA", items[0].Description)
}

func TestCarrierLineItems(t *testing.T) {
	l := deliveredLoad("l1", "SPTMS-202501-0001", "c1", "k1", 1500, 1200)
	l.Accessorials = []models.Accessorial{
		{Type: models.AccessorialLumper, Amount: 75, BillTo: models.BillToCarrier},
	}

	items := CarrierLineItems([]*models.Load{l})
	require.Len(t, items, 2)
	require.Equal(t, "Line Haul: SPTMS-202501-0001 - Dallas, TX to Atlanta, GA", items[0].Description)
	require.Equal(t, 1200.0, items[0].Amount)
	require.Equal(t, "linehaul", items[0].Type)
	require.Equal(t, "lumper", items[1].Type)
}

func newInvoiceAssembler(loads *fakeLoads, customers *fakeCustomers, invoices *fakeInvoices) *InvoiceAssembler {
	a := NewInvoiceAssembler(loads, customers, invoices, &fakeNumbers{}, "Sprint Logistics LLC")
	a.now = func() time.Time { return time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestInvoiceAssembler_Generate(t *testing.T) {
	loads := &fakeLoads{byID: map[string]*models.Load{
		"l1": deliveredLoad("l1", "SPTMS-202501-0001", "c1", "k1", 1500, 1200),
	}}
	customers := &fakeCustomers{byID: map[string]*models.Customer{
		"c1": {ID: "c1", CompanyName: "Acme", PaymentTerms: models.TermsNet15},
	}}
	invoices := &fakeInvoices{}
	a := newInvoiceAssembler(loads, customers, invoices)

	out, err := a.Generate(context.Background(), InvoiceRequest{LoadIDs: []string{"l1"}})
	require.NoError(t, err)
	require.Len(t, out, 1)

	inv := out[0]
	require.Equal(t, "INV-202501-0001", inv.InvoiceNumber)
	require.Equal(t, models.InvoiceStatusDraft, inv.Status)
	require.Equal(t, 1500.0, inv.Subtotal)
	require.Equal(t, 1500.0, inv.Total)
	require.Equal(t, models.TermsNet15, inv.PaymentTerms)
	require.Equal(t, inv.InvoiceDate.AddDate(0, 0, 15), inv.DueDate)
	require.Equal(t, "Sprint Logistics LLC", inv.BillingCompanyName)

	// Source load moved to invoiced with a history entry.
	require.Len(t, loads.updated, 1)
	require.Equal(t, models.LoadStatusInvoiced, loads.updated[0].Status)
	last := loads.updated[0].StatusHistory[len(loads.updated[0].StatusHistory)-1]
	require.Equal(t, models.LoadStatusInvoiced, last.Status)
	require.Contains(t, last.Note, "INV-202501-0001")
}

func TestInvoiceAssembler_Generate_perLoad(t *testing.T) {
	loads := &fakeLoads{byID: map[string]*models.Load{
		"l1": deliveredLoad("l1", "SPTMS-202501-0001", "c1", "k1", 1500, 1200),
		"l2": deliveredLoad("l2", "SPTMS-202501-0002", "c2", "k1", 900, 700),
	}}
	customers := &fakeCustomers{byID: map[string]*models.Customer{
		"c1": {ID: "c1"}, "c2": {ID: "c2"},
	}}
	invoices := &fakeInvoices{}
	a := newInvoiceAssembler(loads, customers, invoices)

	out, err := a.Generate(context.Background(), InvoiceRequest{LoadIDs: []string{"l1", "l2"}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "c1", out[0].CustomerID)
	require.Equal(t, "c2", out[1].CustomerID)
}

func TestInvoiceAssembler_Generate_combineConflict(t *testing.T) {
	loads := &fakeLoads{byID: map[string]*models.Load{
		"l1": deliveredLoad("l1", "SPTMS-202501-0001", "c1", "k1", 1500, 1200),
		"l2": deliveredLoad("l2", "SPTMS-202501-0002", "c2", "k1", 900, 700),
	}}
	invoices := &fakeInvoices{}
	a := newInvoiceAssembler(loads, &fakeCustomers{}, invoices)

	_, err := a.Generate(context.Background(), InvoiceRequest{LoadIDs: []string{"l1", "l2"}, CombineLoads: true})
	require.Error(t, err)
	require.True(t, errs.IsValidation(err))
	// Failed validation must not leave partial documents behind.
	require.Empty(t, invoices.created)
	require.Empty(t, loads.updated)
}

func TestInvoiceAssembler_Generate_combine(t *testing.T) {
	loads := &fakeLoads{byID: map[string]*models.Load{
		"l1": deliveredLoad("l1", "SPTMS-202501-0001", "c1", "k1", 1500, 1200),
		"l2": deliveredLoad("l2", "SPTMS-202501-0002", "c1", "k1", 900, 700),
	}}
	customers := &fakeCustomers{byID: map[string]*models.Customer{
		"c1": {ID: "c1", PaymentTerms: models.TermsDueOnReceipt},
	}}
	invoices := &fakeInvoices{}
	a := newInvoiceAssembler(loads, customers, invoices)

	out, err := a.Generate(context.Background(), InvoiceRequest{LoadIDs: []string{"l1", "l2"}, CombineLoads: true})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, []string{"l1", "l2"}, out[0].LoadIDs)
	require.Equal(t, 2400.0, out[0].Total)
	require.Equal(t, out[0].InvoiceDate, out[0].DueDate)
	require.Len(t, loads.updated, 2)
}

func TestInvoiceAssembler_Generate_statusGuards(t *testing.T) {
	booked := deliveredLoad("l1", "SPTMS-202501-0001", "c1", "k1", 1500, 1200)
	booked.Status = models.LoadStatusBooked
	invoiced := deliveredLoad("l2", "SPTMS-202501-0002", "c1", "k1", 900, 700)
	invoiced.Status = models.LoadStatusInvoiced

	loads := &fakeLoads{byID: map[string]*models.Load{"l1": booked, "l2": invoiced}}
	a := newInvoiceAssembler(loads, &fakeCustomers{}, &fakeInvoices{})

	_, err := a.Generate(context.Background(), InvoiceRequest{LoadIDs: []string{"l1"}})
	require.True(t, errs.IsValidation(err))
	require.Contains(t, err.Error(), "not delivered")

	_, err = a.Generate(context.Background(), InvoiceRequest{LoadIDs: []string{"l2"}})
	require.True(t, errs.IsValidation(err))
	require.Contains(t, err.Error(), "already invoiced")
}

func TestInvoiceAssembler_Generate_missingLoad(t *testing.T) {
	a := newInvoiceAssembler(&fakeLoads{}, &fakeCustomers{}, &fakeInvoices{})
	_, err := a.Generate(context.Background(), InvoiceRequest{LoadIDs: []string{"nope"}})
	require.True(t, errs.IsNotFound(err))
}

func newPaySheetAssembler(loads *fakeLoads, carriers *fakeCarriers, payments *fakePayments) *PaySheetAssembler {
	a := NewPaySheetAssembler(loads, carriers, payments, &fakeNumbers{}, 0)
	a.now = func() time.Time { return time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestPaySheetAssembler_quickPay(t *testing.T) {
	loads := &fakeLoads{byID: map[string]*models.Load{
		"l1": deliveredLoad("l1", "SPTMS-202501-0001", "c1", "k1", 1500, 1000),
	}}
	carriers := &fakeCarriers{byID: map[string]*models.Carrier{
		"k1": {ID: "k1", CompanyName: "Fast Trucking"},
	}}
	payments := &fakePayments{}
	a := newPaySheetAssembler(loads, carriers, payments)

	out, err := a.Generate(context.Background(), PaySheetRequest{
		LoadIDs:     []string{"l1"},
		PaymentType: models.PaymentQuickPay,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	p := out[0]
	require.Equal(t, "PAY-202501-0001", p.PaySheetNumber)
	require.Equal(t, models.PaymentStatusPending, p.Status)
	require.Equal(t, models.PaymentQuickPay, p.PaymentType)
	require.Equal(t, 1000.0, p.Subtotal)
	require.Len(t, p.Deductions, 1)
	require.Equal(t, 30.0, p.Deductions[0].Amount)
	require.Equal(t, 30.0, p.TotalDeductions)
	require.Equal(t, 970.0, p.Total)
	require.NotNil(t, p.QuickPayFeePercent)
	require.Equal(t, 3.0, *p.QuickPayFeePercent)
	require.Equal(t, p.CreatedAt.AddDate(0, 0, 2), p.DueDate)
}

func TestPaySheetAssembler_standard(t *testing.T) {
	loads := &fakeLoads{byID: map[string]*models.Load{
		"l1": deliveredLoad("l1", "SPTMS-202501-0001", "c1", "k1", 1500, 1000),
	}}
	carriers := &fakeCarriers{byID: map[string]*models.Carrier{"k1": {ID: "k1"}}}
	a := newPaySheetAssembler(loads, carriers, &fakePayments{})

	out, err := a.Generate(context.Background(), PaySheetRequest{LoadIDs: []string{"l1"}})
	require.NoError(t, err)

	p := out[0]
	require.Equal(t, models.PaymentStandard, p.PaymentType)
	require.Empty(t, p.Deductions)
	require.Equal(t, 1000.0, p.Total)
	require.Equal(t, p.CreatedAt.AddDate(0, 0, 30), p.DueDate)
}

func TestPaySheetAssembler_carrierPreference(t *testing.T) {
	loads := &fakeLoads{byID: map[string]*models.Load{
		"l1": deliveredLoad("l1", "SPTMS-202501-0001", "c1", "k1", 1500, 1000),
	}}
	carriers := &fakeCarriers{byID: map[string]*models.Carrier{
		"k1": {ID: "k1", PaymentMethod: models.PaymentFactoring, FactoringCompany: "TBS Factoring"},
	}}
	a := newPaySheetAssembler(loads, carriers, &fakePayments{})

	out, err := a.Generate(context.Background(), PaySheetRequest{LoadIDs: []string{"l1"}})
	require.NoError(t, err)
	require.Equal(t, models.PaymentFactoring, out[0].PaymentType)
	require.Equal(t, "TBS Factoring", out[0].FactoringCompany)
}

func TestPaySheetAssembler_guards(t *testing.T) {
	noCarrier := deliveredLoad("l1", "SPTMS-202501-0001", "c1", "", 1500, 1000)
	booked := deliveredLoad("l2", "SPTMS-202501-0002", "c1", "k1", 900, 700)
	booked.Status = models.LoadStatusBooked

	loads := &fakeLoads{byID: map[string]*models.Load{"l1": noCarrier, "l2": booked}}
	payments := &fakePayments{}
	a := newPaySheetAssembler(loads, &fakeCarriers{}, payments)

	_, err := a.Generate(context.Background(), PaySheetRequest{LoadIDs: []string{"l1"}})
	require.True(t, errs.IsValidation(err))
	require.Contains(t, err.Error(), "no carrier")

	_, err = a.Generate(context.Background(), PaySheetRequest{LoadIDs: []string{"l2"}})
	require.True(t, errs.IsValidation(err))
	require.Empty(t, payments.created)
}

func TestPaySheetAssembler_invoicedAndPaidEligible(t *testing.T) {
	invoiced := deliveredLoad("l1", "SPTMS-202501-0001", "c1", "k1", 1500, 1000)
	invoiced.Status = models.LoadStatusInvoiced
	paid := deliveredLoad("l2", "SPTMS-202501-0002", "c1", "k1", 900, 700)
	paid.Status = models.LoadStatusPaid

	loads := &fakeLoads{byID: map[string]*models.Load{"l1": invoiced, "l2": paid}}
	carriers := &fakeCarriers{byID: map[string]*models.Carrier{"k1": {ID: "k1"}}}
	a := newPaySheetAssembler(loads, carriers, &fakePayments{})

	out, err := a.Generate(context.Background(), PaySheetRequest{LoadIDs: []string{"l1", "l2"}})
	require.NoError(t, err)
	require.Len(t, out, 2)
}
