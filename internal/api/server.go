// Package api is the JSON HTTP surface: thin chi handlers over the
// services, plus the provider webhook endpoints.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/integrations/dat"
	"github.com/SprintLogistics/sptms/internal/integrations/epay"
	"github.com/SprintLogistics/sptms/internal/integrations/macropoint"
	"github.com/SprintLogistics/sptms/internal/integrations/quickbooks"
	"github.com/SprintLogistics/sptms/internal/models"
	"github.com/SprintLogistics/sptms/internal/services/billing"
	"github.com/SprintLogistics/sptms/internal/services/profitability"
	"github.com/SprintLogistics/sptms/internal/services/trackingfeed"
)

type loadStore interface {
	ByID(ctx context.Context, id string) (*models.Load, error)
	Create(ctx context.Context, l *models.Load) (*models.Load, error)
	Update(ctx context.Context, l *models.Load) (*models.Load, error)
	InPeriod(ctx context.Context, start, end time.Time) ([]*models.Load, error)
}

type customerStore interface {
	ByID(ctx context.Context, id string) (*models.Customer, error)
	Create(ctx context.Context, c *models.Customer) (*models.Customer, error)
	Update(ctx context.Context, c *models.Customer) (*models.Customer, error)
}

type carrierStore interface {
	ByID(ctx context.Context, id string) (*models.Carrier, error)
	ByMCNumber(ctx context.Context, mc string) (*models.Carrier, error)
	Create(ctx context.Context, c *models.Carrier) (*models.Carrier, error)
	Update(ctx context.Context, c *models.Carrier) (*models.Carrier, error)
}

type invoiceStore interface {
	ByID(ctx context.Context, id string) (*models.Invoice, error)
	Update(ctx context.Context, inv *models.Invoice) (*models.Invoice, error)
}

type paymentStore interface {
	ByID(ctx context.Context, id string) (*models.CarrierPayment, error)
	ByTransactionID(ctx context.Context, txID string) (*models.CarrierPayment, error)
	Update(ctx context.Context, p *models.CarrierPayment) (*models.CarrierPayment, error)
}

type eventStore interface {
	ListByLoad(ctx context.Context, loadID string, limit int) ([]*models.TrackingEvent, error)
}

type numberer interface {
	Next(ctx context.Context, collection, field, prefix string) (string, error)
}

type invoiceGenerator interface {
	Generate(ctx context.Context, req billing.InvoiceRequest) ([]*models.Invoice, error)
}

type paySheetGenerator interface {
	Generate(ctx context.Context, req billing.PaySheetRequest) ([]*models.CarrierPayment, error)
}

type summarizer interface {
	Summarize(ctx context.Context, start, end time.Time) (*profitability.Summary, error)
}

type webhookFeed interface {
	Process(ctx context.Context, raw []byte) trackingfeed.Ack
}

type loadBoard interface {
	IsConfigured() bool
	PostLoad(ctx context.Context, p dat.LoadPosting) (*dat.PostingResult, error)
	UpdatePosting(ctx context.Context, postingID string, p dat.LoadPosting) (*dat.PostingResult, error)
	RemovePosting(ctx context.Context, postingID string) error
	MyPostings(ctx context.Context) ([]dat.LoadPosting, error)
	SearchTrucks(ctx context.Context, search dat.TruckSearch) ([]dat.Truck, int, error)
	GetRates(ctx context.Context, q dat.RateQuery) (*dat.LaneRates, error)
	LaneHistory(ctx context.Context, origin, destination dat.Place, equipmentType string, days int) ([]dat.HistoryPoint, error)
	SuggestedRate(ctx context.Context, q dat.RateQuery, targetMarginPercent float64) (*dat.SuggestedRate, error)
}

type trackingProvider interface {
	CreateTracking(ctx context.Context, load *models.Load, carrier *models.Carrier) (*macropoint.TrackingOrder, error)
	UpdateDriver(ctx context.Context, orderID, driverPhone, driverName string) error
	CancelTracking(ctx context.Context, orderID string) error
	Status(ctx context.Context, orderID string) (*macropoint.OrderStatus, error)
}

type paymentProvider interface {
	SyncCarrier(ctx context.Context, c *models.Carrier) (string, error)
	BuildPaymentRequest(carrier *models.Carrier, loads []*models.Load, p *models.CarrierPayment) epay.PaymentRequest
	SubmitPayment(ctx context.Context, req epay.PaymentRequest) (*epay.PaymentResult, error)
	PendingPayments(ctx context.Context, carrierID string) ([]epay.PaymentResult, error)
}

type accountingProvider interface {
	SyncCustomer(ctx context.Context, c *models.Customer) (*quickbooks.SyncResult, error)
	CreateInvoice(ctx context.Context, inv *models.Invoice, customerQBID, customerName, billEmail string) (*quickbooks.SyncResult, error)
	RecordPayment(ctx context.Context, invoiceQBID string, amount float64, paymentDate time.Time) (*quickbooks.SyncResult, error)
	CustomerBalances(ctx context.Context) ([]quickbooks.CustomerBalance, error)
}

// Deps is everything the handlers reach for. Provider fields may be nil
// when the integration is not configured; the handlers answer 502 via
// the not-configured error instead.
type Deps struct {
	Loads     loadStore
	Customers customerStore
	Carriers  carrierStore
	Invoices  invoiceStore
	Payments  paymentStore
	Events    eventStore
	Numbers   numberer

	InvoiceGen  invoiceGenerator
	PaySheetGen paySheetGenerator
	Reports     summarizer
	Feed        webhookFeed

	Board      loadBoard
	Tracking   trackingProvider
	Payouts    paymentProvider
	Accounting accountingProvider

	// Contact block stamped on DAT postings.
	PostingContactName  string
	PostingContactPhone string
	PostingContactEmail string
}

type Server struct {
	d   Deps
	now func() time.Time
}

func NewServer(d Deps) *Server {
	return &Server{d: d, now: time.Now}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/loads", func(r chi.Router) {
			r.Post("/", s.createLoad)
			r.Get("/{id}", s.getLoad)
			r.Put("/{id}/status", s.updateLoadStatus)
			r.Get("/{id}/profitability", s.loadProfitability)

			r.Post("/{id}/tracking", s.startTracking)
			r.Delete("/{id}/tracking", s.stopTracking)
			r.Put("/{id}/tracking/driver", s.updateDriver)
			r.Get("/{id}/tracking/events", s.listTrackingEvents)
		})

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", s.createCustomer)
			r.Get("/{id}", s.getCustomer)
			r.Post("/{id}/sync-quickbooks", s.syncCustomerQuickBooks)
		})

		r.Route("/carriers", func(r chi.Router) {
			r.Post("/", s.createCarrier)
			r.Get("/{id}", s.getCarrier)
			r.Post("/{id}/sync-epay", s.syncCarrierEPay)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Post("/generate", s.generateInvoices)
			r.Get("/{id}", s.getInvoice)
			r.Post("/{id}/sync-quickbooks", s.syncInvoiceQuickBooks)
			r.Post("/{id}/record-payment", s.recordInvoicePayment)
		})

		r.Route("/carrier-payments", func(r chi.Router) {
			r.Post("/generate", s.generatePaySheets)
			r.Get("/{id}", s.getPaySheet)
			r.Post("/{id}/submit-epay", s.submitPaySheetEPay)
		})

		r.Route("/dat", func(r chi.Router) {
			r.Post("/postings", s.createPosting)
			r.Get("/postings", s.myPostings)
			r.Delete("/postings/{id}", s.removePosting)
			r.Post("/trucks/search", s.searchTrucks)
			r.Get("/rates", s.laneRates)
			r.Get("/rates/history", s.laneHistory)
			r.Get("/rates/suggestion", s.suggestedRate)
		})

		r.Get("/reports/profitability", s.profitabilityReport)
		r.Get("/reports/receivables", s.receivablesReport)

		r.Route("/webhooks", func(r chi.Router) {
			r.Get("/macropoint", s.macroPointChallenge)
			r.Post("/macropoint", s.macroPointWebhook)
			r.Post("/epay", s.epayWebhook)
		})
	})

	return r
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// respondError maps the error taxonomy onto HTTP statuses. Provider
// failures come back as 502: the request was fine, the upstream wasn't.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errs.IsValidation(err):
		status = http.StatusBadRequest
	case errs.IsNotFound(err):
		status = http.StatusNotFound
	case errs.IsComputation(err):
		status = http.StatusUnprocessableEntity
	case errs.IsIntegration(err):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err.Error())
	}
	respond(w, status, map[string]string{"error": err.Error()})
}

func decode(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return errs.Validationf("invalid request body: %v", err)
	}
	return nil
}

func urlID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if id == "" {
		return "", errs.Validationf("missing id in path")
	}
	return id, nil
}
