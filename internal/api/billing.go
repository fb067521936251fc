package api

import (
	"net/http"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/models"
	"github.com/SprintLogistics/sptms/internal/services/billing"
)

func (s *Server) generateInvoices(w http.ResponseWriter, r *http.Request) {
	var req billing.InvoiceRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	invoices, err := s.d.InvoiceGen.Generate(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, invoices)
}

func (s *Server) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	inv, err := s.d.Invoices.ByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, inv)
}

// syncInvoiceQuickBooks pushes the invoice to QuickBooks. The customer
// must be synced first so we have a remote customer id to attach to.
func (s *Server) syncInvoiceQuickBooks(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	inv, err := s.d.Invoices.ByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	customer, err := s.d.Customers.ByID(r.Context(), inv.CustomerID)
	if err != nil {
		respondError(w, err)
		return
	}
	if customer.QuickBooksID == "" {
		res, err := s.d.Accounting.SyncCustomer(r.Context(), customer)
		if err != nil {
			respondError(w, err)
			return
		}
		customer.QuickBooksID = res.ExternalID
		customer.UpdatedAt = s.now().UTC()
		if _, err := s.d.Customers.Update(r.Context(), customer); err != nil {
			respondError(w, err)
			return
		}
	}

	res, err := s.d.Accounting.CreateInvoice(r.Context(), inv, customer.QuickBooksID, customer.CompanyName, customer.Email)
	if err != nil {
		respondError(w, err)
		return
	}

	now := s.now().UTC()
	inv.Sync = &models.SyncInfo{ExternalID: res.ExternalID, SyncedAt: &now, Status: "synced"}
	if inv.Status == models.InvoiceStatusDraft {
		inv.Status = models.InvoiceStatusSent
	}
	inv.UpdatedAt = now
	updated, err := s.d.Invoices.Update(r.Context(), inv)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, updated)
}

// recordInvoicePayment records a customer payment against a synced
// invoice, both in QuickBooks and on the local document.
func (s *Server) recordInvoicePayment(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}

	inv, err := s.d.Invoices.ByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if inv.Sync == nil || inv.Sync.ExternalID == "" {
		respondError(w, errs.Validationf("invoice %s is not synced to QuickBooks", inv.InvoiceNumber))
		return
	}
	amount := req.Amount
	if amount <= 0 {
		amount = inv.Total
	}

	now := s.now().UTC()
	if _, err := s.d.Accounting.RecordPayment(r.Context(), inv.Sync.ExternalID, amount, now); err != nil {
		respondError(w, err)
		return
	}

	if amount < inv.Total {
		inv.Status = models.InvoiceStatusPartial
	} else {
		inv.Status = models.InvoiceStatusPaid
	}
	inv.UpdatedAt = now
	updated, err := s.d.Invoices.Update(r.Context(), inv)
	if err != nil {
		respondError(w, err)
		return
	}

	// Полная оплата закрывает и сами грузы.
	if inv.Status == models.InvoiceStatusPaid {
		for _, loadID := range inv.LoadIDs {
			l, err := s.d.Loads.ByID(r.Context(), loadID)
			if err != nil {
				continue
			}
			if l.Status != models.LoadStatusInvoiced {
				continue
			}
			l.AppendStatus(models.LoadStatusPaid, now, "Invoice "+inv.InvoiceNumber+" paid")
			l.UpdatedAt = now
			if _, err := s.d.Loads.Update(r.Context(), l); err != nil {
				respondError(w, err)
				return
			}
		}
	}
	respond(w, http.StatusOK, updated)
}

func (s *Server) generatePaySheets(w http.ResponseWriter, r *http.Request) {
	var req billing.PaySheetRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	sheets, err := s.d.PaySheetGen.Generate(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, sheets)
}

func (s *Server) getPaySheet(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	p, err := s.d.Payments.ByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, p)
}

// submitPaySheetEPay hands the pay sheet off to ePay for disbursement.
// The carrier must be enrolled with ePay first.
func (s *Server) submitPaySheetEPay(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	p, err := s.d.Payments.ByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if p.Status == models.PaymentStatusSubmitted || p.Status == models.PaymentStatusProcessing || p.Status == models.PaymentStatusPaid {
		respondError(w, errs.Validationf("pay sheet %s is already %s", p.PaySheetNumber, p.Status))
		return
	}
	carrier, err := s.d.Carriers.ByID(r.Context(), p.CarrierID)
	if err != nil {
		respondError(w, err)
		return
	}
	if carrier.EPayCarrierID == "" {
		respondError(w, errs.Validationf("carrier %s is not enrolled with ePay", carrier.CompanyName))
		return
	}

	loads := make([]*models.Load, 0, len(p.LoadIDs))
	for _, loadID := range p.LoadIDs {
		l, err := s.d.Loads.ByID(r.Context(), loadID)
		if err != nil {
			respondError(w, err)
			return
		}
		loads = append(loads, l)
	}

	req := s.d.Payouts.BuildPaymentRequest(carrier, loads, p)
	res, err := s.d.Payouts.SubmitPayment(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}

	now := s.now().UTC()
	p.Sync = &models.SyncInfo{ExternalID: res.TransactionID, SyncedAt: &now, Status: res.Status}
	p.Status = models.PaymentStatusSubmitted
	p.UpdatedAt = now
	updated, err := s.d.Payments.Update(r.Context(), p)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, updated)
}
