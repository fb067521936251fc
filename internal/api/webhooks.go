package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/SprintLogistics/sptms/internal/integrations/epay"
	"github.com/SprintLogistics/sptms/internal/models"
)

// macroPointChallenge answers the subscription handshake: MacroPoint
// sends a GET with a challenge token and expects it echoed back.
func (s *Server) macroPointChallenge(w http.ResponseWriter, r *http.Request) {
	challenge := r.URL.Query().Get("challenge")
	if challenge == "" {
		respond(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// macroPointWebhook always answers 200: a non-2xx would make MacroPoint
// retry a payload we will never be able to process.
func (s *Server) macroPointWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		respond(w, http.StatusOK, map[string]any{"received": false})
		return
	}
	ack := s.d.Feed.Process(r.Context(), raw)
	respond(w, http.StatusOK, ack)
}

var epayStatuses = map[string]models.PaymentStatus{
	"pending":    models.PaymentStatusPending,
	"approved":   models.PaymentStatusApproved,
	"processing": models.PaymentStatusProcessing,
	"paid":       models.PaymentStatusPaid,
	"rejected":   models.PaymentStatusRejected,
}

// epayWebhook applies payment status updates from ePay. Same contract
// as the MacroPoint hook: acknowledge everything, even what we cannot
// match to a pay sheet.
func (s *Server) epayWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		respond(w, http.StatusOK, map[string]any{"received": false})
		return
	}

	wh, err := epay.ParseWebhook(raw)
	if err != nil {
		respond(w, http.StatusOK, map[string]any{"received": true, "processed": false, "error": err.Error()})
		return
	}
	if wh.Type != epay.WebhookPaymentUpdate || wh.TransactionID == "" {
		respond(w, http.StatusOK, map[string]any{"received": true, "processed": false})
		return
	}

	p, err := s.d.Payments.ByTransactionID(r.Context(), wh.TransactionID)
	if err != nil {
		slog.Error("epay webhook lookup", "transaction_id", wh.TransactionID, "error", err.Error())
		respond(w, http.StatusOK, map[string]any{"received": true, "processed": false, "error": err.Error()})
		return
	}
	if p == nil {
		respond(w, http.StatusOK, map[string]any{"received": true, "processed": false})
		return
	}

	status, ok := epayStatuses[wh.Status]
	if !ok {
		respond(w, http.StatusOK, map[string]any{"received": true, "processed": false})
		return
	}

	now := s.now().UTC()
	p.Status = status
	if p.Sync != nil {
		p.Sync.Status = wh.Status
		p.Sync.SyncedAt = &now
	}
	p.UpdatedAt = now
	if _, err := s.d.Payments.Update(r.Context(), p); err != nil {
		slog.Error("epay webhook update", "pay_sheet", p.PaySheetNumber, "error", err.Error())
		respond(w, http.StatusOK, map[string]any{"received": true, "processed": false, "error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]any{"received": true, "processed": true, "paySheet": p.PaySheetNumber})
}
