package api

import (
	"net/http"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/models"
	"github.com/SprintLogistics/sptms/internal/services/profitability"
	"github.com/SprintLogistics/sptms/internal/services/sequence"
	"github.com/SprintLogistics/sptms/internal/storage/store"
)

func (s *Server) createLoad(w http.ResponseWriter, r *http.Request) {
	var l models.Load
	if err := decode(r, &l); err != nil {
		respondError(w, err)
		return
	}
	if l.CustomerID == "" {
		respondError(w, errs.Validationf("customer is required"))
		return
	}

	now := s.now().UTC()
	if l.LoadNumber == "" {
		number, err := s.d.Numbers.Next(r.Context(), store.CollectionLoads, "loadNumber",
			sequence.PeriodPrefix(sequence.KindLoad, now))
		if err != nil {
			respondError(w, err)
			return
		}
		l.LoadNumber = number
	}
	if l.Status == "" {
		l.Status = models.LoadStatusBooked
	}
	l.ComputeMargin()
	l.StatusHistory = []models.StatusChange{{Status: l.Status, Timestamp: now, Note: "Load created"}}
	l.CreatedAt = now
	l.UpdatedAt = now

	created, err := s.d.Loads.Create(r.Context(), &l)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, created)
}

func (s *Server) getLoad(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	l, err := s.d.Loads.ByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, l)
}

var manualStatuses = map[models.LoadStatus]bool{
	models.LoadStatusBooked:     true,
	models.LoadStatusDispatched: true,
	models.LoadStatusInTransit:  true,
	models.LoadStatusDelivered:  true,
	models.LoadStatusInvoiced:   true,
	models.LoadStatusPaid:       true,
	models.LoadStatusCancelled:  true,
	models.LoadStatusTONU:       true,
}

// updateLoadStatus is the manual path: unlike webhook transitions it
// may move to the terminal side states, but never re-opens a load that
// is already invoiced or paid.
func (s *Server) updateLoadStatus(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req struct {
		Status models.LoadStatus `json:"status"`
		Note   string            `json:"note,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if !manualStatuses[req.Status] {
		respondError(w, errs.Validationf("unknown status %q", req.Status))
		return
	}

	l, err := s.d.Loads.ByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if l.Status == req.Status {
		respond(w, http.StatusOK, l)
		return
	}
	if l.Status == models.LoadStatusInvoiced || l.Status == models.LoadStatusPaid {
		if req.Status.Rank() >= 0 && !req.Status.ForwardOf(l.Status) {
			respondError(w, errs.Validationf("load %s is already %s", l.LoadNumber, l.Status))
			return
		}
	}

	now := s.now().UTC()
	note := req.Note
	if note == "" {
		note = "Status changed from " + string(l.Status) + " to " + string(req.Status)
	}
	l.AppendStatus(req.Status, now, note)
	l.UpdatedAt = now

	updated, err := s.d.Loads.Update(r.Context(), l)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, updated)
}

func (s *Server) loadProfitability(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	l, err := s.d.Loads.ByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, profitability.ForLoad(l))
}
