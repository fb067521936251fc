package api

import (
	"net/http"
	"strconv"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/models"
)

// startTracking opens a MacroPoint order for the load and records the
// order id so webhook and poll updates can find their way back.
func (s *Server) startTracking(w http.ResponseWriter, r *http.Request) {
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
	if l.CarrierID == "" {
		respondError(w, errs.Validationf("load %s has no carrier assigned", l.LoadNumber))
		return
	}
	if l.Tracking != nil && l.Tracking.Active {
		respondError(w, errs.Validationf("tracking is already active for load %s", l.LoadNumber))
		return
	}
	carrier, err := s.d.Carriers.ByID(r.Context(), l.CarrierID)
	if err != nil {
		respondError(w, err)
		return
	}

	order, err := s.d.Tracking.CreateTracking(r.Context(), l, carrier)
	if err != nil {
		respondError(w, err)
		return
	}

	now := s.now().UTC()
	l.Tracking = &models.TrackingInfo{TrackingID: order.OrderID, Active: true, LastUpdate: &now}
	l.UpdatedAt = now
	updated, err := s.d.Loads.Update(r.Context(), l)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, updated)
}

func (s *Server) stopTracking(w http.ResponseWriter, r *http.Request) {
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
	if l.Tracking == nil || !l.Tracking.Active {
		respondError(w, errs.Validationf("tracking is not active for load %s", l.LoadNumber))
		return
	}

	if err := s.d.Tracking.CancelTracking(r.Context(), l.Tracking.TrackingID); err != nil {
		respondError(w, err)
		return
	}

	l.Tracking.Active = false
	l.UpdatedAt = s.now().UTC()
	updated, err := s.d.Loads.Update(r.Context(), l)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, updated)
}

func (s *Server) updateDriver(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req models.DriverInfo
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Phone == "" {
		respondError(w, errs.Validationf("driver phone is required"))
		return
	}

	l, err := s.d.Loads.ByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if l.Tracking != nil && l.Tracking.Active {
		if err := s.d.Tracking.UpdateDriver(r.Context(), l.Tracking.TrackingID, req.Phone, req.Name); err != nil {
			respondError(w, err)
			return
		}
	}

	l.Driver = &req
	l.UpdatedAt = s.now().UTC()
	updated, err := s.d.Loads.Update(r.Context(), l)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, updated)
}

func (s *Server) listTrackingEvents(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, errs.Validationf("limit must be a positive integer"))
			return
		}
		limit = n
	}
	events, err := s.d.Events.ListByLoad(r.Context(), id, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, events)
}
