package api

import (
	"net/http"
	"strconv"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/integrations/dat"
)

// createPosting posts an existing load to the DAT board. The posting
// carries the brokerage contact block from configuration.
func (s *Server) createPosting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoadID string `json:"load"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.LoadID == "" {
		respondError(w, errs.Validationf("load is required"))
		return
	}
	l, err := s.d.Loads.ByID(r.Context(), req.LoadID)
	if err != nil {
		respondError(w, err)
		return
	}

	posting := dat.BuildPosting(l, s.d.PostingContactName, s.d.PostingContactPhone, s.d.PostingContactEmail)
	res, err := s.d.Board.PostLoad(r.Context(), posting)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, res)
}

func (s *Server) myPostings(w http.ResponseWriter, r *http.Request) {
	postings, err := s.d.Board.MyPostings(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, postings)
}

func (s *Server) removePosting(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.d.Board.RemovePosting(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"removed": true})
}

func (s *Server) searchTrucks(w http.ResponseWriter, r *http.Request) {
	var search dat.TruckSearch
	if err := decode(r, &search); err != nil {
		respondError(w, err)
		return
	}
	trucks, total, err := s.d.Board.SearchTrucks(r.Context(), search)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"trucks": trucks, "total": total})
}

// laneQuery reads the shared lane query params: originCity, originState,
// destCity, destState, equipmentType.
func laneQuery(r *http.Request) (dat.RateQuery, error) {
	q := dat.RateQuery{
		Origin: dat.Place{
			City:  r.URL.Query().Get("originCity"),
			State: r.URL.Query().Get("originState"),
		},
		Destination: dat.Place{
			City:  r.URL.Query().Get("destCity"),
			State: r.URL.Query().Get("destState"),
		},
		EquipmentType: r.URL.Query().Get("equipmentType"),
	}
	if q.Origin.State == "" || q.Destination.State == "" {
		return q, errs.Validationf("originState and destState are required")
	}
	return q, nil
}

func (s *Server) laneRates(w http.ResponseWriter, r *http.Request) {
	q, err := laneQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}
	rates, err := s.d.Board.GetRates(r.Context(), q)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, rates)
}

func (s *Server) laneHistory(w http.ResponseWriter, r *http.Request) {
	q, err := laneQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}
	days := 90
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, errs.Validationf("days must be a positive integer"))
			return
		}
		days = n
	}
	points, err := s.d.Board.LaneHistory(r.Context(), q.Origin, q.Destination, q.EquipmentType, days)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, points)
}

func (s *Server) suggestedRate(w http.ResponseWriter, r *http.Request) {
	q, err := laneQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}
	targetMargin := 15.0
	if v := r.URL.Query().Get("targetMargin"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f >= 100 {
			respondError(w, errs.Validationf("targetMargin must be in [0, 100)"))
			return
		}
		targetMargin = f
	}
	suggestion, err := s.d.Board.SuggestedRate(r.Context(), q, targetMargin)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, suggestion)
}
