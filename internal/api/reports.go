package api

import (
	"net/http"
	"time"

	"github.com/SprintLogistics/sptms/internal/errs"
)

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, errs.Validationf("invalid date %q, want RFC3339 or YYYY-MM-DD", v)
	}
	return t, nil
}

// profitabilityReport summarizes loads delivered in the requested
// period. Without explicit dates it covers the current month to date.
func (s *Server) profitabilityReport(w http.ResponseWriter, r *http.Request) {
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := now

	var err error
	if v := r.URL.Query().Get("startDate"); v != "" {
		if start, err = parseDate(v); err != nil {
			respondError(w, err)
			return
		}
	}
	if v := r.URL.Query().Get("endDate"); v != "" {
		if end, err = parseDate(v); err != nil {
			respondError(w, err)
			return
		}
		// Голая дата означает весь день включительно.
		if end.Hour() == 0 && end.Minute() == 0 && end.Second() == 0 {
			end = end.Add(24*time.Hour - time.Nanosecond)
		}
	}
	if end.Before(start) {
		respondError(w, errs.Validationf("endDate is before startDate"))
		return
	}

	sum, err := s.d.Reports.Summarize(r.Context(), start, end)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, sum)
}

// receivablesReport mirrors what QuickBooks knows about open customer
// balances.
func (s *Server) receivablesReport(w http.ResponseWriter, r *http.Request) {
	balances, err := s.d.Accounting.CustomerBalances(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, balances)
}
