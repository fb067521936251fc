package api

import (
	"net/http"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/models"
)

func (s *Server) createCustomer(w http.ResponseWriter, r *http.Request) {
	var c models.Customer
	if err := decode(r, &c); err != nil {
		respondError(w, err)
		return
	}
	if c.CompanyName == "" {
		respondError(w, errs.Validationf("companyName is required"))
		return
	}
	now := s.now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	created, err := s.d.Customers.Create(r.Context(), &c)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, created)
}

func (s *Server) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	c, err := s.d.Customers.ByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, c)
}

// syncCustomerQuickBooks pushes the customer to QuickBooks and stores
// the returned remote id for later invoice sync.
func (s *Server) syncCustomerQuickBooks(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	c, err := s.d.Customers.ByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	res, err := s.d.Accounting.SyncCustomer(r.Context(), c)
	if err != nil {
		respondError(w, err)
		return
	}

	c.QuickBooksID = res.ExternalID
	c.UpdatedAt = s.now().UTC()
	if _, err := s.d.Customers.Update(r.Context(), c); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (s *Server) createCarrier(w http.ResponseWriter, r *http.Request) {
	var c models.Carrier
	if err := decode(r, &c); err != nil {
		respondError(w, err)
		return
	}
	if c.CompanyName == "" || c.MCNumber == "" {
		respondError(w, errs.Validationf("companyName and mcNumber are required"))
		return
	}
	if existing, err := s.d.Carriers.ByMCNumber(r.Context(), c.MCNumber); err != nil {
		respondError(w, err)
		return
	} else if existing != nil {
		respondError(w, errs.Validationf("carrier with MC %s already exists", c.MCNumber))
		return
	}

	now := s.now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	created, err := s.d.Carriers.Create(r.Context(), &c)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, created)
}

func (s *Server) getCarrier(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	c, err := s.d.Carriers.ByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, c)
}

// syncCarrierEPay enrolls the carrier with ePay and stores the remote
// carrier id used when submitting payments.
func (s *Server) syncCarrierEPay(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	c, err := s.d.Carriers.ByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	remoteID, err := s.d.Payouts.SyncCarrier(r.Context(), c)
	if err != nil {
		respondError(w, err)
		return
	}

	c.EPayCarrierID = remoteID
	c.UpdatedAt = s.now().UTC()
	if _, err := s.d.Carriers.Update(r.Context(), c); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"epayCarrierId": remoteID})
}
