// Package quickbooks is the accounting adapter: customer and invoice
// sync plus payment recording against QuickBooks Online.
//
// QuickBooks has no non-interactive first authentication; the refresh
// token obtained through the one-time consent flow is configuration,
// and both auth paths run the refresh grant with it.
package quickbooks

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/integrations/providerkit"
	"github.com/SprintLogistics/sptms/internal/models"
)

const (
	providerName = "quickbooks"

	productionURL = "https://quickbooks.api.intuit.com"
	sandboxURL    = "https://sandbox-quickbooks.api.intuit.com"

	defaultTokenURL = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"

	expiryBuffer = time.Minute
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Environment  string // sandbox | production
	RealmID      string
	RefreshToken string

	// Overridable in tests.
	APIURL   string
	TokenURL string

	RequestTimeout time.Duration
}

type Service struct {
	cfg   Config
	http  *providerkit.Client
	creds *providerkit.CredentialCache
	now   func() time.Time
}

func New(cfg Config) *Service {
	if cfg.APIURL == "" {
		if cfg.Environment == "production" {
			cfg.APIURL = productionURL
		} else {
			cfg.APIURL = sandboxURL
		}
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	return &Service{
		cfg:   cfg,
		http:  providerkit.NewClient(providerName, cfg.RequestTimeout),
		creds: providerkit.NewCredentialCache(),
		now:   time.Now,
	}
}

func (s *Service) IsConfigured() bool {
	return s.cfg.ClientID != "" && s.cfg.ClientSecret != "" &&
		s.cfg.RealmID != "" && s.cfg.RefreshToken != ""
}

// AuthorizationURL is the consent URL an operator visits to (re)issue
// the refresh token.
func (s *Service) AuthorizationURL(state string) string {
	q := url.Values{}
	q.Set("client_id", s.cfg.ClientID)
	q.Set("response_type", "code")
	q.Set("scope", "com.intuit.quickbooks.accounting")
	q.Set("redirect_uri", s.cfg.RedirectURI)
	q.Set("state", state)
	return "https://appcenter.intuit.com/connect/oauth2?" + q.Encode()
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (s *Service) Authenticate(ctx context.Context) (providerkit.Credentials, error) {
	return s.refreshGrant(ctx, s.cfg.RefreshToken)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (providerkit.Credentials, error) {
	return s.refreshGrant(ctx, refreshToken)
}

func (s *Service) refreshGrant(ctx context.Context, refreshToken string) (providerkit.Credentials, error) {
	var tok tokenResponse
	err := s.http.Do(ctx, "authenticate", providerkit.Request{
		Method: http.MethodPost,
		URL:    s.cfg.TokenURL,
		Form: url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {refreshToken},
		},
		BasicUser: s.cfg.ClientID,
		BasicPass: s.cfg.ClientSecret,
	}, &tok)
	if err != nil {
		return providerkit.Credentials{}, err
	}

	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = refreshToken
	}
	return providerkit.Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    s.now().Add(time.Duration(tok.ExpiresIn)*time.Second - expiryBuffer),
	}, nil
}

func (s *Service) request(ctx context.Context, op, method, path string, body, out any) error {
	if !s.IsConfigured() {
		return errs.NotConfigured(providerName)
	}
	token, err := s.creds.Token(ctx, s)
	if err != nil {
		return err
	}
	return s.http.Do(ctx, op, providerkit.Request{
		Method: method,
		URL:    s.cfg.APIURL + "/v3/company/" + url.PathEscape(s.cfg.RealmID) + path,
		Header: http.Header{"Authorization": {"Bearer " + token}},
		Body:   body,
	}, out)
}

// query runs a QBO SQL-ish query.
func (s *Service) query(ctx context.Context, op, q string, out any) error {
	return s.request(ctx, op, http.MethodGet, "/query?query="+url.QueryEscape(q), nil, out)
}

// RemoteCustomer mirrors the QBO Customer entity, trimmed to what we
// use.
type RemoteCustomer struct {
	ID          string  `json:"Id,omitempty"`
	SyncToken   string  `json:"SyncToken,omitempty"`
	DisplayName string  `json:"DisplayName"`
	CompanyName string  `json:"CompanyName,omitempty"`
	Balance     float64 `json:"Balance,omitempty"`

	PrimaryEmailAddr *struct {
		Address string `json:"Address"`
	} `json:"PrimaryEmailAddr,omitempty"`
	PrimaryPhone *struct {
		FreeFormNumber string `json:"FreeFormNumber"`
	} `json:"PrimaryPhone,omitempty"`
}

// SyncResult identifies the synced entity on the QuickBooks side.
type SyncResult struct {
	ExternalID string `json:"qbId"`
	SyncToken  string `json:"syncToken,omitempty"`
}

func wireCustomer(c *models.Customer) RemoteCustomer {
	rc := RemoteCustomer{
		DisplayName: c.CompanyName,
		CompanyName: c.CompanyName,
	}
	if c.Email != "" {
		rc.PrimaryEmailAddr = &struct {
			Address string `json:"Address"`
		}{Address: c.Email}
	}
	if c.Phone != "" {
		rc.PrimaryPhone = &struct {
			FreeFormNumber string `json:"FreeFormNumber"`
		}{FreeFormNumber: c.Phone}
	}
	return rc
}

type customerEnvelope struct {
	Customer RemoteCustomer `json:"Customer"`
}

// SyncCustomer creates the customer on QBO, or updates it when it
// already carries a QuickBooks id. Updates must echo the entity's
// current SyncToken, so updates read first.
func (s *Service) SyncCustomer(ctx context.Context, c *models.Customer) (*SyncResult, error) {
	rc := wireCustomer(c)

	if c.QuickBooksID != "" {
		var current customerEnvelope
		if err := s.request(ctx, "get customer", http.MethodGet, "/customer/"+url.PathEscape(c.QuickBooksID), nil, &current); err != nil {
			return nil, err
		}
		rc.ID = c.QuickBooksID
		rc.SyncToken = current.Customer.SyncToken
	}

	var updated customerEnvelope
	if err := s.request(ctx, "sync customer", http.MethodPost, "/customer", rc, &updated); err != nil {
		return nil, err
	}
	return &SyncResult{ExternalID: updated.Customer.ID, SyncToken: updated.Customer.SyncToken}, nil
}

type customerQueryResponse struct {
	QueryResponse struct {
		Customer []RemoteCustomer `json:"Customer"`
	} `json:"QueryResponse"`
}

// FindCustomerByName looks a customer up by display name. Not found is
// (nil, nil).
func (s *Service) FindCustomerByName(ctx context.Context, name string) (*RemoteCustomer, error) {
	q := fmt.Sprintf("select * from Customer where DisplayName = '%s'", escapeQuery(name))
	var res customerQueryResponse
	if err := s.query(ctx, "find customer", q, &res); err != nil {
		return nil, err
	}
	if len(res.QueryResponse.Customer) == 0 {
		return nil, nil
	}
	return &res.QueryResponse.Customer[0], nil
}

// CustomerBalance is one open accounts-receivable position.
type CustomerBalance struct {
	CustomerID string  `json:"customerId"`
	Name       string  `json:"name"`
	Balance    float64 `json:"balance"`
}

// CustomerBalances lists customers with an open balance.
func (s *Service) CustomerBalances(ctx context.Context) ([]CustomerBalance, error) {
	var res customerQueryResponse
	if err := s.query(ctx, "customer balances", "select * from Customer where Balance > '0'", &res); err != nil {
		return nil, err
	}
	out := make([]CustomerBalance, 0, len(res.QueryResponse.Customer))
	for _, c := range res.QueryResponse.Customer {
		if c.Balance <= 0 {
			continue
		}
		out = append(out, CustomerBalance{CustomerID: c.ID, Name: c.DisplayName, Balance: c.Balance})
	}
	return out, nil
}

// QBO rejects unescaped quotes in query literals.
func escapeQuery(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
