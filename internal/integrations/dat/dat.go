// Package dat is the DAT load-board adapter: posting loads, searching
// trucks and pulling RateView market rates. Requires a Connexion seat
// for the load board and a RateView subscription for rate data.
package dat

import (
	"context"
	"net/http"
	"time"

	"github.com/SprintLogistics/sptms/internal/cache"
	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/integrations/providerkit"
)

const (
	providerName = "dat"
	defaultURL   = "https://api.dat.com"

	// Токен считаем протухшим за минуту до реального срока.
	expiryBuffer = time.Minute

	oauthScope = "openid loadboard rateview"
)

// EquipmentCodes maps domain equipment types to DAT's code table.
var EquipmentCodes = map[string]string{
	"dry-van":    "V",
	"reefer":     "R",
	"flatbed":    "F",
	"step-deck":  "SD",
	"lowboy":     "LB",
	"power-only": "PO",
	"box-truck":  "SB",
	"hotshot":    "HS",
	"tanker":     "T",
	"intermodal": "IM",
	"other":      "O",
}

// EquipmentCode translates an equipment type, passing unknown values
// through untouched.
func EquipmentCode(t string) string {
	if code, ok := EquipmentCodes[t]; ok {
		return code
	}
	return t
}

type Config struct {
	APIURL       string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string

	RequestTimeout time.Duration
	RateCacheTTL   time.Duration
}

type Service struct {
	cfg   Config
	http  *providerkit.Client
	creds *providerkit.CredentialCache
	rates cache.BytesCache

	now func() time.Time
}

// New builds the adapter. rates may be nil; rate lookups then always
// hit the provider.
func New(cfg Config, rates cache.BytesCache) *Service {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultURL
	}
	return &Service{
		cfg:   cfg,
		http:  providerkit.NewClient(providerName, cfg.RequestTimeout),
		creds: providerkit.NewCredentialCache(),
		rates: rates,
		now:   time.Now,
	}
}

// IsConfigured reports whether every required credential is present.
// No network call.
func (s *Service) IsConfigured() bool {
	return s.cfg.ClientID != "" && s.cfg.ClientSecret != "" &&
		s.cfg.Username != "" && s.cfg.Password != ""
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Authenticate runs the password grant against the DAT token endpoint.
func (s *Service) Authenticate(ctx context.Context) (providerkit.Credentials, error) {
	return s.tokenGrant(ctx, map[string][]string{
		"grant_type": {"password"},
		"username":   {s.cfg.Username},
		"password":   {s.cfg.Password},
		"scope":      {oauthScope},
	}, "")
}

// Refresh runs the refresh-token grant. DAT may omit the refresh token
// in the answer; the previous one stays in effect then.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (providerkit.Credentials, error) {
	return s.tokenGrant(ctx, map[string][]string{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}, refreshToken)
}

func (s *Service) tokenGrant(ctx context.Context, form map[string][]string, fallbackRefresh string) (providerkit.Credentials, error) {
	var tok tokenResponse
	err := s.http.Do(ctx, "authenticate", providerkit.Request{
		Method:    http.MethodPost,
		URL:       s.cfg.APIURL + "/oauth/token",
		Form:      form,
		BasicUser: s.cfg.ClientID,
		BasicPass: s.cfg.ClientSecret,
	}, &tok)
	if err != nil {
		return providerkit.Credentials{}, err
	}

	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = fallbackRefresh
	}
	return providerkit.Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    s.now().Add(time.Duration(tok.ExpiresIn)*time.Second - expiryBuffer),
	}, nil
}

// request is the authenticated call every operation goes through.
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
		URL:    s.cfg.APIURL + path,
		Header: http.Header{"Authorization": {"Bearer " + token}},
		Body:   body,
	}, out)
}
