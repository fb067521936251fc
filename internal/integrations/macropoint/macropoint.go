// Package macropoint is the Descartes MacroPoint tracking adapter:
// creating and cancelling tracking orders, driver updates, and parsing
// the location webhooks MacroPoint posts back.
package macropoint

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/integrations/providerkit"
	"github.com/SprintLogistics/sptms/internal/models"
)

const (
	providerName = "macropoint"
	defaultURL   = "https://macropoint-lite.com/api/1.0"
)

type Config struct {
	BaseURL     string
	APIID       string
	APIPassword string
	WebhookURL  string

	RequestTimeout time.Duration
}

type Service struct {
	cfg  Config
	http *providerkit.Client
}

func New(cfg Config) *Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultURL
	}
	return &Service{
		cfg:  cfg,
		http: providerkit.NewClient(providerName, cfg.RequestTimeout),
	}
}

func (s *Service) IsConfigured() bool {
	return s.cfg.APIID != "" && s.cfg.APIPassword != ""
}

// request does a Basic-auth call; MacroPoint has no token flow.
func (s *Service) request(ctx context.Context, op, method, path string, body, out any) error {
	if !s.IsConfigured() {
		return errs.NotConfigured(providerName)
	}
	return s.http.Do(ctx, op, providerkit.Request{
		Method:    method,
		URL:       s.cfg.BaseURL + path,
		Body:      body,
		BasicUser: s.cfg.APIID,
		BasicPass: s.cfg.APIPassword,
	}, out)
}

// TrackingOrder is the confirmation for a created tracking request.
type TrackingOrder struct {
	OrderID    string `json:"orderId"`
	TrackingID string `json:"trackingId,omitempty"`
	Status     string `json:"status,omitempty"`
}

type orderAddress struct {
	Name             string `json:"name,omitempty"`
	Address          string `json:"address"`
	City             string `json:"city"`
	State            string `json:"state"`
	Zip              string `json:"zip"`
	AppointmentStart string `json:"appointmentStart,omitempty"`
	AppointmentEnd   string `json:"appointmentEnd,omitempty"`
}

func buildAddress(a *models.Address, start time.Time, end *time.Time) orderAddress {
	out := orderAddress{}
	if a != nil {
		out.Name = a.FacilityName
		out.Address = a.AddressLine1
		out.City = a.City
		out.State = a.State
		out.Zip = a.ZipCode
	}
	if !start.IsZero() {
		out.AppointmentStart = start.Format(time.RFC3339)
	}
	if end != nil {
		out.AppointmentEnd = end.Format(time.RFC3339)
	}
	return out
}

// CreateTracking registers a tracking order for the load with its
// carrier. The load id doubles as MacroPoint's orderId so webhooks can
// be correlated back.
func (s *Service) CreateTracking(ctx context.Context, load *models.Load, carrier *models.Carrier) (*TrackingOrder, error) {
	body := map[string]any{
		"orderId":         load.ID,
		"referenceNumber": referenceNumber(load),
		"carrier": map[string]any{
			"mcNumber":  carrier.MCNumber,
			"dotNumber": carrier.DOTNumber,
			"name":      carrier.CompanyName,
			"phone":     carrier.Phone,
			"email":     firstNonEmpty(carrier.DispatchEmail, carrier.Email),
		},
		"origin":      buildAddress(load.PickupAddress, load.PickupDate, load.PickupDateEnd),
		"destination": buildAddress(load.DeliveryAddress, load.DeliveryDate, load.DeliveryDateEnd),
		"equipment":   load.EquipmentType,
		"commodity":   load.Commodity,
		"callbackUrl": s.cfg.WebhookURL,
	}
	if load.Weight != nil {
		body["weight"] = *load.Weight
	}
	if load.Driver != nil && load.Driver.Phone != "" {
		body["driverPhone"] = load.Driver.Phone
	}

	var raw providerkit.Object
	if err := s.request(ctx, "create tracking", http.MethodPost, "/orders", body, &raw); err != nil {
		return nil, err
	}

	order := &TrackingOrder{}
	order.OrderID, _ = raw.String("orderId", "order_id")
	if order.OrderID == "" {
		order.OrderID = load.ID
	}
	order.TrackingID, _ = raw.String("trackingId", "tracking_id")
	order.Status, _ = raw.String("status")
	return order, nil
}

// UpdateDriver pushes driver contact info onto an active order.
func (s *Service) UpdateDriver(ctx context.Context, orderID, driverPhone, driverName string) error {
	return s.request(ctx, "update driver", http.MethodPut, "/orders/"+url.PathEscape(orderID)+"/driver", map[string]any{
		"phone": driverPhone,
		"name":  driverName,
	}, nil)
}

// CancelTracking stops tracking for an order.
func (s *Service) CancelTracking(ctx context.Context, orderID string) error {
	return s.request(ctx, "cancel tracking", http.MethodDelete, "/orders/"+url.PathEscape(orderID), nil, nil)
}

// OrderStatus is the current provider-side view of an order.
type OrderStatus struct {
	Status       string  `json:"status"`
	LastLocation *Update `json:"lastLocation,omitempty"`
}

// Status fetches the current tracking status and last known location.
func (s *Service) Status(ctx context.Context, orderID string) (*OrderStatus, error) {
	var raw providerkit.Object
	if err := s.request(ctx, "get status", http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &raw); err != nil {
		return nil, err
	}

	out := &OrderStatus{}
	out.Status, _ = raw.String("status")
	if loc, ok := raw.Object("lastLocation", "last_location"); ok {
		upd := parseUpdate(loc, time.Now().UTC())
		// Статус-ответ может не нести orderId внутри location.
		if upd.OrderID == "" {
			upd.OrderID = orderID
		}
		out.LastLocation = &upd
	}
	return out, nil
}

func referenceNumber(l *models.Load) string {
	if l.LoadNumber != "" {
		return l.LoadNumber
	}
	return l.ID
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
