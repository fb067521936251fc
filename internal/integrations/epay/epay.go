// Package epay is the carrier-payment settlement adapter: carrier
// sync, payment submission and status, and the settlement webhooks.
package epay

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/integrations/providerkit"
	"github.com/SprintLogistics/sptms/internal/models"
	"github.com/SprintLogistics/sptms/internal/money"
)

const (
	providerName = "epay"
	defaultURL   = "https://api.epay.com/v1"
)

type Config struct {
	APIURL    string
	MemberID  string
	APIKey    string
	APISecret string

	RequestTimeout time.Duration
}

type Service struct {
	cfg  Config
	http *providerkit.Client
	now  func() time.Time
}

func New(cfg Config) *Service {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultURL
	}
	return &Service{
		cfg:  cfg,
		http: providerkit.NewClient(providerName, cfg.RequestTimeout),
		now:  time.Now,
	}
}

func (s *Service) IsConfigured() bool {
	return s.cfg.MemberID != "" && s.cfg.APIKey != "" && s.cfg.APISecret != ""
}

// authHeaders signs the request the way ePay expects: key, member id,
// timestamp and a base64 signature over key:secret:timestamp.
func (s *Service) authHeaders() http.Header {
	ts := strconv.FormatInt(s.now().UnixMilli(), 10)
	sig := base64.StdEncoding.EncodeToString([]byte(s.cfg.APIKey + ":" + s.cfg.APISecret + ":" + ts))
	return http.Header{
		"X-Api-Key":   {s.cfg.APIKey},
		"X-Member-Id": {s.cfg.MemberID},
		"X-Timestamp": {ts},
		"X-Signature": {sig},
	}
}

func (s *Service) request(ctx context.Context, op, method, path string, body, out any) error {
	if !s.IsConfigured() {
		return errs.NotConfigured(providerName)
	}
	return s.http.Do(ctx, op, providerkit.Request{
		Method: method,
		URL:    s.cfg.APIURL + path,
		Header: s.authHeaders(),
		Body:   body,
	}, out)
}

// RemoteCarrier is ePay's view of a carrier.
type RemoteCarrier struct {
	CarrierID        string `json:"carrierId"`
	MCNumber         string `json:"mcNumber"`
	DOTNumber        string `json:"dotNumber,omitempty"`
	CompanyName      string `json:"companyName"`
	PaymentMethod    string `json:"paymentMethod"` // ach | check | factoring
	FactoringCompany string `json:"factoringCompany,omitempty"`
	Status           string `json:"status"`
}

// SyncCarrier registers or updates the carrier on ePay and returns its
// remote id.
func (s *Service) SyncCarrier(ctx context.Context, c *models.Carrier) (string, error) {
	method := "ach"
	if c.PaymentMethod == models.PaymentFactoring {
		method = "factoring"
	}
	body := map[string]any{
		"mcNumber":         c.MCNumber,
		"dotNumber":        c.DOTNumber,
		"companyName":      c.CompanyName,
		"contactName":      c.PrimaryContact,
		"email":            c.Email,
		"phone":            c.Phone,
		"paymentMethod":    method,
		"factoringCompany": c.FactoringCompany,
	}

	var raw providerkit.Object
	if err := s.request(ctx, "sync carrier", http.MethodPost, "/carriers", body, &raw); err != nil {
		return "", err
	}
	id, ok := raw.String("carrierId", "carrier_id", "id")
	if !ok {
		return "", errs.Integration(providerName, "sync carrier", 0, "answer carries no carrier id", nil)
	}
	return id, nil
}

// CarrierByMC looks a carrier up by MC number. A 404 means the carrier
// is simply not enrolled; that comes back as (nil, nil).
func (s *Service) CarrierByMC(ctx context.Context, mcNumber string) (*RemoteCarrier, error) {
	var out RemoteCarrier
	err := s.request(ctx, "get carrier", http.MethodGet, "/carriers/mc/"+url.PathEscape(mcNumber), nil, &out)
	if err != nil {
		var ie *errs.IntegrationError
		if errors.As(err, &ie) && ie.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// PaymentRequest is the settlement submission for one pay sheet.
type PaymentRequest struct {
	BrokerID        string  `json:"brokerId"`
	CarrierID       string  `json:"carrierId"`
	ReferenceNumber string  `json:"referenceNumber"`
	LoadNumber      string  `json:"loadNumber"`
	Amount          float64 `json:"amount"`

	PaymentType string   `json:"paymentType"` // standard | quick-pay
	QuickPayFee *float64 `json:"quickPayFee,omitempty"`

	LineItems  []models.PayLineItem `json:"lineItems"`
	Deductions []models.Deduction   `json:"deductions,omitempty"`

	Origin       Place  `json:"origin"`
	Destination  Place  `json:"destination"`
	DeliveryDate string `json:"deliveryDate"`
	Notes        string `json:"notes,omitempty"`
}

type Place struct {
	City  string `json:"city"`
	State string `json:"state"`
}

// PaymentResult is ePay's answer about one settlement transaction.
type PaymentResult struct {
	TransactionID    string `json:"transactionId"`
	Status           string `json:"status"` // pending | processing | approved | paid | rejected
	EstimatedPayDate string `json:"estimatedPayDate,omitempty"`
}

// BuildPaymentRequest renders a pay sheet as an ePay submission. Route
// endpoints come from the first and last load of the sheet.
func (s *Service) BuildPaymentRequest(carrier *models.Carrier, loads []*models.Load, p *models.CarrierPayment) PaymentRequest {
	req := PaymentRequest{
		BrokerID:        s.cfg.MemberID,
		CarrierID:       carrier.EPayCarrierID,
		ReferenceNumber: p.PaySheetNumber,
		Amount:          money.Round2(p.Total),
		PaymentType:     string(p.PaymentType),
		LineItems:       p.LineItems,
		Deductions:      p.Deductions,
	}
	if p.PaymentType == models.PaymentQuickPay {
		req.QuickPayFee = p.QuickPayFeePercent
	}

	numbers := make([]string, 0, len(loads))
	for _, l := range loads {
		numbers = append(numbers, l.LoadNumber)
	}
	req.LoadNumber = strings.Join(numbers, ", ")

	if len(loads) > 0 {
		first, last := loads[0], loads[len(loads)-1]
		if first.PickupAddress != nil {
			req.Origin = Place{City: first.PickupAddress.City, State: first.PickupAddress.State}
		}
		if last.DeliveryAddress != nil {
			req.Destination = Place{City: last.DeliveryAddress.City, State: last.DeliveryAddress.State}
		}
		req.DeliveryDate = last.DeliveryDate.Format(time.RFC3339)
	}
	return req
}

// SubmitPayment sends a settlement to ePay.
func (s *Service) SubmitPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	var raw providerkit.Object
	if err := s.request(ctx, "submit payment", http.MethodPost, "/payments", req, &raw); err != nil {
		return nil, err
	}
	return parsePaymentResult(raw), nil
}

// PaymentStatus fetches the current state of a settlement.
func (s *Service) PaymentStatus(ctx context.Context, transactionID string) (*PaymentResult, error) {
	var raw providerkit.Object
	if err := s.request(ctx, "payment status", http.MethodGet, "/payments/"+url.PathEscape(transactionID), nil, &raw); err != nil {
		return nil, err
	}
	return parsePaymentResult(raw), nil
}

// CancelPayment voids a not-yet-paid settlement.
func (s *Service) CancelPayment(ctx context.Context, transactionID, reason string) error {
	return s.request(ctx, "cancel payment", http.MethodPost,
		"/payments/"+url.PathEscape(transactionID)+"/cancel",
		map[string]any{"reason": reason}, nil)
}

// PendingPayments lists a carrier's settlements still in flight.
func (s *Service) PendingPayments(ctx context.Context, carrierID string) ([]PaymentResult, error) {
	var raw providerkit.Object
	if err := s.request(ctx, "pending payments", http.MethodGet,
		"/carriers/"+url.PathEscape(carrierID)+"/payments?status=pending", nil, &raw); err != nil {
		return nil, err
	}

	items, _ := raw.Objects("payments", "data")
	out := make([]PaymentResult, 0, len(items))
	for _, item := range items {
		out = append(out, *parsePaymentResult(item))
	}
	return out, nil
}

func parsePaymentResult(raw providerkit.Object) *PaymentResult {
	res := &PaymentResult{}
	res.TransactionID, _ = raw.String("transactionId", "transaction_id", "id")
	res.Status, _ = raw.String("status")
	res.EstimatedPayDate, _ = raw.String("estimatedPayDate", "estimated_pay_date")
	return res
}
