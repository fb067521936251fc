package epay

import (
	"encoding/json"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/integrations/providerkit"
)

type WebhookType string

const (
	WebhookPaymentUpdate WebhookType = "payment_update"
	WebhookCarrierUpdate WebhookType = "carrier_update"
	WebhookUnknown       WebhookType = "unknown"
)

// Webhook is a normalized ePay event. Raw keeps the original payload
// for auditing.
type Webhook struct {
	Type          WebhookType     `json:"type"`
	TransactionID string          `json:"transactionId,omitempty"`
	CarrierID     string          `json:"carrierId,omitempty"`
	Status        string          `json:"status,omitempty"`
	Raw           json.RawMessage `json:"raw"`
}

// ParseWebhook classifies an inbound ePay webhook by its event name.
// Unrecognized events are passed through as unknown rather than
// rejected; ePay adds event types without notice.
func ParseWebhook(raw []byte) (*Webhook, error) {
	obj, err := providerkit.ParseObject(raw)
	if err != nil {
		return nil, errs.Validationf("unparseable webhook payload: %v", err)
	}

	event, _ := obj.String("event")
	data, _ := obj.Object("data")

	wh := &Webhook{Type: WebhookUnknown, Raw: raw}
	switch event {
	case "payment.updated", "payment.status_changed":
		wh.Type = WebhookPaymentUpdate
		wh.TransactionID = pick(obj, data, "transactionId", "transaction_id")
		wh.Status = pick(obj, data, "status")
	case "carrier.updated":
		wh.Type = WebhookCarrierUpdate
		wh.CarrierID = pick(obj, data, "carrierId", "carrier_id")
	}
	return wh, nil
}

// pick reads keys from the top-level object first, then the nested
// data object.
func pick(obj, data providerkit.Object, keys ...string) string {
	if v, ok := obj.String(keys...); ok {
		return v
	}
	if data != nil {
		if v, ok := data.String(keys...); ok {
			return v
		}
	}
	return ""
}
