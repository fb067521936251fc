package quickbooks

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/SprintLogistics/sptms/internal/models"
)

const qbDateLayout = "2006-01-02"

type Ref struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

type salesItemLineDetail struct {
	Qty       float64 `json:"Qty,omitempty"`
	UnitPrice float64 `json:"UnitPrice,omitempty"`
}

type invoiceLine struct {
	Amount              float64              `json:"Amount"`
	Description         string               `json:"Description,omitempty"`
	DetailType          string               `json:"DetailType"`
	SalesItemLineDetail *salesItemLineDetail `json:"SalesItemLineDetail,omitempty"`
}

// RemoteInvoice mirrors the QBO Invoice entity, trimmed to what we
// use.
type RemoteInvoice struct {
	ID        string        `json:"Id,omitempty"`
	SyncToken string        `json:"SyncToken,omitempty"`
	DocNumber string        `json:"DocNumber,omitempty"`
	TxnDate   string        `json:"TxnDate,omitempty"`
	DueDate   string        `json:"DueDate,omitempty"`
	Customer  Ref           `json:"CustomerRef"`
	Line      []invoiceLine `json:"Line,omitempty"`
	TotalAmt  float64       `json:"TotalAmt,omitempty"`
	Balance   float64       `json:"Balance,omitempty"`

	PrivateNote string `json:"PrivateNote,omitempty"`
	BillEmail   *struct {
		Address string `json:"Address"`
	} `json:"BillEmail,omitempty"`
}

type invoiceEnvelope struct {
	Invoice RemoteInvoice `json:"Invoice"`
}

// CreateInvoice pushes an invoice to QBO under the customer's remote
// id.
func (s *Service) CreateInvoice(ctx context.Context, inv *models.Invoice, customerQBID, customerName, billEmail string) (*SyncResult, error) {
	ri := RemoteInvoice{
		DocNumber: inv.InvoiceNumber,
		TxnDate:   inv.InvoiceDate.Format(qbDateLayout),
		DueDate:   inv.DueDate.Format(qbDateLayout),
		Customer:  Ref{Value: customerQBID, Name: customerName},
	}
	for _, item := range inv.LineItems {
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}
		ri.Line = append(ri.Line, invoiceLine{
			Amount:      item.Total,
			Description: item.Description,
			DetailType:  "SalesItemLineDetail",
			SalesItemLineDetail: &salesItemLineDetail{
				Qty:       qty,
				UnitPrice: item.Rate,
			},
		})
	}
	if billEmail != "" {
		ri.BillEmail = &struct {
			Address string `json:"Address"`
		}{Address: billEmail}
	}

	var created invoiceEnvelope
	if err := s.request(ctx, "create invoice", http.MethodPost, "/invoice", ri, &created); err != nil {
		return nil, err
	}
	return &SyncResult{ExternalID: created.Invoice.ID, SyncToken: created.Invoice.SyncToken}, nil
}

// GetInvoice fetches an invoice by its QBO id.
func (s *Service) GetInvoice(ctx context.Context, qbID string) (*RemoteInvoice, error) {
	var env invoiceEnvelope
	if err := s.request(ctx, "get invoice", http.MethodGet, "/invoice/"+url.PathEscape(qbID), nil, &env); err != nil {
		return nil, err
	}
	return &env.Invoice, nil
}

// VoidInvoice voids an invoice. QBO wants the current SyncToken, so it
// reads the invoice first.
func (s *Service) VoidInvoice(ctx context.Context, qbID string) error {
	inv, err := s.GetInvoice(ctx, qbID)
	if err != nil {
		return err
	}
	return s.request(ctx, "void invoice", http.MethodPost, "/invoice?operation=void", map[string]any{
		"Id":        qbID,
		"SyncToken": inv.SyncToken,
	}, nil)
}

type paymentLine struct {
	Amount    float64 `json:"Amount"`
	LinkedTxn []struct {
		TxnID   string `json:"TxnId"`
		TxnType string `json:"TxnType"`
	} `json:"LinkedTxn"`
}

// RecordPayment registers a received payment against an invoice.
func (s *Service) RecordPayment(ctx context.Context, invoiceQBID string, amount float64, paymentDate time.Time) (*SyncResult, error) {
	inv, err := s.GetInvoice(ctx, invoiceQBID)
	if err != nil {
		return nil, err
	}

	line := paymentLine{Amount: amount}
	line.LinkedTxn = append(line.LinkedTxn, struct {
		TxnID   string `json:"TxnId"`
		TxnType string `json:"TxnType"`
	}{TxnID: invoiceQBID, TxnType: "Invoice"})

	body := map[string]any{
		"TotalAmt":    amount,
		"TxnDate":     paymentDate.Format(qbDateLayout),
		"CustomerRef": inv.Customer,
		"Line":        []paymentLine{line},
	}

	var created struct {
		Payment struct {
			ID string `json:"Id"`
		} `json:"Payment"`
	}
	if err := s.request(ctx, "record payment", http.MethodPost, "/payment", body, &created); err != nil {
		return nil, err
	}
	return &SyncResult{ExternalID: created.Payment.ID}, nil
}
