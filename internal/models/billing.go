package models

import "time"

type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusViewed  InvoiceStatus = "viewed"
	InvoiceStatusPartial InvoiceStatus = "partial"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
	InvoiceStatusVoid    InvoiceStatus = "void"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusApproved   PaymentStatus = "approved"
	PaymentStatusSubmitted  PaymentStatus = "submitted"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusRejected   PaymentStatus = "rejected"
	PaymentStatusVoid       PaymentStatus = "void"
)

// SyncInfo is the external-system sync sub-record carried by billing
// documents (QuickBooks for invoices, ePay for pay sheets).
type SyncInfo struct {
	ExternalID string     `json:"externalId,omitempty"`
	SyncedAt   *time.Time `json:"syncedAt,omitempty"`
	Status     string     `json:"status,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// InvoiceLineItem is one customer-facing billing line, traceable to the
// load it came from.
type InvoiceLineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Total       float64 `json:"total"`
	LoadID      string  `json:"load,omitempty"`
}

type Invoice struct {
	ID            string        `json:"id,omitempty"`
	InvoiceNumber string        `json:"invoiceNumber"`
	Status        InvoiceStatus `json:"status"`

	CustomerID string   `json:"customer"`
	LoadIDs    []string `json:"loads"`

	InvoiceDate  time.Time    `json:"invoiceDate"`
	PaymentTerms PaymentTerms `json:"paymentTerms"`
	DueDate      time.Time    `json:"dueDate"`

	LineItems []InvoiceLineItem `json:"lineItems"`
	Subtotal  float64           `json:"subtotal"`
	Total     float64           `json:"total"`

	BillingCompanyName string `json:"billingCompanyName,omitempty"`

	Sync *SyncInfo `json:"quickbooksSync,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PayLineItem is one carrier-facing pay-sheet line.
type PayLineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	LoadID      string  `json:"load,omitempty"`
}

type Deduction struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
}

// CarrierPayment is the pay sheet: the broker-to-carrier payment
// document.
type CarrierPayment struct {
	ID             string        `json:"id,omitempty"`
	PaySheetNumber string        `json:"paySheetNumber"`
	Status         PaymentStatus `json:"status"`

	CarrierID string   `json:"carrier"`
	LoadIDs   []string `json:"loads"`

	PaymentType        PaymentType `json:"paymentType"`
	QuickPayFeePercent *float64    `json:"quickPayFee,omitempty"`

	LineItems       []PayLineItem `json:"lineItems"`
	Deductions      []Deduction   `json:"deductions,omitempty"`
	Subtotal        float64       `json:"subtotal"`
	TotalDeductions float64       `json:"totalDeductions"`
	Total           float64       `json:"total"`

	DueDate          time.Time `json:"dueDate"`
	FactoringCompany string    `json:"factoringCompany,omitempty"`

	Sync *SyncInfo `json:"epaySync,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
