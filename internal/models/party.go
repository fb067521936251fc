package models

import "time"

type PaymentTerms string

const (
	TermsDueOnReceipt PaymentTerms = "due-on-receipt"
	TermsNet15        PaymentTerms = "net-15"
	TermsNet30        PaymentTerms = "net-30"
	TermsNet45        PaymentTerms = "net-45"
	TermsNet60        PaymentTerms = "net-60"
)

// Days returns the due-date offset for the terms. Unknown values fall
// back to net-30.
func (t PaymentTerms) Days() int {
	switch t {
	case TermsDueOnReceipt:
		return 0
	case TermsNet15:
		return 15
	case TermsNet30:
		return 30
	case TermsNet45:
		return 45
	case TermsNet60:
		return 60
	default:
		return 30
	}
}

type PaymentType string

const (
	PaymentStandard  PaymentType = "standard"
	PaymentQuickPay  PaymentType = "quick-pay"
	PaymentFactoring PaymentType = "factoring"
)

type Customer struct {
	ID           string       `json:"id,omitempty"`
	CompanyName  string       `json:"companyName"`
	Email        string       `json:"email,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	PaymentTerms PaymentTerms `json:"paymentTerms,omitempty"`

	// Accounting-sync reference (QuickBooks customer id).
	QuickBooksID string `json:"quickbooksId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Carrier struct {
	ID             string      `json:"id,omitempty"`
	CompanyName    string      `json:"companyName"`
	MCNumber       string      `json:"mcNumber"`
	DOTNumber      string      `json:"dotNumber,omitempty"`
	PrimaryContact string      `json:"primaryContact,omitempty"`
	Phone          string      `json:"phone,omitempty"`
	Email          string      `json:"email,omitempty"`
	DispatchEmail  string      `json:"dispatchEmail,omitempty"`
	PaymentMethod  PaymentType `json:"paymentMethod,omitempty"`

	FactoringCompany string `json:"factoringCompany,omitempty"`
	EPayCarrierID    string `json:"epayCarrierId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
