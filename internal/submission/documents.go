package submission

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Kind is the document type name used by the store.
type Kind string

const (
	KindQuotation  Kind = "quotationRequest"
	KindPayment    Kind = "paymentRequest"
	KindNewsletter Kind = "newsletterSignup"
)

// Document is a payload the client can submit.
type Document interface {
	Kind() Kind
	DocumentID() string
	assignID(id string)
	// fingerprint is the content that identifies a submission, without the
	// store id or the creation time.
	fingerprint() []byte
}

func fingerprintOf(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

// DocumentIDFor derives the store _id for a form's request id.
func DocumentIDFor(kind Kind, requestID uuid.UUID) string {
	return fmt.Sprintf("%s-%s", kind, requestID)
}

// ClientInfo identifies the session user that created a document.
type ClientInfo struct {
	ExternalUserID string `json:"externalUserId"`
	Name           string `json:"name"`
	Email          string `json:"email"`
}

// LineItem is a selected catalog entry frozen into a quotation.
type LineItem struct {
	Label    string  `json:"label" validate:"required"`
	Category string  `json:"category"`
	Price    float64 `json:"price" validate:"gte=0"`
}

// QuotationRequest is a persisted quotation snapshot.
type QuotationRequest struct {
	ID          string     `json:"_id,omitempty"`
	Type        Kind       `json:"_type"`
	ProjectName string     `json:"projectName"`
	CompanyName string     `json:"companyName"`
	Timeline    string     `json:"timeline"`
	Notes       string     `json:"notes"`
	Subtotal    float64    `json:"subtotal"`
	VAT         float64    `json:"vat"`
	Total       float64    `json:"total"`
	Status      string     `json:"status"`
	Client      ClientInfo `json:"client"`
	LineItems   []LineItem `json:"lineItems" validate:"min=1,dive"`
	CreatedAt   string     `json:"createdAt"`
}

func (d *QuotationRequest) Kind() Kind         { return KindQuotation }
func (d *QuotationRequest) DocumentID() string { return d.ID }
func (d *QuotationRequest) assignID(id string) { d.ID = id }

func (d *QuotationRequest) fingerprint() []byte {
	c := *d
	c.ID, c.CreatedAt = "", ""
	return fingerprintOf(c)
}

// PaymentRequest is a manual payment hand-off record.
type PaymentRequest struct {
	ID          string     `json:"_id,omitempty"`
	Type        Kind       `json:"_type"`
	ProjectName string     `json:"projectName"`
	CompanyName string     `json:"companyName"`
	Amount      float64    `json:"amount" validate:"gt=0"`
	Currency    string     `json:"currency"`
	Method      string     `json:"method"`
	Email       string     `json:"email" validate:"required,email"`
	Phone       string     `json:"phone"`
	Reference   string     `json:"reference"`
	Status      string     `json:"status"`
	Client      ClientInfo `json:"client"`
	CreatedAt   string     `json:"createdAt"`
}

func (d *PaymentRequest) Kind() Kind         { return KindPayment }
func (d *PaymentRequest) DocumentID() string { return d.ID }
func (d *PaymentRequest) assignID(id string) { d.ID = id }

func (d *PaymentRequest) fingerprint() []byte {
	c := *d
	c.ID, c.CreatedAt = "", ""
	return fingerprintOf(c)
}

// NewsletterSignup is a marketing opt-in.
type NewsletterSignup struct {
	ID        string `json:"_id,omitempty"`
	Type      Kind   `json:"_type"`
	Email     string `json:"email" validate:"required,email"`
	Interests string `json:"interests"`
	Source    string `json:"source"`
	CreatedAt string `json:"createdAt"`
}

func (d *NewsletterSignup) Kind() Kind         { return KindNewsletter }
func (d *NewsletterSignup) DocumentID() string { return d.ID }
func (d *NewsletterSignup) assignID(id string) { d.ID = id }

func (d *NewsletterSignup) fingerprint() []byte {
	c := *d
	c.ID, c.CreatedAt = "", ""
	return fingerprintOf(c)
}
