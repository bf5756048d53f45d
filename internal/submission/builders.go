package submission

import (
	"strings"
	"time"

	"github.com/byteaxis/byteaxis-api/internal/catalog"
	"github.com/byteaxis/byteaxis-api/internal/identity"
	"github.com/byteaxis/byteaxis-api/internal/pricing"
)

const (
	defaultProjectName = "Custom Project"
	defaultSource      = "website"
)

// QuotationInput is the user-editable part of a quotation request.
type QuotationInput struct {
	ProjectName string
	CompanyName string
	Timeline    string
	Notes       string
	Selection   catalog.Selection
}

// BuildQuotation freezes the current selection and totals into a document.
// Line items follow catalog order.
func BuildQuotation(c *catalog.Catalog, in QuotationInput, session identity.Session, now time.Time) *QuotationRequest {
	items := catalog.SelectedItems(c, in.Selection)
	lines := make([]LineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, LineItem{Label: item.Label, Category: item.Category, Price: item.UnitPrice})
	}
	totals := pricing.ComputeTotals(c, in.Selection)
	return &QuotationRequest{
		Type:        KindQuotation,
		ProjectName: orDefault(in.ProjectName, defaultProjectName),
		CompanyName: strings.TrimSpace(in.CompanyName),
		Timeline:    strings.TrimSpace(in.Timeline),
		Notes:       strings.TrimSpace(in.Notes),
		Subtotal:    totals.Subtotal,
		VAT:         totals.VAT,
		Total:       totals.Total,
		Status:      "new",
		Client:      clientInfo(session, "", ""),
		LineItems:   lines,
		CreatedAt:   timestamp(now),
	}
}

// PaymentInput is the payment hand-off form.
type PaymentInput struct {
	ProjectName string
	CompanyName string
	FullName    string
	Amount      float64
	Email       string
	Phone       string
	Reference   string
}

// BuildPayment creates a pending Paynow payment request in USD.
func BuildPayment(in PaymentInput, session identity.Session, now time.Time) *PaymentRequest {
	email := strings.TrimSpace(in.Email)
	return &PaymentRequest{
		Type:        KindPayment,
		ProjectName: orDefault(in.ProjectName, defaultProjectName),
		CompanyName: strings.TrimSpace(in.CompanyName),
		Amount:      in.Amount,
		Currency:    "USD",
		Method:      "Paynow",
		Email:       email,
		Phone:       strings.TrimSpace(in.Phone),
		Reference:   strings.TrimSpace(in.Reference),
		Status:      "pending",
		Client:      clientInfo(session, strings.TrimSpace(in.FullName), email),
		CreatedAt:   timestamp(now),
	}
}

// NewsletterInput is the newsletter form.
type NewsletterInput struct {
	Email     string
	Interests string
	Source    string
}

// BuildNewsletter creates a newsletter signup.
func BuildNewsletter(in NewsletterInput, now time.Time) *NewsletterSignup {
	return &NewsletterSignup{
		Type:      KindNewsletter,
		Email:     strings.TrimSpace(in.Email),
		Interests: strings.TrimSpace(in.Interests),
		Source:    orDefault(in.Source, defaultSource),
		CreatedAt: timestamp(now),
	}
}

// clientInfo prefers the session user and falls back to form values.
func clientInfo(session identity.Session, name, email string) ClientInfo {
	if !session.Active {
		return ClientInfo{Name: name, Email: email}
	}
	return ClientInfo{
		ExternalUserID: session.User.ID,
		Name:           orDefault(session.User.Name, name),
		Email:          orDefault(session.User.Email, email),
	}
}

func orDefault(v, fallback string) string {
	if trimmed := strings.TrimSpace(v); trimmed != "" {
		return trimmed
	}
	return fallback
}

func timestamp(now time.Time) string {
	if now.IsZero() {
		now = time.Now()
	}
	return now.UTC().Format(time.RFC3339)
}
