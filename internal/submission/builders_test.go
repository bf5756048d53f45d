package submission_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/byteaxis/byteaxis-api/internal/catalog"
	"github.com/byteaxis/byteaxis-api/internal/identity"
	"github.com/byteaxis/byteaxis-api/internal/submission"
)

func TestBuildQuotation(t *testing.T) {
	session := identity.Session{Active: true, User: identity.User{ID: "user_1", Name: "Ada", Email: "ada@example.com"}}
	sel := catalog.SelectionFromIDs([]string{"webapp", "website", "unknown"})

	doc := submission.BuildQuotation(catalog.Default(), submission.QuotationInput{CompanyName: " Acme "}, session, fixedNow)
	require.Equal(t, "Custom Project", doc.ProjectName)
	require.Empty(t, doc.LineItems)

	doc = submission.BuildQuotation(catalog.Default(), submission.QuotationInput{ProjectName: "Portal", Selection: sel}, session, fixedNow)
	require.Equal(t, submission.KindQuotation, doc.Type)
	require.Equal(t, "new", doc.Status)
	require.Equal(t, "2026-03-14T07:30:00Z", doc.CreatedAt)
	require.Equal(t, submission.ClientInfo{ExternalUserID: "user_1", Name: "Ada", Email: "ada@example.com"}, doc.Client)
	require.Equal(t, []submission.LineItem{
		{Label: "Business website (5-7 pages)", Category: "Websites", Price: 950},
		{Label: "Web application MVP", Category: "Web Apps", Price: 3500},
	}, doc.LineItems)
	require.InDelta(t, 4450, doc.Subtotal, 1e-9)
	require.InDelta(t, 667.5, doc.VAT, 1e-9)
	require.InDelta(t, 5117.5, doc.Total, 1e-9)
}

func TestBuildPaymentFallsBackToFormIdentity(t *testing.T) {
	in := submission.PaymentInput{FullName: "Grace", Email: "grace@example.com", Amount: 120.5}

	anon := submission.BuildPayment(in, identity.Session{}, fixedNow)
	require.Equal(t, submission.ClientInfo{Name: "Grace", Email: "grace@example.com"}, anon.Client)
	require.Equal(t, "USD", anon.Currency)
	require.Equal(t, "Paynow", anon.Method)
	require.Equal(t, "pending", anon.Status)
	require.Equal(t, "Custom Project", anon.ProjectName)

	signed := submission.BuildPayment(in, identity.Session{Active: true, User: identity.User{ID: "u2", Email: "g@corp.io"}}, fixedNow)
	require.Equal(t, submission.ClientInfo{ExternalUserID: "u2", Name: "Grace", Email: "g@corp.io"}, signed.Client)
	require.Equal(t, "grace@example.com", signed.Email)
}

func TestBuildNewsletterDefaultsSource(t *testing.T) {
	require.Equal(t, "website", submission.BuildNewsletter(submission.NewsletterInput{Email: "a@b.co"}, fixedNow).Source)
	require.Equal(t, "home", submission.BuildNewsletter(submission.NewsletterInput{Email: "a@b.co", Source: "home"}, fixedNow).Source)
}
