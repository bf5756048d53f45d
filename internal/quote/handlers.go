// Package quote exposes the quotation builder and the submission endpoints.
package quote

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/byteaxis/byteaxis-api/internal/catalog"
	"github.com/byteaxis/byteaxis-api/internal/common"
	"github.com/byteaxis/byteaxis-api/internal/identity"
	"github.com/byteaxis/byteaxis-api/internal/notify"
	"github.com/byteaxis/byteaxis-api/internal/pricing"
	"github.com/byteaxis/byteaxis-api/internal/submission"
	"github.com/byteaxis/byteaxis-api/internal/summary"
)

// Handler serves quotation, payment and newsletter routes.
type Handler struct {
	catalog     *catalog.Catalog
	submissions *submission.Client
	summaries   *summary.Generator
	notifier    notify.Notifier
	now         func() time.Time
}

// Config groups Handler dependencies.
type Config struct {
	Catalog     *catalog.Catalog
	Submissions *submission.Client
	Summaries   *summary.Generator
	// Notifier defaults to notify.Nop.
	Notifier notify.Notifier
	Now      func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		catalog:     cfg.Catalog,
		submissions: cfg.Submissions,
		summaries:   cfg.Summaries,
		notifier:    cfg.Notifier,
		now:         cfg.Now,
	}
	if h.notifier == nil {
		h.notifier = notify.Nop{}
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

type selectionInput struct {
	Selection catalog.Selection `json:"selection"`
	Selected  []string          `json:"selected"`
}

// resolve merges the map and list forms of a selection.
func (in selectionInput) resolve() catalog.Selection {
	sel := make(catalog.Selection, len(in.Selection)+len(in.Selected))
	for id, on := range in.Selection {
		sel[id] = on
	}
	for _, id := range in.Selected {
		sel[strings.TrimSpace(id)] = true
	}
	return sel
}

type totalsResponse struct {
	Items   []catalog.Item        `json:"items"`
	Totals  pricing.Totals        `json:"totals"`
	Display pricing.DisplayTotals `json:"display"`
}

func (h *Handler) totals(sel catalog.Selection) totalsResponse {
	totals := pricing.ComputeTotals(h.catalog, sel)
	return totalsResponse{
		Items:   catalog.SelectedItems(h.catalog, sel),
		Totals:  totals,
		Display: totals.Display(),
	}
}

// Totals handles POST /api/v1/quotes/totals.
func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	var in selectionInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, h.totals(in.resolve()))
}

type toggleRequest struct {
	selectionInput
	ID string `json:"id"`
}

// Toggle handles POST /api/v1/quotes/toggle. It returns the flipped selection
// with fresh totals; the submitted selection is not modified.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	var in toggleRequest
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	id := strings.TrimSpace(in.ID)
	if _, ok := h.catalog.Lookup(id); !ok {
		common.WriteError(w, common.BadRequest("unknown catalog item", nil).WithDetails(map[string]any{"id": id}))
		return
	}
	next := catalog.Toggle(in.resolve(), id)
	common.JSON(w, http.StatusOK, map[string]any{
		"selection": next,
		"quote":     h.totals(next),
	})
}

type summaryRequest struct {
	selectionInput
	ProjectName string `json:"projectName"`
	CompanyName string `json:"companyName"`
}

// Summary handles POST /api/v1/quotes/summary. It always answers 200.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	var in summaryRequest
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	project := firstNonEmpty(in.ProjectName, in.CompanyName, "Project")
	labels := catalog.Labels(catalog.SelectedItems(h.catalog, in.resolve()))

	select {
	case text := <-h.summaries.SummarizeAsync(r.Context(), project, labels):
		common.JSON(w, http.StatusOK, map[string]any{
			"summary": text,
			"backend": h.summaries.Backend(),
		})
	case <-r.Context().Done():
		// client went away; nothing to write
	}
}

type quotationRequest struct {
	selectionInput
	ProjectName string `json:"projectName"`
	CompanyName string `json:"companyName"`
	Timeline    string `json:"timeline"`
	Notes       string `json:"notes"`
}

// CreateQuotation handles POST /api/v1/quotation-requests. Totals are
// recomputed from the server catalog.
func (h *Handler) CreateQuotation(w http.ResponseWriter, r *http.Request) {
	var in quotationRequest
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	doc := submission.BuildQuotation(h.catalog, submission.QuotationInput{
		ProjectName: in.ProjectName,
		CompanyName: in.CompanyName,
		Timeline:    in.Timeline,
		Notes:       in.Notes,
		Selection:   in.resolve(),
	}, identity.FromContext(r.Context()), h.now())

	h.submit(w, r, doc, notify.Event{ProjectName: doc.ProjectName, Email: doc.Client.Email, Total: doc.Total})
}

type paymentRequest struct {
	ProjectName string  `json:"projectName"`
	CompanyName string  `json:"companyName"`
	FullName    string  `json:"fullName"`
	Amount      float64 `json:"amount"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	Reference   string  `json:"reference"`
}

// CreatePayment handles POST /api/v1/payment-requests.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var in paymentRequest
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	doc := submission.BuildPayment(submission.PaymentInput(in), identity.FromContext(r.Context()), h.now())
	h.submit(w, r, doc, notify.Event{ProjectName: doc.ProjectName, Email: doc.Email, Total: doc.Amount})
}

type newsletterRequest struct {
	Email     string `json:"email"`
	Interests string `json:"interests"`
	Source    string `json:"source"`
}

// CreateNewsletter handles POST /api/v1/newsletter.
func (h *Handler) CreateNewsletter(w http.ResponseWriter, r *http.Request) {
	var in newsletterRequest
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	doc := submission.BuildNewsletter(submission.NewsletterInput(in), h.now())
	h.submit(w, r, doc, notify.Event{Email: doc.Email})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, doc submission.Document, ev notify.Event) {
	form := submission.NewFormWithKey(identity.Caller(r), r.Header.Get(common.IdempotencyHeader))
	id, err := h.submissions.SubmitForm(r.Context(), form, doc)
	if err != nil {
		common.WriteError(w, mapSubmitError(err))
		return
	}

	ev.Kind = string(doc.Kind())
	ev.ID = id
	ev.OccurredAt = h.now().UTC()
	h.notify(r.Context(), ev)

	common.JSON(w, http.StatusCreated, map[string]any{"id": id, "kind": doc.Kind()})
}

// notify publishes ev without letting a queue problem fail the request.
func (h *Handler) notify(ctx context.Context, ev notify.Event) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := h.notifier.Notify(nctx, ev); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("kind", ev.Kind).Str("id", ev.ID).Msg("submission notification not enqueued")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
