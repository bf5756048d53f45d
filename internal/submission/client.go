// Package submission validates and persists quotation, payment and newsletter
// documents. Writes are attempted once per call; retries are a user action.
package submission

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/byteaxis/byteaxis-api/internal/obs"
	"github.com/byteaxis/byteaxis-api/internal/store"
)

var tracer = otel.Tracer("byteaxis/submission")

var validationMessages = map[Kind]string{
	KindQuotation:  "select at least one service before submitting",
	KindPayment:    "amount and email are required",
	KindNewsletter: "please enter an email address",
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Result is the outcome of an asynchronous submission.
type Result struct {
	ID  string
	Err error
}

// Client submits documents through a store connection.
type Client struct {
	conn     store.Connection
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewClient builds a Client. A nil validator gets NewValidator.
func NewClient(conn store.Connection, validate *validator.Validate, logger zerolog.Logger) *Client {
	if validate == nil {
		validate = NewValidator()
	}
	return &Client{conn: conn, validate: validate, logger: logger}
}

// Configured reports whether writes can be attempted at all.
func (c *Client) Configured() bool {
	_, ok := c.conn.Writer()
	return ok
}

// Submit validates doc and creates it in the store, returning the new id.
// Missing configuration and invalid input are reported before any network call.
func (c *Client) Submit(ctx context.Context, doc Document) (id string, err error) {
	kind := doc.Kind()
	ctx, span := tracer.Start(ctx, "submission.submit", trace.WithAttributes(attribute.String("submission.kind", string(kind))))
	start := time.Now()
	defer func() {
		result := outcome(err)
		obs.CountSubmission(string(kind), result)
		if err != nil && result != "invalid" {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	writer, ok := c.conn.Writer()
	if !ok {
		return "", ErrNotConfigured
	}
	if err := c.check(doc); err != nil {
		return "", err
	}

	id, err = writer.Create(ctx, doc)
	obs.ObserveSubmission(string(kind), float64(time.Since(start).Milliseconds()))
	switch {
	case err == nil:
	case errors.Is(err, store.ErrDocumentExists) && doc.DocumentID() != "":
		// an earlier attempt of the same form already landed
		id, err = doc.DocumentID(), nil
	case errors.Is(err, store.ErrNotConfigured):
		return "", ErrNotConfigured
	default:
		c.log(ctx).Warn().Err(err).Str("kind", string(kind)).Msg("submission failed")
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	span.SetAttributes(attribute.String("submission.id", id))
	c.log(ctx).Info().Str("kind", string(kind)).Str("id", id).Msg("submission stored")
	return id, nil
}

// SubmitAsync runs Submit on its own goroutine. The channel is buffered so an
// abandoned receiver never blocks the sender.
func (c *Client) SubmitAsync(ctx context.Context, doc Document) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		id, err := c.Submit(ctx, doc)
		out <- Result{ID: id, Err: err}
	}()
	return out
}

// SubmitForm drives f through its lifecycle around a single Submit of doc.
// The document id is derived from the form's request id so a retry of the
// same form cannot create a second document.
func (c *Client) SubmitForm(ctx context.Context, f *Form, doc Document) (string, error) {
	if err := f.begin(); err != nil {
		return "", err
	}
	doc.assignID(f.documentID(doc))
	id, err := c.Submit(ctx, doc)
	if err != nil {
		f.fail(err)
		return "", err
	}
	f.complete(id)
	return id, nil
}

func (c *Client) check(doc Document) error {
	err := c.validate.Struct(doc)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("submission: validate %s: %w", doc.Kind(), err)
	}
	out := &ValidationError{Kind: doc.Kind(), Message: validationMessages[doc.Kind()]}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fieldPath(fe.Namespace()), Rule: fe.Tag()})
	}
	return out
}

// fieldPath drops the struct name prefix from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func (c *Client) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &c.logger
}

func outcome(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	default:
		return "unavailable"
	}
}
