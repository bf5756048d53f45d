// Package store talks to the hosted document store over its HTTP query and
// mutation API.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/byteaxis/byteaxis-api/internal/obs"
	"github.com/byteaxis/byteaxis-api/internal/resilience"
)

var (
	// ErrUnavailable covers transport failures, 5xx and unexpected responses.
	ErrUnavailable = errors.New("store: unavailable")
	// ErrDocumentExists is returned when a create collides with an existing _id.
	ErrDocumentExists = errors.New("store: document already exists")
	// ErrNotConfigured is returned by writes when no token is configured.
	ErrNotConfigured = errors.New("store: write token not configured")
)

var tracer = otel.Tracer("byteaxis/store")

// Reader runs read queries.
type Reader interface {
	Query(ctx context.Context, query string, params map[string]any, dst any) error
}

// Writer creates documents.
type Writer interface {
	Create(ctx context.Context, doc any) (string, error)
}

// Config describes how to reach the document store.
type Config struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string
	UseCDN     bool
	// BaseURL overrides both read and write hosts.
	BaseURL string

	Timeout     time.Duration
	ReadRetries int
	Breaker     *resilience.Breaker
	Transport   http.RoundTripper
	Logger      *zerolog.Logger
}

// Client is a document store client. Reads may retry; writes are single attempt.
type Client struct {
	readBase  string
	writeBase string
	dataset   string
	version   string
	token     string
	reads     resilience.HTTPClient
	writes    resilience.HTTPClient
	logger    *zerolog.Logger
}

// New constructs a Client from cfg.
func New(cfg Config) (*Client, error) {
	dataset := strings.TrimSpace(cfg.Dataset)
	if dataset == "" {
		return nil, errors.New("store: dataset is required")
	}
	version := strings.TrimPrefix(strings.TrimSpace(cfg.APIVersion), "v")
	if version == "" {
		return nil, errors.New("store: api version is required")
	}
	readBase, writeBase, err := hosts(cfg)
	if err != nil {
		return nil, err
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	httpClient := &http.Client{Transport: otelhttp.NewTransport(transport)}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.ReadRetries
	if retries <= 0 {
		retries = 1
	}

	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Client{
		readBase:  readBase,
		writeBase: writeBase,
		dataset:   dataset,
		version:   version,
		token:     strings.TrimSpace(cfg.Token),
		reads: resilience.HTTPClient{
			Client:      httpClient,
			Breaker:     cfg.Breaker,
			Target:      "document-store",
			BaseBackoff: 200 * time.Millisecond,
			MaxAttempts: retries,
			Jitter:      0.2,
			Timeout:     timeout,
		},
		writes: resilience.HTTPClient{
			Client:      httpClient,
			Breaker:     cfg.Breaker,
			Target:      "document-store",
			MaxAttempts: 1,
			Timeout:     timeout,
		},
		logger: logger,
	}, nil
}

func hosts(cfg Config) (string, string, error) {
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		if _, err := url.Parse(base); err != nil {
			return "", "", fmt.Errorf("store: invalid base url: %w", err)
		}
		return base, base, nil
	}
	project := strings.TrimSpace(cfg.ProjectID)
	if project == "" {
		return "", "", errors.New("store: project id is required")
	}
	write := "https://" + project + ".api.sanity.io"
	if cfg.UseCDN {
		return "https://" + project + ".apicdn.sanity.io", write, nil
	}
	return write, write, nil
}

// Connection reports the write capability of the client.
func (c *Client) Connection() Connection {
	if c == nil || c.token == "" {
		return Unconfigured()
	}
	return Configured(c)
}

// Query runs a GROQ query and decodes its result into dst. Each params entry
// is sent as a $name JSON value.
func (c *Client) Query(ctx context.Context, query string, params map[string]any, dst any) (err error) {
	ctx, span := tracer.Start(ctx, "store.query", trace.WithAttributes(attribute.String("store.dataset", c.dataset)))
	defer func() { endSpan(span, err) }()
	defer func() { countRequest("query", err) }()

	values := url.Values{}
	values.Set("query", query)
	for name, value := range params {
		encoded, mErr := json.Marshal(value)
		if mErr != nil {
			return fmt.Errorf("store: encode param %s: %w", name, mErr)
		}
		values.Set("$"+name, string(encoded))
	}
	endpoint := fmt.Sprintf("%s/v%s/data/query/%s?%s", c.readBase, c.version, url.PathEscape(c.dataset), values.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("store: build query: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.reads.Do(ctx, req)
	if err != nil {
		return c.unavailable(ctx, "query", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return c.unavailable(ctx, "query", statusErr(resp))
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return c.unavailable(ctx, "query", fmt.Errorf("decode response: %w", err))
	}
	if dst == nil || len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, dst); err != nil {
		return c.unavailable(ctx, "query", fmt.Errorf("decode result: %w", err))
	}
	return nil
}

type mutateResponse struct {
	TransactionID string `json:"transactionId"`
	Results       []struct {
		ID        string `json:"id"`
		Operation string `json:"operation"`
	} `json:"results"`
}

// Create stores doc and returns the id assigned by the store.
func (c *Client) Create(ctx context.Context, doc any) (id string, err error) {
	ctx, span := tracer.Start(ctx, "store.create", trace.WithAttributes(attribute.String("store.dataset", c.dataset)))
	defer func() { endSpan(span, err) }()
	defer func() { countRequest("create", err) }()

	if c.token == "" {
		return "", ErrNotConfigured
	}
	body, err := json.Marshal(map[string]any{
		"mutations": []map[string]any{{"create": doc}},
	})
	if err != nil {
		return "", fmt.Errorf("store: encode mutation: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v%s/data/mutate/%s?returnIds=true", c.writeBase, c.version, url.PathEscape(c.dataset))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("store: build mutation: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.writes.Do(ctx, req)
	if err != nil {
		return "", c.unavailable(ctx, "create", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", ErrDocumentExists
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.Error().Ctx(ctx).Int("status", resp.StatusCode).Msg("document store rejected the write token")
		return "", fmt.Errorf("%w: token rejected with status %d", ErrNotConfigured, resp.StatusCode)
	case resp.StatusCode/100 != 2:
		return "", c.unavailable(ctx, "create", statusErr(resp))
	}

	var out mutateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", c.unavailable(ctx, "create", fmt.Errorf("decode response: %w", err))
	}
	if len(out.Results) == 0 || out.Results[0].ID == "" {
		return "", c.unavailable(ctx, "create", errors.New("response carried no document id"))
	}
	return out.Results[0].ID, nil
}

// Ping runs a trivial query to confirm the store is reachable.
func (c *Client) Ping(ctx context.Context) error {
	var ignored json.RawMessage
	return c.Query(ctx, `count(*[_type == $type][0...1])`, map[string]any{"type": "project"}, &ignored)
}

func (c *Client) unavailable(ctx context.Context, op string, cause error) error {
	c.logger.Warn().Ctx(ctx).Err(cause).Str("op", op).Msg("document store call failed")
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, cause)
}

func statusErr(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(snippet))
	if msg == "" {
		return &resilience.StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
}

func countRequest(op string, err error) {
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrDocumentExists):
		result = "conflict"
	case errors.Is(err, ErrNotConfigured):
		result = "not_configured"
	default:
		result = "error"
	}
	obs.CountStoreRequest(op, result)
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrDocumentExists) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
