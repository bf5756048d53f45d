package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/byteaxis/byteaxis-api/internal/obs"
	"github.com/byteaxis/byteaxis-api/internal/resilience"
)

// Dispatcher delivers submission events to a webhook.
type Dispatcher struct {
	URL       string
	Secret    string
	HTTP      resilience.HTTPClient
	Replay    ReplayProtector
	ReplayTTL time.Duration
	now       func() time.Time
}

// ProcessTask implements asynq.Handler. Malformed payloads are not retried.
func (d *Dispatcher) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var ev Event
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		obs.CountNotification("deliver", "invalid")
		return fmt.Errorf("notify: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := d.Deliver(ctx, ev); err != nil {
		obs.CountNotification("deliver", "error")
		return err
	}
	obs.CountNotification("deliver", "success")
	return nil
}

// Deliver posts ev to the webhook with an HMAC signature. An event already
// delivered within ReplayTTL is skipped.
func (d *Dispatcher) Deliver(ctx context.Context, ev Event) error {
	ctx, span := otel.Tracer("byteaxis/notify").Start(ctx, "notify.deliver")
	defer span.End()
	span.SetAttributes(
		attribute.String("notify.kind", ev.Kind),
		attribute.String("notify.id", ev.ID),
	)
	if err := validateURL(d.URL); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	key := "notify:delivered:" + ev.ID
	if d.Replay != nil && d.ReplayTTL > 0 {
		ok, err := d.Replay.Acquire(ctx, key, d.ReplayTTL)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if !ok {
			span.AddEvent("delivery replay prevented")
			return nil
		}
	}

	err := d.send(ctx, ev)
	if err != nil {
		span.RecordError(err)
		if d.Replay != nil && d.ReplayTTL > 0 {
			_ = d.Replay.Release(ctx, key)
		}
	}
	return err
}

func (d *Dispatcher) send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	now := time.Now
	if d.now != nil {
		now = d.now
	}
	ts := now().Unix()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "byteaxis-notify/1.0")
	req.Header.Set("X-Event-ID", ev.ID)
	req.Header.Set("X-Event-Type", TaskSubmissionCreated)
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Signature", ComputeSignature(d.Secret, ts, ev.ID, body))

	resp, err := d.HTTP.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("notify: deliver %s: %w", ev.ID, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		// a 4xx will not get better on retry
		return fmt.Errorf("notify: webhook rejected %s with %s: %w", ev.ID, resp.Status, asynq.SkipRetry)
	}
	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.New("webhook url must be http or https")
	}
	if parsed.Host == "" {
		return errors.New("webhook url must include host")
	}
	if parsed.Scheme == "http" {
		host := parsed.Hostname()
		if host != "localhost" && host != "127.0.0.1" {
			return errors.New("http webhook only allowed for localhost")
		}
	}
	return nil
}

// ComputeSignature calculates the webhook signature: hex HMAC-SHA256 over
// "<ts>.<eventID>.<body>" keyed by secret.
func ComputeSignature(secret string, ts int64, eventID string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(ts, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(eventID))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// HTTPClient returns an HTTP client configured for webhook delivery.
func HTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
