// Package summary produces the short scope summary shown on the quotation
// page. Generation never fails outward: any backend problem yields the
// deterministic fallback text.
package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/byteaxis/byteaxis-api/internal/obs"
)

var tracer = otel.Tracer("byteaxis/summary")

// Backend generates summary text.
type Backend interface {
	Name() string
	Generate(ctx context.Context, projectName string, items []string) (string, error)
}

// Fallback renders the templated summary used whenever a backend cannot answer.
func Fallback(projectName string, items []string) string {
	project := strings.TrimSpace(projectName)
	if project == "" {
		project = "your project"
	}
	scope := "core build"
	if len(items) > 0 {
		scope = strings.Join(items, ", ")
	}
	return fmt.Sprintf("AI summary for %s: We recommend a discovery workshop, UX prototypes, and a phased build. Included scope: %s.", project, scope)
}

// FallbackBackend always answers with Fallback.
type FallbackBackend struct{}

func (FallbackBackend) Name() string { return "fallback" }

func (FallbackBackend) Generate(_ context.Context, projectName string, items []string) (string, error) {
	return Fallback(projectName, items), nil
}

// Generator wraps a Backend with a deadline and the fallback contract.
type Generator struct {
	backend Backend
	timeout time.Duration
	logger  zerolog.Logger
}

// NewGenerator builds a Generator. A nil backend means FallbackBackend.
func NewGenerator(backend Backend, timeout time.Duration, logger zerolog.Logger) *Generator {
	if backend == nil {
		backend = FallbackBackend{}
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Generator{backend: backend, timeout: timeout, logger: logger}
}

// Backend names the configured backend.
func (g *Generator) Backend() string { return g.backend.Name() }

// Summarize returns backend text, or the fallback on error, timeout or an
// empty answer.
func (g *Generator) Summarize(ctx context.Context, projectName string, items []string) string {
	name := g.backend.Name()
	ctx, span := tracer.Start(ctx, "summary.generate", trace.WithAttributes(
		attribute.String("summary.backend", name),
		attribute.Int("summary.items", len(items)),
	))
	defer span.End()

	if _, ok := g.backend.(FallbackBackend); ok {
		obs.CountSummary(name, "success")
		return Fallback(projectName, items)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	text, err := g.backend.Generate(callCtx, projectName, items)
	switch {
	case err != nil:
		obs.CountSummary(name, "fallback")
		span.SetAttributes(attribute.Bool("summary.fallback", true))
		g.logger.Warn().Ctx(ctx).Err(err).Str("backend", name).Msg("summary backend failed")
		return Fallback(projectName, items)
	case strings.TrimSpace(text) == "":
		obs.CountSummary(name, "empty")
		span.SetAttributes(attribute.Bool("summary.fallback", true))
		return Fallback(projectName, items)
	}
	obs.CountSummary(name, "success")
	return text
}

// SummarizeAsync runs Summarize on its own goroutine; the channel is buffered
// and always receives exactly one value.
func (g *Generator) SummarizeAsync(ctx context.Context, projectName string, items []string) <-chan string {
	out := make(chan string, 1)
	go func() {
		out <- g.Summarize(ctx, projectName, items)
	}()
	return out
}
