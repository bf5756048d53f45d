package summary

import (
	"context"
	"net/http"
	"strings"

	"github.com/byteaxis/byteaxis-api/internal/resilience"
)

// Options selects the summary backend at startup.
type Options struct {
	BaseURL      string
	GeminiAPIKey string
	GeminiModel  string
	Transport    http.RoundTripper
	Breaker      *resilience.Breaker
}

// SelectBackend picks the remote endpoint when a base URL is configured, then
// Gemini when an API key is present, else the fallback. Construction errors
// degrade to the fallback and are returned for logging.
func SelectBackend(ctx context.Context, opts Options) (Backend, error) {
	if strings.TrimSpace(opts.BaseURL) != "" {
		b, err := NewRemoteBackend(opts.BaseURL, opts.Transport, opts.Breaker)
		if err != nil {
			return FallbackBackend{}, err
		}
		return b, nil
	}
	if strings.TrimSpace(opts.GeminiAPIKey) != "" {
		b, err := NewGeminiBackend(ctx, opts.GeminiAPIKey, opts.GeminiModel)
		if err != nil {
			return FallbackBackend{}, err
		}
		return b, nil
	}
	return FallbackBackend{}, nil
}
