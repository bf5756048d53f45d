package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/byteaxis/byteaxis-api/internal/resilience"
)

// RemoteBackend calls POST {base}/api/ai/summary.
type RemoteBackend struct {
	endpoint string
	client   resilience.HTTPClient
}

// NewRemoteBackend builds a RemoteBackend for baseURL. A nil transport uses
// http.DefaultTransport. Calls are single attempt.
func NewRemoteBackend(baseURL string, transport http.RoundTripper, breaker *resilience.Breaker) (*RemoteBackend, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("summary: base url is required")
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &RemoteBackend{
		endpoint: base + "/api/ai/summary",
		client: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(transport)},
			Breaker:     breaker,
			Target:      "summary",
			MaxAttempts: 1,
		},
	}, nil
}

func (b *RemoteBackend) Name() string { return "remote" }

type remoteRequest struct {
	ProjectName   string   `json:"projectName"`
	SelectedItems []string `json:"selectedItems"`
}

type remoteResponse struct {
	Summary string `json:"summary"`
}

func (b *RemoteBackend) Generate(ctx context.Context, projectName string, items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	body, err := json.Marshal(remoteRequest{ProjectName: projectName, SelectedItems: items})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("summary: endpoint responded %s", resp.Status)
	}
	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("summary: decode response: %w", err)
	}
	return out.Summary, nil
}
