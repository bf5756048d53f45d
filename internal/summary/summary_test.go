package summary_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/byteaxis/byteaxis-api/internal/summary"
)

func TestFallbackText(t *testing.T) {
	require.Equal(t,
		"AI summary for Acme: We recommend a discovery workshop, UX prototypes, and a phased build. Included scope: Website, Hosting.",
		summary.Fallback("Acme", []string{"Website", "Hosting"}))
	require.Equal(t,
		"AI summary for your project: We recommend a discovery workshop, UX prototypes, and a phased build. Included scope: core build.",
		summary.Fallback("  ", nil))
}

func TestSummarizeWithoutEndpoint(t *testing.T) {
	backend, err := summary.SelectBackend(context.Background(), summary.Options{})
	require.NoError(t, err)
	g := summary.NewGenerator(backend, time.Second, zerolog.Nop())
	require.Equal(t, "fallback", g.Backend())

	text := g.Summarize(context.Background(), "Acme", []string{"Website"})
	require.Contains(t, text, "Acme")
	require.Contains(t, text, "Website")
}

func newRemote(t *testing.T, h http.HandlerFunc, timeout time.Duration) *summary.Generator {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	backend, err := summary.SelectBackend(context.Background(), summary.Options{BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	g := summary.NewGenerator(backend, timeout, zerolog.Nop())
	require.Equal(t, "remote", g.Backend())
	return g
}

func TestSummarizeRemoteSuccess(t *testing.T) {
	g := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ProjectName   string   `json:"projectName"`
			SelectedItems []string `json:"selectedItems"`
		}
		if r.Method != http.MethodPost || r.URL.Path != "/api/ai/summary" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ProjectName != "Acme" || len(body.SelectedItems) != 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, `{"summary":"Acme gets a website and hosting."}`)
	}, time.Second)

	require.Equal(t, "Acme gets a website and hosting.", g.Summarize(context.Background(), "Acme", []string{"Website", "Hosting"}))
}

func TestSummarizeRemoteTextIsVerbatim(t *testing.T) {
	g := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"summary":"\n  Acme gets a website.\n"}`)
	}, time.Second)

	require.Equal(t, "\n  Acme gets a website.\n", g.Summarize(context.Background(), "Acme", []string{"Website"}))
}

func TestSummarizeRemoteFailuresFallBack(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"client error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		},
		"empty summary": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"summary":"  "}`)
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `not json`)
		},
	}
	want := summary.Fallback("Acme", []string{"Website"})
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			g := newRemote(t, h, time.Second)
			require.Equal(t, want, g.Summarize(context.Background(), "Acme", []string{"Website"}))
		})
	}
}

func TestSummarizeRemoteTimeoutFallsBack(t *testing.T) {
	release := make(chan struct{})
	g := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	start := time.Now()
	text := g.Summarize(context.Background(), "Acme", []string{"Website"})
	require.Equal(t, summary.Fallback("Acme", []string{"Website"}), text)
	require.Less(t, time.Since(start), 2*time.Second)
}

type errBackend struct{}

func (errBackend) Name() string { return "broken" }
func (errBackend) Generate(context.Context, string, []string) (string, error) {
	return "", errors.New("unreachable")
}

func TestSummarizeAsync(t *testing.T) {
	g := summary.NewGenerator(errBackend{}, time.Second, zerolog.Nop())
	ch := g.SummarizeAsync(context.Background(), "", []string{"Website"})
	require.Equal(t, summary.Fallback("", []string{"Website"}), <-ch)
}

func TestNilBackendUsesFallback(t *testing.T) {
	g := summary.NewGenerator(nil, 0, zerolog.Nop())
	require.Equal(t, "fallback", g.Backend())
	require.Equal(t, summary.Fallback("X", nil), g.Summarize(context.Background(), "X", nil))
}
