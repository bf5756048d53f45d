package security

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBodyLimit(t *testing.T) {
	cases := []struct {
		name          string
		max           int64
		body          string
		contentLength int64
		wantStatus    int
	}{
		{name: "within limit", max: 64, body: `{"email":"ada@example.com"}`, wantStatus: http.StatusOK},
		{name: "exactly at limit", max: 5, body: "hello", wantStatus: http.StatusOK},
		{name: "streamed body over limit", max: 5, body: `{"selected":["website"]}`, contentLength: -1, wantStatus: http.StatusRequestEntityTooLarge},
		{name: "declared length over limit", max: 5, body: "small", contentLength: 100, wantStatus: http.StatusRequestEntityTooLarge},
		{name: "limit disabled", max: 0, body: strings.Repeat("x", 1024), wantStatus: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var received string
			handler := BodyLimit{Max: tc.max}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				data, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				received = string(data)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/newsletter", strings.NewReader(tc.body))
			if tc.contentLength != 0 {
				req.ContentLength = tc.contentLength
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rr.Code)
			}
			if tc.wantStatus == http.StatusOK {
				if received != tc.body {
					t.Fatalf("expected body to pass through, got %q", received)
				}
				return
			}
			var payload struct {
				Error struct {
					Code    string         `json:"code"`
					Details map[string]any `json:"details"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if payload.Error.Code != "PAYLOAD_TOO_LARGE" {
				t.Fatalf("unexpected code %q", payload.Error.Code)
			}
			if payload.Error.Details["limitBytes"] != float64(tc.max) {
				t.Fatalf("unexpected details %v", payload.Error.Details)
			}
		})
	}
}
