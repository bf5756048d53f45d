package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveHeaders(h Headers, req *http.Request) http.Header {
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr.Result().Header
}

func TestHeadersMiddlewareSetsSecurityHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://api.byteaxis.example/api/v1/catalog", nil)
	req.TLS = &tls.ConnectionState{}

	headers := serveHeaders(Headers{Enable: true, EnableHSTS: true, HSTSMaxAge: 600, HSTSIncludeSubdomains: true}, req)
	if got := headers.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff header, got %q", got)
	}
	if got := headers.Get("Cache-Control"); got != "no-store" {
		t.Fatalf("expected no-store, got %q", got)
	}
	if got := headers.Get("Strict-Transport-Security"); got != "max-age=600; includeSubDomains" {
		t.Fatalf("unexpected hsts header %q", got)
	}
}

func TestHeadersMiddlewareHSTS(t *testing.T) {
	cases := []struct {
		name      string
		headers   Headers
		forwarded string
		want      bool
	}{
		{name: "plain http", headers: Headers{Enable: true, EnableHSTS: true}},
		{name: "forwarded but untrusted", headers: Headers{Enable: true, EnableHSTS: true}, forwarded: "https"},
		{name: "forwarded and trusted", headers: Headers{Enable: true, EnableHSTS: true, TrustForwardedProto: true}, forwarded: "https", want: true},
		{name: "forwarded http", headers: Headers{Enable: true, EnableHSTS: true, TrustForwardedProto: true}, forwarded: "http"},
		{name: "hsts off", headers: Headers{Enable: true, TrustForwardedProto: true}, forwarded: "https"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://api.byteaxis.example/health/live", nil)
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-Proto", tc.forwarded)
			}
			got := serveHeaders(tc.headers, req).Get("Strict-Transport-Security") != ""
			if got != tc.want {
				t.Fatalf("hsts set = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHeadersMiddlewareDisabled(t *testing.T) {
	headers := serveHeaders(Headers{EnableHSTS: true}, httptest.NewRequest(http.MethodGet, "http://api.byteaxis.example", nil))
	if headers.Get("X-Content-Type-Options") != "" || headers.Get("Cache-Control") != "" {
		t.Fatal("expected no security headers when disabled")
	}
}
