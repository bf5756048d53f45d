package security

import (
	"net/http"
	"strings"

	"github.com/byteaxis/byteaxis-api/internal/common"
)

// OriginGuard rejects state-changing requests that ride on the session cookie
// from an origin outside the allowlist. Bearer-authenticated and anonymous
// requests pass through.
type OriginGuard struct {
	Cookie  string
	Allowed []string
}

// Middleware enforces the guard.
func (g OriginGuard) Middleware(next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(g.Allowed))
	wildcard := false
	for _, origin := range g.Allowed {
		trimmed := strings.TrimRight(strings.TrimSpace(origin), "/")
		switch trimmed {
		case "":
		case "*":
			wildcard = true
		default:
			allowed[trimmed] = struct{}{}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}
		auth := strings.TrimSpace(r.Header.Get("Authorization"))
		if wildcard || strings.HasPrefix(strings.ToLower(auth), "bearer ") || !g.hasCookie(r) {
			next.ServeHTTP(w, r)
			return
		}
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if _, ok := allowed[origin]; !ok {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "cross-site request rejected", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g OriginGuard) hasCookie(r *http.Request) bool {
	if g.Cookie == "" {
		return false
	}
	c, err := r.Cookie(g.Cookie)
	return err == nil && strings.TrimSpace(c.Value) != ""
}
