package identity

import (
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/byteaxis/byteaxis-api/internal/common"
)

// Middleware attaches identity sessions to requests.
type Middleware struct {
	// Verifier may be nil, in which case every request is anonymous.
	Verifier   *Verifier
	Cookie     string
	AdminEmail string
}

// Authenticate attaches an active session when a valid token is present. Missing
// or invalid tokens leave the request anonymous; public routes never fail here.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Verifier == nil {
			next.ServeHTTP(w, r)
			return
		}
		token := m.extractToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		session, err := m.Verifier.Verify(token)
		if err != nil {
			zerolog.Ctx(r.Context()).Debug().Err(err).Msg("session token rejected")
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

// RequireAdmin allows only the session whose email matches AdminEmail.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := FromContext(r.Context())
		if !session.Active {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "sign in required", nil)
			return
		}
		if !session.IsAdmin(m.AdminEmail) {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "admin access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if m.Cookie != "" {
		if cookie, err := r.Cookie(m.Cookie); err == nil {
			return strings.TrimSpace(cookie.Value)
		}
	}
	return ""
}

// Caller names who is making r: the session user when one is active, otherwise
// the client address. RemoteAddr is expected to be the real client already.
func Caller(r *http.Request) string {
	if session := FromContext(r.Context()); session.Active && session.User.ID != "" {
		return "user:" + session.User.ID
	}
	host := strings.TrimSpace(r.RemoteAddr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return "ip:" + host
}
