// Package identity adapts the hosted identity provider's session tokens into the
// two facts the rest of the service consumes: whether a session is active and who
// the session user is. Authentication itself stays with the provider.
package identity

import (
	"context"
	"strings"
)

// User is the session user's identity as issued by the provider.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is the identity state attached to a request. The zero value is an
// anonymous, inactive session.
type Session struct {
	Active bool
	User   User
}

// IsAdmin reports whether the session belongs to the configured admin email.
func (s Session) IsAdmin(adminEmail string) bool {
	admin := strings.ToLower(strings.TrimSpace(adminEmail))
	if !s.Active || admin == "" {
		return false
	}
	return strings.ToLower(strings.TrimSpace(s.User.Email)) == admin
}

type ctxKey struct{}

// WithSession stores the session on the context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached to ctx, or an inactive session.
func FromContext(ctx context.Context) Session {
	if ctx == nil {
		return Session{}
	}
	s, _ := ctx.Value(ctxKey{}).(Session)
	return s
}
