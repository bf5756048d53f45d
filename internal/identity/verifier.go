package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrInvalidToken is returned for tokens that fail parsing, signature or claim checks.
var ErrInvalidToken = errors.New("identity: invalid session token")

// TokenValidator validates contextual claims of a parsed session token.
type TokenValidator struct {
	Issuer    string
	ClockSkew time.Duration
}

// Validate ensures the token satisfies issuer and time-based claims at now.
func (v TokenValidator) Validate(tok jwt.Token, now time.Time) error {
	if tok == nil {
		return errors.New("identity: token is nil")
	}
	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	return jwt.Validate(tok, options...)
}

// VerifierConfig selects how session tokens are verified. Exactly one of Secret
// or KeySet must be provided.
type VerifierConfig struct {
	// Secret verifies HS256 tokens; meant for development and tests.
	Secret string
	// KeySet verifies provider-signed tokens, usually a cached JWKS.
	KeySet    jwk.Set
	Issuer    string
	ClockSkew time.Duration
}

// Verifier turns a raw session token into a Session.
type Verifier struct {
	secret    []byte
	keys      jwk.Set
	validator TokenValidator
	now       func() time.Time
}

// NewVerifier constructs a Verifier from cfg.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" && cfg.KeySet == nil {
		return nil, errors.New("identity: secret or key set is required")
	}
	if secret != "" && cfg.KeySet != nil {
		return nil, errors.New("identity: secret and key set are mutually exclusive")
	}
	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = 30 * time.Second
	}
	v := &Verifier{
		keys:      cfg.KeySet,
		validator: TokenValidator{Issuer: cfg.Issuer, ClockSkew: skew},
		now:       time.Now,
	}
	if secret != "" {
		v.secret = []byte(secret)
	}
	return v, nil
}

// WithNow overrides the clock used for claim validation.
func (v *Verifier) WithNow(now func() time.Time) {
	if now != nil {
		v.now = now
	}
}

// Verify parses and validates token, returning the active session it describes.
func (v *Verifier) Verify(token string) (Session, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Session{}, ErrInvalidToken
	}
	opts := []jwt.ParseOption{jwt.WithValidate(false)}
	if v.secret != nil {
		opts = append(opts, jwt.WithKey(jwa.HS256, v.secret))
	} else {
		opts = append(opts, jwt.WithKeySet(v.keys))
	}
	parsed, err := jwt.ParseString(trimmed, opts...)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := v.validator.Validate(parsed, v.now()); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if parsed.Subject() == "" {
		return Session{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Session{
		Active: true,
		User: User{
			ID:    parsed.Subject(),
			Name:  stringClaim(parsed, "name"),
			Email: stringClaim(parsed, "email"),
		},
	}, nil
}

func stringClaim(tok jwt.Token, name string) string {
	raw, ok := tok.Get(name)
	if !ok {
		return ""
	}
	s, _ := raw.(string)
	return strings.TrimSpace(s)
}

// NewRemoteKeySet registers url with an auto-refreshing JWKS cache and returns
// a key set backed by it. The initial fetch must succeed.
func NewRemoteKeySet(ctx context.Context, url string, refresh time.Duration) (jwk.Set, error) {
	cache := jwk.NewCache(ctx)
	if refresh <= 0 {
		refresh = 15 * time.Minute
	}
	if err := cache.Register(url, jwk.WithMinRefreshInterval(refresh)); err != nil {
		return nil, fmt.Errorf("identity: register jwks: %w", err)
	}
	if _, err := cache.Refresh(ctx, url); err != nil {
		return nil, fmt.Errorf("identity: fetch jwks: %w", err)
	}
	return jwk.NewCachedSet(cache, url), nil
}
