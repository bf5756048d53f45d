package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	CORSAllowedOrigins []string

	SanityProjectID  string
	SanityDataset    string
	SanityAPIVersion string
	SanityWriteToken string
	SanityUseCDN     bool
	SanityBaseURL    string
	StoreTimeout     time.Duration
	StoreReadRetries int
	StoreBreakerMin  int
	StoreBreakerRate float64
	StoreBreakerOpen time.Duration

	AIBaseURL        string
	AISummaryTimeout time.Duration
	GeminiAPIKey     string
	GeminiModel      string

	SessionJWTSecret string
	SessionJWKSURL   string
	SessionIssuer    string
	SessionCookie    string
	AdminEmail       string

	RedisURL          string
	IdempotencyTTL    time.Duration
	RateLimitWindow   time.Duration
	RateLimitMax      int
	PortfolioCacheTTL time.Duration
	BodyLimitBytes    int64

	NotifyWebhookURL    string
	NotifyWebhookSecret string
	NotifyMaxRetry      int
	WorkerConcurrency   int
}

// Load reads configuration from environment variables and optional .env files.
// No key is mandatory: optional integrations stay disabled when unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		SanityProjectID:  valueOrDefault(k.String("SANITY_PROJECT_ID"), "04pndb11"),
		SanityDataset:    valueOrDefault(k.String("SANITY_DATASET"), "production"),
		SanityAPIVersion: valueOrDefault(k.String("SANITY_API_VERSION"), "2024-02-01"),
		SanityWriteToken: strings.TrimSpace(k.String("SANITY_WRITE_TOKEN")),
		SanityUseCDN:     parseBoolDefault(k.String("SANITY_USE_CDN"), true),
		SanityBaseURL:    strings.TrimSpace(k.String("SANITY_BASE_URL")),
		StoreTimeout:     parseDuration(k.String("STORE_TIMEOUT"), "10s"),
		StoreReadRetries: parseInt(k.String("STORE_READ_RETRIES"), 3),
		StoreBreakerMin:  parseInt(k.String("STORE_BREAKER_MIN_REQUESTS"), 5),
		StoreBreakerRate: parseFloat(k.String("STORE_BREAKER_FAILURE_RATIO"), 0.5),
		StoreBreakerOpen: parseDuration(k.String("STORE_BREAKER_OPEN_FOR"), "30s"),

		AIBaseURL:        strings.TrimRight(strings.TrimSpace(k.String("AI_API_BASE_URL")), "/"),
		AISummaryTimeout: parseDuration(k.String("AI_SUMMARY_TIMEOUT"), "8s"),
		GeminiAPIKey:     strings.TrimSpace(k.String("GEMINI_API_KEY")),
		GeminiModel:      valueOrDefault(k.String("GEMINI_MODEL"), "gemini-2.0-flash"),

		SessionJWTSecret: strings.TrimSpace(k.String("SESSION_JWT_SECRET")),
		SessionJWKSURL:   strings.TrimSpace(k.String("SESSION_JWKS_URL")),
		SessionIssuer:    strings.TrimSpace(k.String("SESSION_ISSUER")),
		SessionCookie:    valueOrDefault(k.String("SESSION_COOKIE"), "__session"),
		AdminEmail:       strings.ToLower(strings.TrimSpace(k.String("ADMIN_EMAIL"))),

		RedisURL:          strings.TrimSpace(k.String("REDIS_URL")),
		IdempotencyTTL:    parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimitWindow:   parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:      parseInt(k.String("RATE_LIMIT_MAX"), 10),
		PortfolioCacheTTL: parseDuration(k.String("PORTFOLIO_CACHE_TTL"), "5m"),
		BodyLimitBytes:    int64(parseInt(k.String("BODY_LIMIT_BYTES"), 64*1024)),

		NotifyWebhookURL:    strings.TrimSpace(k.String("NOTIFY_WEBHOOK_URL")),
		NotifyWebhookSecret: strings.TrimSpace(k.String("NOTIFY_WEBHOOK_SECRET")),
		NotifyMaxRetry:      parseInt(k.String("NOTIFY_MAX_RETRY"), 5),
		WorkerConcurrency:   parseInt(k.String("WORKER_CONCURRENCY"), 4),
	}

	if cfg.SessionJWTSecret != "" && cfg.SessionJWKSURL != "" {
		return nil, fmt.Errorf("SESSION_JWT_SECRET and SESSION_JWKS_URL are mutually exclusive")
	}
	if cfg.StoreBreakerRate <= 0 || cfg.StoreBreakerRate > 1 {
		return nil, fmt.Errorf("STORE_BREAKER_FAILURE_RATIO must be in (0,1], got %v", cfg.StoreBreakerRate)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// WritesEnabled reports whether a document store write token is configured.
func (c *Config) WritesEnabled() bool {
	return c.SanityWriteToken != ""
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
