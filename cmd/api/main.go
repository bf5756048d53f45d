package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/byteaxis/byteaxis-api/internal/admin"
	"github.com/byteaxis/byteaxis-api/internal/catalog"
	"github.com/byteaxis/byteaxis-api/internal/common"
	"github.com/byteaxis/byteaxis-api/internal/config"
	"github.com/byteaxis/byteaxis-api/internal/health"
	"github.com/byteaxis/byteaxis-api/internal/identity"
	"github.com/byteaxis/byteaxis-api/internal/lock"
	"github.com/byteaxis/byteaxis-api/internal/notify"
	"github.com/byteaxis/byteaxis-api/internal/obs"
	"github.com/byteaxis/byteaxis-api/internal/portfolio"
	"github.com/byteaxis/byteaxis-api/internal/pricing"
	"github.com/byteaxis/byteaxis-api/internal/quote"
	"github.com/byteaxis/byteaxis-api/internal/ratelimit"
	"github.com/byteaxis/byteaxis-api/internal/resilience"
	"github.com/byteaxis/byteaxis-api/internal/security"
	"github.com/byteaxis/byteaxis-api/internal/store"
	"github.com/byteaxis/byteaxis-api/internal/submission"
	"github.com/byteaxis/byteaxis-api/internal/summary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "byteaxis")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:    "byteaxis-api",
			ServiceVersion: envOrDefault("APP_VERSION", ""),
			Endpoint:       envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:       envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio:  envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:    cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := connectRedis(ctx, cfg, metricsEnabled, logger)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
	}

	storeLogger := logger.With().Str("component", "store").Logger()
	storeClient, err := store.New(store.Config{
		ProjectID:   cfg.SanityProjectID,
		Dataset:     cfg.SanityDataset,
		APIVersion:  cfg.SanityAPIVersion,
		Token:       cfg.SanityWriteToken,
		UseCDN:      cfg.SanityUseCDN,
		BaseURL:     cfg.SanityBaseURL,
		Timeout:     cfg.StoreTimeout,
		ReadRetries: cfg.StoreReadRetries,
		Breaker: resilience.NewBreaker(resilience.BreakerConfig{
			MinRequests:  cfg.StoreBreakerMin,
			FailureRatio: cfg.StoreBreakerRate,
			OpenFor:      cfg.StoreBreakerOpen,
			Target:       "document-store",
			Logger:       &storeLogger,
		}),
		Logger: &storeLogger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise document store client")
	}
	conn := storeClient.Connection()
	if _, ok := conn.Writer(); !ok {
		logger.Warn().Msg("SANITY_WRITE_TOKEN not set; submissions are disabled")
	}

	cat := catalog.Default()
	submissions := submission.NewClient(conn, submission.NewValidator(), logger.With().Str("component", "submission").Logger())

	summaryLogger := logger.With().Str("component", "summary").Logger()
	backend, err := summary.SelectBackend(ctx, summary.Options{
		BaseURL:      cfg.AIBaseURL,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
		Breaker: resilience.NewBreaker(resilience.BreakerConfig{
			Target: "summary",
			Logger: &summaryLogger,
		}),
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise summary backend; using fallback")
	}
	summaries := summary.NewGenerator(backend, cfg.AISummaryTimeout, summaryLogger)
	logger.Info().Str("backend", summaries.Backend()).Msg("summary backend selected")

	var notifier notify.Notifier = notify.Nop{}
	if redisClient != nil {
		queue := asynq.NewClientFromRedisClient(redisClient)
		notifier = notify.NewQueueNotifier(queue, cfg.NotifyMaxRetry)
	}

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise session verifier")
	}
	if verifier == nil {
		logger.Warn().Msg("no session verifier configured; all requests are anonymous")
	}
	sessions := identity.Middleware{Verifier: verifier, Cookie: cfg.SessionCookie, AdminEmail: cfg.AdminEmail}

	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Catalog: cat, VATRate: pricing.VATRate})
	quoteHandler := quote.NewHandler(quote.Config{
		Catalog:     cat,
		Submissions: submissions,
		Summaries:   summaries,
		Notifier:    notifier,
	})
	portfolioService := portfolio.NewService(storeClient, portfolio.NewCache(redisClient, cfg.PortfolioCacheTTL), logger.With().Str("component", "portfolio").Logger()).
		WithRefreshLock(&lock.Locker{Client: redisClient})
	portfolioHandler := portfolio.Handler{Service: portfolioService}
	adminHandler := admin.Handler{
		Service:   admin.NewService(storeClient),
		ProjectID: cfg.SanityProjectID,
		Dataset:   cfg.SanityDataset,
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL, Scope: identity.Caller}
	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter("rl")
	if redisClient != nil {
		limiter = ratelimit.RedisLimiter{Client: redisClient, Prefix: "rl"}
	}
	writeLimit := func(scope string) func(http.Handler) http.Handler {
		return ratelimit.Handler{
			Limiter: limiter,
			Config:  ratelimit.Config{Key: ratelimit.KeyByIP(scope), Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
			OnError: func(err error) { logger.Error().Err(err).Str("scope", scope).Msg("rate limiter") },
		}.Middleware
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(sessions.Authenticate)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", common.IdempotencyHeader},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: len(cfg.CORSAllowedOrigins) > 0,
		MaxAge:           300,
	}))
	r.Use(security.Headers{
		Enable:              true,
		EnableHSTS:          cfg.AppEnv == "production",
		HSTSMaxAge:          15552000,
		TrustForwardedProto: envBool("TRUST_FORWARDED_PROTO", true),
	}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
	r.Use(security.OriginGuard{Cookie: cfg.SessionCookie, Allowed: cfg.CORSAllowedOrigins}.Middleware)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      health.Probes{Store: storeClient.Ping, Redis: redisClient},
		StoreTimeout: envDurationMillis("HEALTH_READY_STORE_TIMEOUT_MS", 1500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/catalog", catalogHandler.List)
		v.Get("/projects", portfolioHandler.List)

		v.Route("/quotes", func(q chi.Router) {
			q.Post("/totals", quoteHandler.Totals)
			q.Post("/toggle", quoteHandler.Toggle)
			q.With(writeLimit("summary")).Post("/summary", quoteHandler.Summary)
		})

		v.Group(func(w chi.Router) {
			w.Use(idem.Middleware)
			w.With(writeLimit("quotation")).Post("/quotation-requests", quoteHandler.CreateQuotation)
			w.With(writeLimit("payment")).Post("/payment-requests", quoteHandler.CreatePayment)
			w.With(writeLimit("newsletter")).Post("/newsletter", quoteHandler.CreateNewsletter)
		})

		v.Route("/admin", func(a chi.Router) {
			a.Use(sessions.RequireAdmin)
			a.Get("/overview", adminHandler.Overview)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
		health.SetReady(false)
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), envDurationMillis("SHUTDOWN_TIMEOUT_MS", 15000))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}
}

// connectRedis returns nil when REDIS_URL is unset or unreachable; Redis-backed
// features then fall back to their in-process or disabled variants.
func connectRedis(ctx context.Context, cfg *config.Config, metricsEnabled bool, logger zerolog.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Info().Msg("REDIS_URL not set; idempotency, notifications and shared rate limits disabled")
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error().Err(err).Msg("ping redis; continuing without it")
		_ = client.Close()
		return nil
	}
	return client
}

func newVerifier(ctx context.Context, cfg *config.Config) (*identity.Verifier, error) {
	switch {
	case cfg.SessionJWTSecret != "":
		return identity.NewVerifier(identity.VerifierConfig{
			Secret: cfg.SessionJWTSecret,
			Issuer: cfg.SessionIssuer,
		})
	case cfg.SessionJWKSURL != "":
		keys, err := identity.NewRemoteKeySet(ctx, cfg.SessionJWKSURL, 15*time.Minute)
		if err != nil {
			return nil, err
		}
		return identity.NewVerifier(identity.VerifierConfig{
			KeySet: keys,
			Issuer: cfg.SessionIssuer,
		})
	default:
		return nil, nil
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
