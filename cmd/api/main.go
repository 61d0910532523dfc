package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-apotek/internal/analytics"
	"github.com/noah-isme/backend-apotek/internal/app"
	"github.com/noah-isme/backend-apotek/internal/auth"
	"github.com/noah-isme/backend-apotek/internal/cart"
	"github.com/noah-isme/backend-apotek/internal/checkout"
	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/config"
	"github.com/noah-isme/backend-apotek/internal/events"
	"github.com/noah-isme/backend-apotek/internal/health"
	"github.com/noah-isme/backend-apotek/internal/inventory"
	"github.com/noah-isme/backend-apotek/internal/ledger"
	"github.com/noah-isme/backend-apotek/internal/lock"
	"github.com/noah-isme/backend-apotek/internal/obs"
	"github.com/noah-isme/backend-apotek/internal/pricing"
	"github.com/noah-isme/backend-apotek/internal/queue"
	"github.com/noah-isme/backend-apotek/internal/ratelimit"
	"github.com/noah-isme/backend-apotek/internal/security"
)

const metricsNamespace = "apotek"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	}

	shutdownTracing, err := obs.InitTracer(ctx, obs.TracingConfig{
		Enabled:       cfg.TracingEnabled,
		ServiceName:   "apotek-api",
		Endpoint:      cfg.OTLPEndpoint,
		Exporter:      "otlp",
		SamplingRatio: cfg.OTELSamplingRatio,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown tracer")
		}
	}()

	if cfg.MigrateOnStart {
		if err := ledger.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migrate ledger")
		}
	}

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.Open(startCtx, cfg, logger, "api")
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("open dependencies")
	}
	defer deps.Close()

	catalog, err := inventory.LoadCSV(cfg.InventoryCSV)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.InventoryCSV).Msg("inventory_not_loaded")
	} else {
		loaded, skipped := catalog.Len()
		logger.Info().Int("loaded", loaded).Int("skipped", skipped).Msg("inventory_loaded")
	}

	verifier, err := auth.NewVerifier(auth.Config{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		ClockSkew: cfg.JWTClockSkew,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth")
	}
	authMiddleware := auth.Middleware{Verifier: verifier}
	requireOwner := auth.RequireRole(common.RoleOwner)

	validate := common.NewValidator()
	sessions := &cart.RedisSessionStore{R: deps.Redis, TTL: cfg.CartTTL}
	cartSvc := &cart.Service{Sessions: sessions, Rates: pricing.DefaultRates}
	if catalog != nil {
		cartSvc.Catalog = catalog
	}

	analyticsSvc := deps.Analytics()

	taskRedis, err := app.AsynqRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise task client")
	}
	taskClient := asynq.NewClient(taskRedis)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	bus := &events.Bus{Notifiers: []events.Notifier{
		analyticsSvc.Notifier(),
		queue.Enqueuer{Client: taskClient, Unique: 30 * time.Second}.Notifier(),
	}}

	checkoutSvc := &checkout.Service{
		Sessions: sessions,
		Ledger:   &ledger.Writer{Store: deps.Ledger, Timeout: cfg.DBWriteTimeout},
		Locker:   lock.Locker{R: deps.Redis, RetryBackoff: 50 * time.Millisecond, Wait: 2 * time.Second, Prefix: "lock:"},
		LockTTL:  cfg.CheckoutLockTTL,
		Events:   bus,
		Validate: validate,
		Rates:    pricing.DefaultRates,
		Log:      logger.With().Str("component", "checkout").Logger(),
	}

	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL}
	checkoutLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: deps.Redis, Prefix: "ratelimit:"},
		Config: ratelimit.Config{
			Key:    ratelimit.StaffKey("checkout"),
			Window: cfg.CheckoutRateWindow,
			Max:    cfg.CheckoutRateLimit,
		},
		OnError: func(err error) { logger.Warn().Err(err).Msg("checkout_rate_limit_unavailable") },
	}

	limiterStore, err := ratelimit.NewRedisStore(deps.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limit store")
	}
	perIP, err := ratelimit.PerIP(limiterStore, cfg.APIRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limit")
	}

	var httpMetrics *obs.HTTPMetrics
	if cfg.MetricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, obs.DefaultHTTPBuckets, nil)
	}

	healthHandler := health.Handler{Probes: []health.Probe{
		health.PostgresProbe(deps.DB),
		health.RedisProbe(deps.Redis),
	}}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Remaining", "X-Request-ID"},
		AllowCredentials: len(cfg.CORSAllowedOrigins) > 0,
		MaxAge:           300,
	}))
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.IsProduction()}.Middleware)

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(perIP)
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		v.Use(authMiddleware.RequireAuth)

		v.Route("/inventory", (&inventory.Handler{Catalog: catalog}).Routes)

		v.Route("/cart", func(c chi.Router) {
			(&cart.Handler{Svc: cartSvc, Log: logger}).Routes(c)
			c.With(checkoutLimit.Middleware, idem.Middleware).
				Post("/checkout", (&checkout.Handler{Svc: checkoutSvc, Log: logger}).Checkout)
		})

		v.Route("/analytics", func(an chi.Router) {
			(&analytics.Handler{Svc: analyticsSvc}).Routes(an, requireOwner)
		})
	})

	r.Group(func(debug chi.Router) {
		debug.Use(authMiddleware.RequireAuth, requireOwner)
		debug.Mount("/debug/pprof", newPprofMux())
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-ctx.Done()
	drain(srv, logger)
}

// drain marks the instance not ready and lets in-flight checkouts finish.
func drain(srv *http.Server, logger zerolog.Logger) {
	health.SetReady(false)
	logger.Info().Msg("server draining")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
		return
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}
