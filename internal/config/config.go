package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/backend-apotek/internal/billing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv    string
	Port      string
	LogFormat string
	LogLevel  string

	DatabaseURL    string
	RedisURL       string
	MigrateOnStart bool
	DBWriteTimeout time.Duration

	JWTSecret    string
	JWTIssuer    string
	JWTAudience  string
	JWTClockSkew time.Duration

	InventoryCSV string
	CartTTL      time.Duration

	BillGrouping    billing.Grouping
	BillingLocation *time.Location

	AnalyticsCacheTTL      time.Duration
	AnalyticsDailyDays     int
	AnalyticsMonthlyMonths int
	AnalyticsRecentLimit   int
	AnalyticsPaymentsLimit int
	AnalyticsTopLimit      int

	CheckoutLockTTL    time.Duration
	CheckoutRateLimit  int
	CheckoutRateWindow time.Duration
	APIRateLimit       string
	IdempotencyTTL     time.Duration
	BodyLimitBytes     int64
	CORSAllowedOrigins []string

	MetricsEnabled    bool
	TracingEnabled    bool
	OTLPEndpoint      string
	OTELSamplingRatio float64

	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration

	WorkerConcurrency int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	grouping, err := billing.ParseGrouping(k.String("BILL_GROUPING"))
	if err != nil {
		return nil, fmt.Errorf("BILL_GROUPING: %w", err)
	}
	loc, err := time.LoadLocation(valueOrDefault(k.String("BILLING_TIMEZONE"), "UTC"))
	if err != nil {
		return nil, fmt.Errorf("BILLING_TIMEZONE: %w", err)
	}

	cfg := &Config{
		AppEnv:    valueOrDefault(k.String("APP_ENV"), "development"),
		Port:      valueOrDefault(k.String("APP_PORT"), "8080"),
		LogFormat: valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:  valueOrDefault(k.String("LOG_LEVEL"), "info"),

		DatabaseURL:    k.String("DATABASE_URL"),
		RedisURL:       k.String("REDIS_URL"),
		MigrateOnStart: parseBool(valueOrDefault(k.String("MIGRATE_ON_START"), "true")),
		DBWriteTimeout: parseDuration(k.String("DB_WRITE_TIMEOUT"), "5s"),

		JWTSecret:    k.String("JWT_SECRET"),
		JWTIssuer:    valueOrDefault(k.String("JWT_ISSUER"), "apotek-auth"),
		JWTAudience:  valueOrDefault(k.String("JWT_AUDIENCE"), "apotek-api"),
		JWTClockSkew: parseDuration(k.String("JWT_CLOCK_SKEW"), "30s"),

		InventoryCSV: valueOrDefault(k.String("INVENTORY_CSV"), "data/medicines.csv"),
		CartTTL:      parseDuration(k.String("CART_TTL"), "12h"),

		BillGrouping:    grouping,
		BillingLocation: loc,

		AnalyticsCacheTTL:      parseDuration(k.String("ANALYTICS_CACHE_TTL"), "5m"),
		AnalyticsDailyDays:     parseInt(k.String("ANALYTICS_DAILY_DAYS"), 15),
		AnalyticsMonthlyMonths: parseInt(k.String("ANALYTICS_MONTHLY_MONTHS"), 12),
		AnalyticsRecentLimit:   parseInt(k.String("ANALYTICS_RECENT_LIMIT"), 15),
		AnalyticsPaymentsLimit: parseInt(k.String("ANALYTICS_PAYMENTS_LIMIT"), 100),
		AnalyticsTopLimit:      parseInt(k.String("ANALYTICS_TOP_LIMIT"), 5),

		CheckoutLockTTL:    parseDuration(k.String("CHECKOUT_LOCK_TTL"), "15s"),
		CheckoutRateLimit:  parseInt(k.String("CHECKOUT_RATE_LIMIT"), 30),
		CheckoutRateWindow: parseDuration(k.String("CHECKOUT_RATE_WINDOW"), "1m"),
		APIRateLimit:       valueOrDefault(k.String("API_RATE_LIMIT"), "300-M"),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		BodyLimitBytes:     int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		MetricsEnabled:    parseBool(valueOrDefault(k.String("METRICS_ENABLED"), "true")),
		TracingEnabled:    parseBool(k.String("TRACING_ENABLED")),
		OTLPEndpoint:      k.String("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTELSamplingRatio: parseFloat(k.String("OTEL_SAMPLING_RATIO"), 1),

		BreakerMinRequests:  parseInt(k.String("BREAKER_MIN_REQUESTS"), 5),
		BreakerFailureRatio: parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:      parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),

		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 2),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
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

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
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
		return value
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
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || f < 0 {
		return fallback
	}
	return f
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
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
