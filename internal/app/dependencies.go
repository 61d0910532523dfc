package app

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-apotek/internal/analytics"
	"github.com/noah-isme/backend-apotek/internal/config"
	"github.com/noah-isme/backend-apotek/internal/ledger"
	"github.com/noah-isme/backend-apotek/internal/obs"
	"github.com/noah-isme/backend-apotek/internal/resilience"
)

// Dependencies holds the infrastructure shared by the API and the worker.
type Dependencies struct {
	Config *config.Config
	Logger zerolog.Logger
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Ledger *ledger.PostgresStore
}

// Open connects to Postgres and Redis. component names the process in
// application_name and in logs.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger, component string) (*Dependencies, error) {
	pool, err := NewPool(ctx, cfg.DatabaseURL, component)
	if err != nil {
		return nil, err
	}
	rdb, err := NewRedis(ctx, cfg.RedisURL, cfg.MetricsEnabled, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Dependencies{
		Config: cfg,
		Logger: logger,
		DB:     pool,
		Redis:  rdb,
		Ledger: ledger.NewPostgresStore(pool),
	}, nil
}

// Close releases connections in reverse order of Open.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

// Analytics builds the report service on top of the Postgres ledger.
func (d *Dependencies) Analytics() *analytics.Service {
	return NewAnalytics(d.Config, d.Ledger, d.Ledger, d.Redis, d.Logger)
}

// NewPool opens a traced pgx pool.
func NewPool(ctx context.Context, databaseURL, component string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "apotek-" + component

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewRedis opens an instrumented Redis client. Instrumentation failures are
// logged and do not prevent startup.
func NewRedis(ctx context.Context, redisURL string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(rdb); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// NewAnalytics applies the report configuration. pushdown may be nil to group
// in process.
func NewAnalytics(cfg *config.Config, store ledger.Store, pushdown analytics.Pushdown, rdb *redis.Client, logger zerolog.Logger) *analytics.Service {
	breaker := resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).
		WithTarget("ledger_read").
		WithLogger(logger)
	return &analytics.Service{
		Store:    store,
		Pushdown: pushdown,
		R:        rdb,
		TTL:      cfg.AnalyticsCacheTTL,
		Grouping: cfg.BillGrouping,
		Location: cfg.BillingLocation,
		Limits: analytics.Limits{
			DailyDays:     cfg.AnalyticsDailyDays,
			MonthlyMonths: cfg.AnalyticsMonthlyMonths,
			Recent:        cfg.AnalyticsRecentLimit,
			Payments:      cfg.AnalyticsPaymentsLimit,
			Top:           cfg.AnalyticsTopLimit,
		},
		Breaker: breaker,
		Log:     logger.With().Str("component", "analytics").Logger(),
	}
}

// AsynqRedis converts REDIS_URL into asynq connection options.
func AsynqRedis(redisURL string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse asynq redis url: %w", err)
	}
	return opt, nil
}
