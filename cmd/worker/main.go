package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-apotek/internal/app"
	"github.com/noah-isme/backend-apotek/internal/config"
	"github.com/noah-isme/backend-apotek/internal/obs"
	"github.com/noah-isme/backend-apotek/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics("apotek", nil)
	}

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.Open(startCtx, cfg, logger, "worker")
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("open dependencies")
	}
	defer deps.Close()

	redisOpt, err := app.AsynqRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise task server")
	}

	handlers := &queue.Handlers{Warmer: deps.Analytics(), Log: logger}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     cfg.WorkerConcurrency,
		RetryDelayFunc:  queue.RetryDelay,
		ShutdownTimeout: 10 * time.Second,
		Logger:          asynqLogger{logger},
	})

	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")
	if err := srv.Start(handlers.Mux()); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	<-ctx.Done()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

// asynqLogger routes asynq's internal logs through zerolog.
type asynqLogger struct {
	log zerolog.Logger
}

func (l asynqLogger) Debug(args ...any) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.log.Fatal().Msg(fmt.Sprint(args...)) }
