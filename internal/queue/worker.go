package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-apotek/internal/resilience"
)

// Warmer recomputes cached reports.
type Warmer interface {
	Warm(ctx context.Context) error
}

// Handlers processes background tasks.
type Handlers struct {
	Warmer Warmer
	Log    zerolog.Logger
}

// Mux routes task types to their handlers.
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAnalyticsWarm, h.HandleWarm)
	return mux
}

// HandleWarm runs an analytics warm-up. Malformed payloads are not retried.
func (h *Handlers) HandleWarm(ctx context.Context, t *asynq.Task) error {
	var p WarmPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		observeProcessed(TypeAnalyticsWarm, "invalid")
		return fmt.Errorf("queue: decode warm payload: %v: %w", err, asynq.SkipRetry)
	}
	if h.Warmer == nil {
		observeProcessed(TypeAnalyticsWarm, "error")
		return fmt.Errorf("queue: warmer not configured: %w", asynq.SkipRetry)
	}
	start := time.Now()
	if err := h.Warmer.Warm(ctx); err != nil {
		observeProcessed(TypeAnalyticsWarm, "error")
		h.Log.Warn().Err(err).Str("bill_id", p.BillID).Msg("analytics_warm_failed")
		return err
	}
	observeProcessed(TypeAnalyticsWarm, "ok")
	h.Log.Debug().Str("bill_id", p.BillID).Dur("elapsed", time.Since(start)).Msg("analytics_warmed")
	return nil
}

// RetryDelay spaces out task retries with jittered exponential backoff.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	d := resilience.Backoff(time.Second, n+1, 0.2)
	if d > time.Minute {
		return time.Minute
	}
	return d
}
