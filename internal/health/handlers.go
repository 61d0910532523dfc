package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Probe checks one dependency.
type Probe struct {
	Name    string
	Check   func(ctx context.Context) error
	Timeout time.Duration
}

var draining atomic.Bool

// SetReady flips readiness. The API marks itself not ready while draining on shutdown.
func SetReady(ready bool) {
	draining.Store(!ready)
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Probes []Probe
}

// PostgresProbe pings the ledger database.
func PostgresProbe(pool *pgxpool.Pool) Probe {
	return Probe{Name: "db", Timeout: 500 * time.Millisecond, Check: func(ctx context.Context) error {
		return pool.Ping(ctx)
	}}
}

// RedisProbe pings the session and cache store.
func RedisProbe(rdb *redis.Client) Probe {
	return Probe{Name: "redis", Timeout: 300 * time.Millisecond, Check: func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}}
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if draining.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "draining"})
		return
	}
	if len(h.Probes) == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "dependencies unavailable"})
		return
	}

	status := make(map[string]string, len(h.Probes))
	healthy := true
	for _, p := range h.Probes {
		status[p.Name] = "ok"
		if err := run(r.Context(), p); err != nil {
			status[p.Name] = err.Error()
			healthy = false
		}
	}
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func run(ctx context.Context, p Probe) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Check(ctx)
}
