package common

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const idemPending = "pending"

// Idem replays the stored response for a repeated Idempotency-Key. Keys are
// scoped to the authenticated staff member. Server errors release the key so
// the client can retry.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

func hashKey(scope, key string) string {
	sum := sha256.Sum256([]byte(scope + "\x00" + key))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Middleware enforces idempotency semantics for write endpoints.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		scope, _ := StaffID(ctx)
		key := hashKey(scope, header)
		ok, err := i.R.SetNX(ctx, key, idemPending, i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !ok {
			i.replay(ctx, w, key)
			return
		}

		rec := &bodyRecorder{ResponseWriter: w, status: http.StatusOK}
		completed := false
		defer func() {
			if !completed || rec.status >= http.StatusInternalServerError {
				_ = i.R.Del(context.Background(), key).Err()
				return
			}
			payload, err := json.Marshal(storedResponse{Status: rec.status, Body: json.RawMessage(bytes.TrimSpace(rec.body.Bytes()))})
			if err != nil {
				_ = i.R.Del(context.Background(), key).Err()
				return
			}
			_ = i.R.Set(context.Background(), key, payload, i.TTL).Err()
		}()
		next.ServeHTTP(rec, r)
		completed = true
	})
}

func (i Idem) replay(ctx context.Context, w http.ResponseWriter, key string) {
	raw, err := i.R.Get(ctx, key).Result()
	if err != nil || raw == idemPending {
		JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "request with this idempotency key is in progress", nil)
		return
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil || !json.Valid(stored.Body) {
		JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

type bodyRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (b *bodyRecorder) WriteHeader(status int) {
	b.status = status
	b.ResponseWriter.WriteHeader(status)
}

func (b *bodyRecorder) Write(p []byte) (int, error) {
	b.body.Write(p)
	return b.ResponseWriter.Write(p)
}
