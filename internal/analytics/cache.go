package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-apotek/internal/events"
	"github.com/noah-isme/backend-apotek/internal/obs"
)

const versionKey = "an:ver"

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

func (s *Service) cacheEnabled() bool {
	return s.R != nil && s.TTL > 0
}

// version returns the current cache generation. Every committed bill bumps it,
// which orphans all cached reports at once.
func (s *Service) version(ctx context.Context) (int64, bool) {
	v, err := s.R.Get(ctx, versionKey).Int64()
	if err == redis.Nil {
		return 0, true
	}
	if err != nil {
		return 0, false
	}
	return v, true
}

func (s *Service) reportKey(ctx context.Context, report string, params ...any) (string, bool) {
	if !s.cacheEnabled() {
		return "", false
	}
	ver, ok := s.version(ctx)
	if !ok {
		return "", false
	}
	parts := append([]any{"an", ver, report}, params...)
	return cacheKey(parts...), true
}

func fromCache[T any](ctx context.Context, s *Service, key string) (T, bool) {
	var out T
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		obs.ObserveReportCache("miss")
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		obs.ObserveReportCache("miss")
		return out, false
	}
	obs.ObserveReportCache("hit")
	return out, true
}

func (s *Service) store(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}

// Invalidate drops every cached report by moving to a new cache generation.
func (s *Service) Invalidate(ctx context.Context) error {
	if s == nil || s.R == nil {
		return nil
	}
	return s.R.Incr(ctx, versionKey).Err()
}

// Notifier invalidates cached reports whenever a bill is committed.
func (s *Service) Notifier() events.Notifier {
	return events.NotifierFunc(func(ctx context.Context, ev events.Event) error {
		if ev.Topic != events.TopicBillCommitted {
			return nil
		}
		return s.Invalidate(ctx)
	})
}
