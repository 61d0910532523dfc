package ratelimit

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-apotek/internal/common"
)

// NewRedisStore returns a limiter store shared by every API instance.
func NewRedisStore(rdb *redis.Client) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "apirate"})
}

// PerIP builds a fixed-window limiter keyed by client IP. rate uses the
// "<limit>-<period>" format, e.g. "300-M".
func PerIP(store limiter.Store, rate string) (func(http.Handler) http.Handler, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse rate %q: %w", rate, err)
	}
	mw := stdlib.NewMiddleware(limiter.New(store, parsed),
		stdlib.WithKeyGetter(common.ClientIP),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, _ *http.Request) {
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, retry later", nil)
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rate limiter unavailable", nil)
		}),
	)
	return mw.Handler, nil
}
