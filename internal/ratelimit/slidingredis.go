package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter implements a sliding window rate limiter backed by Redis sorted sets.
// Checkouts are limited per staff member with it.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

// Allow registers an event for the given key and returns whether it is within
// the limit. Rejected events are removed again so a blocked caller is not kept
// blocked by its own retries.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error) {
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, time.Now().Add(window), nil
	}

	now := time.Now()
	until := now.Add(window)
	score := float64(now.UnixNano())
	cutoff := float64(now.Add(-window).UnixNano())

	redisKey := l.Prefix + key
	member := fmt.Sprintf("%s:%s", key, uuid.NewString())

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%f", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: score, Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	oldest := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.Expire(ctx, redisKey, window)
	if _, err = pipe.Exec(ctx); err != nil {
		return false, 0, until, err
	}

	if first := oldest.Val(); len(first) == 1 {
		until = time.Unix(0, int64(first[0].Score)).Add(window)
	}
	current := int(countCmd.Val())
	if current > max {
		_ = l.Client.ZRem(ctx, redisKey, member).Err()
		return false, 0, until, nil
	}
	return true, max - current, until, nil
}
