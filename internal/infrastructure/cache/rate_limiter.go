package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisRateLimiter implements sliding-window rate limiting over Redis
// sorted sets keyed by request timestamp.
type redisRateLimiter struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisRateLimiter creates a Redis-backed rate limiter
func NewRedisRateLimiter(client *redis.Client, logger *zap.Logger) RateLimiter {
	return &redisRateLimiter{client: client, logger: logger}
}

// SubmissionQuota bills investigation submissions against the same
// sliding window the API rate limiter evaluates, so query complexity
// counts against the submitting client's request budget.
type SubmissionQuota struct {
	limiter RateLimiter
	window  time.Duration
}

// NewSubmissionQuota creates a quota biller over a rate limiter
func NewSubmissionQuota(limiter RateLimiter, window time.Duration) *SubmissionQuota {
	return &SubmissionQuota{limiter: limiter, window: window}
}

// Charge bills cost extra requests to the client's window
func (q *SubmissionQuota) Charge(ctx context.Context, client string, cost int) error {
	return q.limiter.Charge(ctx, client, cost, q.window)
}

// Allow checks if a request fits under the limit for the sliding window
func (r *redisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window)
	rateLimitKey := RateLimitPrefix + key

	pipe := r.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, rateLimitKey, "-inf", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, rateLimitKey)

	requestID := fmt.Sprintf("%d-%d", now.UnixNano(), now.Nanosecond()%1000)
	pipe.ZAdd(ctx, rateLimitKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: requestID,
	})
	pipe.Expire(ctx, rateLimitKey, window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("rate limiter pipeline failed",
			zap.String("key", key),
			zap.Error(err))
		return false, fmt.Errorf("rate limiter pipeline failed: %w", err)
	}

	// Count reflects the window before the current request was added
	if countCmd.Val() >= int64(limit) {
		r.client.ZRem(ctx, rateLimitKey, requestID)
		return false, nil
	}
	return true, nil
}

// Count returns the current count for a rate limit key
func (r *redisRateLimiter) Count(ctx context.Context, key string, window time.Duration) (int, error) {
	windowStart := time.Now().Add(-window)
	rateLimitKey := RateLimitPrefix + key

	if err := r.client.ZRemRangeByScore(ctx, rateLimitKey, "-inf", strconv.FormatInt(windowStart.UnixNano(), 10)).Err(); err != nil {
		return 0, fmt.Errorf("rate limiter cleanup failed: %w", err)
	}

	count, err := r.client.ZCard(ctx, rateLimitKey).Result()
	if err != nil {
		return 0, fmt.Errorf("rate limiter count failed: %w", err)
	}
	return int(count), nil
}

// Reset clears the rate limit counter for a key
func (r *redisRateLimiter) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, RateLimitPrefix+key).Err(); err != nil {
		return fmt.Errorf("rate limiter reset failed: %w", err)
	}
	return nil
}

// Charge adds n synthetic requests to a key's window. Denial still
// happens only in Allow, so a charge can push the window over its limit
// and block the client's next request instead of this one.
func (r *redisRateLimiter) Charge(ctx context.Context, key string, n int, window time.Duration) error {
	if n <= 0 {
		return nil
	}
	now := time.Now()
	rateLimitKey := RateLimitPrefix + key

	members := make([]redis.Z, n)
	for i := range members {
		members[i] = redis.Z{
			Score:  float64(now.UnixNano()),
			Member: fmt.Sprintf("%d-charge-%d", now.UnixNano(), i),
		}
	}

	pipe := r.client.Pipeline()
	pipe.ZAdd(ctx, rateLimitKey, members...)
	pipe.Expire(ctx, rateLimitKey, window+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rate limiter charge failed: %w", err)
	}
	return nil
}

// Remaining returns how many requests are left in the current window
func (r *redisRateLimiter) Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	count, err := r.Count(ctx, key, window)
	if err != nil {
		return 0, err
	}
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
