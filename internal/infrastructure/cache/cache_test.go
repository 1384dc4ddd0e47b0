package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crossfield/investigation-engine/internal/service/engine"
	"github.com/crossfield/investigation-engine/internal/service/queryvalidator"
)

func newTestCache(t *testing.T) (Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisCacheFromClient(client, zap.NewNop()), mr
}

func TestRedisCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))

	got, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "value", got)
}

func TestRedisCache_GetMissing(t *testing.T) {
	c, _ := newTestCache(t)

	_, err := c.Get(context.Background(), "missing")
	var notFound ErrCacheKeyNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.Key)
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "value", time.Second))
	mr.FastForward(2 * time.Second)

	_, err := c.Get(ctx, "key")
	var notFound ErrCacheKeyNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestRedisCache_SetNX(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "lock", "owner-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "lock", "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_JSONRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	}
	require.NoError(t, c.SetJSON(ctx, "json", payload{Name: "network", Score: 0.75}, time.Minute))

	var got payload
	require.NoError(t, c.GetJSON(ctx, "json", &got))
	assert.Equal(t, "network", got.Name)
	assert.Equal(t, 0.75, got.Score)
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisRateLimiter(client, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "client-1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "client-1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	remaining, err := limiter.Remaining(ctx, "client-1", 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	// Other clients are unaffected
	allowed, err = limiter.Allow(ctx, "client-2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_Reset(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisRateLimiter(client, zap.NewNop())
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "client-1", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "client-1", 1, time.Minute)
	require.NoError(t, err)
	require.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "client-1"))

	allowed, err = limiter.Allow(ctx, "client-1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_ChargeConsumesWindowSlots(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisRateLimiter(client, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, limiter.Charge(ctx, "client-1", 3, time.Minute))

	remaining, err := limiter.Remaining(ctx, "client-1", 5, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "client-1", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should fit the remaining budget", i+1)
	}

	allowed, err := limiter.Allow(ctx, "client-1", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestSubmissionQuota_ChargeBillsSharedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisRateLimiter(client, zap.NewNop())
	quota := NewSubmissionQuota(limiter, time.Minute)
	ctx := context.Background()

	require.NoError(t, quota.Charge(ctx, "203.0.113.9", 2))

	remaining, err := limiter.Remaining(ctx, "203.0.113.9", 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	// Other clients keep their full budget
	remaining, err = limiter.Remaining(ctx, "198.51.100.7", 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

func TestValidationStore_RoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	store := NewValidationStore(c, time.Minute)
	ctx := context.Background()

	miss, err := store.GetValidation(ctx, "abc123")
	require.NoError(t, err)
	assert.Nil(t, miss)

	verdict := queryvalidator.NewService(queryvalidator.DefaultLimits()).
		Validate("user-1 AND user-2", []string{"user-1", "user-2"})
	require.NoError(t, store.SetValidation(ctx, "abc123", &engine.CachedValidation{Result: verdict}))

	hit, err := store.GetValidation(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.True(t, hit.Result.IsValid)
	assert.False(t, hit.CachedAt.IsZero())
}
