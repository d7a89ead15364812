package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
)

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(5, time.Second)

	for i := 0; i < 5; i++ {
		allowed, err := rl.Allow(ctx, "user123")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := rl.Allow(ctx, "user123")
	require.NoError(t, err)
	assert.False(t, allowed, "request should be denied after exceeding limit")
}

func TestRateLimiter_Allow_DifferentKeys(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(3, time.Second)

	for i := 0; i < 3; i++ {
		allowed, _ := rl.Allow(ctx, "user1")
		assert.True(t, allowed)
	}
	allowed, _ := rl.Allow(ctx, "user1")
	assert.False(t, allowed)

	allowed, _ = rl.Allow(ctx, "user2")
	assert.True(t, allowed)
}

func TestRateLimiter_Refill(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(4, time.Minute)
	rl.now = func() time.Time { return now }

	for i := 0; i < 4; i++ {
		allowed, _ := rl.Allow(ctx, "key")
		require.True(t, allowed)
	}
	allowed, _ := rl.Allow(ctx, "key")
	require.False(t, allowed)

	// a quarter period refills one token
	now = now.Add(15 * time.Second)
	allowed, _ = rl.Allow(ctx, "key")
	assert.True(t, allowed)
	allowed, _ = rl.Allow(ctx, "key")
	assert.False(t, allowed)

	// a full period refills the bucket
	now = now.Add(time.Minute)
	for i := 0; i < 4; i++ {
		allowed, _ := rl.Allow(ctx, "key")
		assert.True(t, allowed)
	}
}

func TestRateLimiter_ResetAndCleanup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	allowed, _ := rl.Allow(ctx, "key")
	require.True(t, allowed)
	allowed, _ = rl.Allow(ctx, "key")
	require.False(t, allowed)

	require.NoError(t, rl.Reset(ctx, "key"))
	allowed, _ = rl.Allow(ctx, "key")
	assert.True(t, allowed)

	now = now.Add(48 * time.Hour)
	rl.cleanup(24 * time.Hour)
	rl.bucketsMux.RLock()
	assert.Empty(t, rl.buckets)
	rl.bucketsMux.RUnlock()
}

func setupRedisLimiter(t *testing.T, limit int, window time.Duration) (*RedisRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRateLimiter(client, limit, window, logger.Discard()), mr
}

func TestRedisRateLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	rl, mr := setupRedisLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, err := rl.Allow(ctx, "/api/patient/login:10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := rl.Allow(ctx, "/api/patient/login:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)

	assert.Equal(t, time.Minute, mr.TTL("ratelimit:/api/patient/login:10.0.0.1"))

	// other clients have their own window
	allowed, err = rl.Allow(ctx, "/api/patient/login:10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed)

	// the window expires
	mr.FastForward(time.Minute + time.Second)
	allowed, err = rl.Allow(ctx, "/api/patient/login:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_RestoresMissingExpiry(t *testing.T) {
	ctx := context.Background()
	rl, mr := setupRedisLimiter(t, 1, time.Minute)

	// a counter over the limit that lost its TTL
	require.NoError(t, mr.Set("ratelimit:key", "5"))
	require.Zero(t, mr.TTL("ratelimit:key"))

	allowed, err := rl.Allow(ctx, "key")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:key"))

	mr.FastForward(time.Minute + time.Second)
	allowed, err = rl.Allow(ctx, "key")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_KeepsWindowStart(t *testing.T) {
	ctx := context.Background()
	rl, mr := setupRedisLimiter(t, 5, time.Minute)

	_, err := rl.Allow(ctx, "key")
	require.NoError(t, err)
	mr.FastForward(40 * time.Second)
	_, err = rl.Allow(ctx, "key")
	require.NoError(t, err)

	// later hits do not extend the window
	assert.Equal(t, 20*time.Second, mr.TTL("ratelimit:key"))
}

func TestRedisRateLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	rl, mr := setupRedisLimiter(t, 1, time.Minute)

	allowed, _ := rl.Allow(ctx, "key")
	require.True(t, allowed)
	allowed, _ = rl.Allow(ctx, "key")
	require.False(t, allowed)

	require.NoError(t, rl.Reset(ctx, "key"))
	assert.False(t, mr.Exists("ratelimit:key"))

	allowed, _ = rl.Allow(ctx, "key")
	assert.True(t, allowed)
}

func TestRedisRateLimiter_FailsOpen(t *testing.T) {
	rl, mr := setupRedisLimiter(t, 1, time.Minute)
	mr.Close()

	allowed, err := rl.Allow(context.Background(), "key")
	assert.Error(t, err)
	assert.True(t, allowed)
}
