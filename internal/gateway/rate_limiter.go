package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
)

// RateLimiter implements rate limiting using token bucket algorithm
type RateLimiter struct {
	buckets    map[string]*tokenBucket
	bucketsMux sync.RWMutex
	limit      int
	period     time.Duration
	now        func() time.Time
}

// tokenBucket represents a token bucket for rate limiting
type tokenBucket struct {
	tokens     int
	lastRefill time.Time
	mutex      sync.Mutex
}

// NewRateLimiter creates an in-process limiter allowing limit requests per
// period for each key
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow checks if a request is allowed for the given key
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := rl.getBucket(key)

	bucket.mutex.Lock()
	defer bucket.mutex.Unlock()

	now := rl.now()
	elapsed := now.Sub(bucket.lastRefill)

	if elapsed >= rl.period {
		bucket.tokens = rl.limit
		bucket.lastRefill = now
	} else {
		// partial refill, proportional to elapsed time
		tokensToAdd := int(elapsed.Nanoseconds() * int64(rl.limit) / rl.period.Nanoseconds())
		bucket.tokens = min(bucket.tokens+tokensToAdd, rl.limit)
		if tokensToAdd > 0 {
			bucket.lastRefill = now
		}
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true, nil
	}
	return false, nil
}

// Reset refills the bucket for key
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	rl.bucketsMux.Lock()
	defer rl.bucketsMux.Unlock()

	if bucket, exists := rl.buckets[key]; exists {
		bucket.mutex.Lock()
		bucket.tokens = rl.limit
		bucket.lastRefill = rl.now()
		bucket.mutex.Unlock()
	}
	return nil
}

func (rl *RateLimiter) getBucket(key string) *tokenBucket {
	rl.bucketsMux.RLock()
	bucket, exists := rl.buckets[key]
	rl.bucketsMux.RUnlock()

	if exists {
		return bucket
	}

	rl.bucketsMux.Lock()
	defer rl.bucketsMux.Unlock()

	// Double-check after acquiring write lock
	if bucket, exists := rl.buckets[key]; exists {
		return bucket
	}

	bucket = &tokenBucket{
		tokens:     rl.limit,
		lastRefill: rl.now(),
	}
	rl.buckets[key] = bucket
	return bucket
}

// cleanup drops buckets idle for longer than maxIdle
func (rl *RateLimiter) cleanup(maxIdle time.Duration) {
	rl.bucketsMux.Lock()
	defer rl.bucketsMux.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	for key, bucket := range rl.buckets {
		bucket.mutex.Lock()
		if bucket.lastRefill.Before(cutoff) {
			delete(rl.buckets, key)
		}
		bucket.mutex.Unlock()
	}
}

// StartCleanup periodically drops idle buckets until ctx is done
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup(24 * time.Hour)
			}
		}
	}()
}

// RedisRateLimiter is a fixed-window limiter shared by every replica
type RedisRateLimiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
	prefix string
	logger *logger.Logger
}

// NewRedisRateLimiter creates a limiter allowing limit requests per window
// for each key
func NewRedisRateLimiter(client redis.Cmdable, limit int, window time.Duration, log *logger.Logger) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:",
		logger: log,
	}
}

// Allow counts the request against key's current window. A Redis failure
// lets the request through.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := rl.prefix + key

	// EXPIRE NX in the same transaction gives every counter a TTL, including
	// one left behind by an earlier failed expiry
	var incr *redis.IntCmd
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, rl.window)
		return nil
	})
	if err != nil {
		rl.logger.WithError(err).WithField("key", key).Warn("Rate limit check unavailable")
		return true, fmt.Errorf("rate limit increment failed: %w", err)
	}
	return incr.Val() <= int64(rl.limit), nil
}

// Reset clears key's current window
func (rl *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.client.Del(ctx, rl.prefix+key).Err()
}
