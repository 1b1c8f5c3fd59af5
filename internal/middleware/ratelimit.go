package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig holds one limiting rule: a quota per rolling window.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// RateLimitResult reports the outcome of one admission check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	RetryAt   int64 // Unix seconds when the caller may retry
	Limit     int
}

// RateLimiter admits or rejects a request for a key. It is an injected
// component so the in-process limiter can be swapped for the shared Redis
// one without touching call sites.
type RateLimiter interface {
	Allow(ctx context.Context, key string, config RateLimitConfig) (*RateLimitResult, error)
}

// RedisRateLimiter is a sliding-window limiter on a Redis sorted set; one
// member per admitted request, trimmed to the window on every check.
type RedisRateLimiter struct {
	redis *redis.Client
}

// NewRedisRateLimiter creates a Redis sliding-window limiter
func NewRedisRateLimiter(redisClient *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{redis: redisClient}
}

var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])

	redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
	local count = redis.call('ZCARD', key)

	if count < limit then
		redis.call('ZADD', key, now, now .. '-' .. math.random(1000000))
		redis.call('PEXPIRE', key, window)
		return {1, limit - count - 1}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local retry_at = now + window
	if oldest[2] then
		retry_at = tonumber(oldest[2]) + window
	end
	return {0, 0, retry_at}
`)

// Allow checks and consumes one slot in the rolling window.
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, config RateLimitConfig) (*RateLimitResult, error) {
	now := time.Now().UnixMilli()
	windowMs := config.Window.Milliseconds()

	values, err := slidingWindowScript.Run(ctx, r.redis,
		[]string{fmt.Sprintf("ratelimit:sliding:%s", key)},
		now, windowMs, config.Limit,
	).Int64Slice()
	if err != nil {
		return nil, err
	}

	result := &RateLimitResult{
		Allowed: values[0] == 1,
		Limit:   config.Limit,
		RetryAt: (now + windowMs) / 1000,
	}
	if len(values) > 1 {
		result.Remaining = int(values[1])
	}
	if !result.Allowed && len(values) > 2 {
		result.RetryAt = values[2] / 1000
	}
	return result, nil
}

// MemoryRateLimiter is a per-process sliding-window limiter for tests and
// single-instance deployments without Redis.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	entries map[string][]int64 // admission timestamps, unix ms
	now     func() time.Time
}

// NewMemoryRateLimiter creates an in-memory sliding-window limiter
func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		entries: make(map[string][]int64),
		now:     time.Now,
	}
}

// Allow checks and consumes one slot in the rolling window.
func (m *MemoryRateLimiter) Allow(ctx context.Context, key string, config RateLimitConfig) (*RateLimitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UnixMilli()
	windowMs := config.Window.Milliseconds()
	cutoff := now - windowMs

	kept := m.entries[key][:0]
	for _, ts := range m.entries[key] {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}
	m.entries[key] = kept

	if len(kept) >= config.Limit {
		return &RateLimitResult{
			Allowed: false,
			Limit:   config.Limit,
			RetryAt: (kept[0] + windowMs) / 1000,
		}, nil
	}

	m.entries[key] = append(kept, now)
	return &RateLimitResult{
		Allowed:   true,
		Remaining: config.Limit - len(kept) - 1,
		Limit:     config.Limit,
		RetryAt:   (now + windowMs) / 1000,
	}, nil
}

// RateLimitByWorker limits a route per authenticated worker. Submissions
// beyond the quota fail fast with 429 and a Retry-After header, before any
// tracker state is touched. A limiter error fails open.
func RateLimitByWorker(limiter RateLimiter, config RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		workerID := c.GetString(ContextUserID)
		if workerID == "" {
			workerID = "ip:" + c.ClientIP()
		}

		result, err := limiter.Allow(c.Request.Context(), "geoevent:"+workerID, config)
		if err != nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			retryAfter := result.RetryAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
