package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"coin_ledger/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// counter increments a fixed-window counter and returns the new value.
type counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

type redisCounter struct {
	client redis.Cmdable
}

// Incr uses INCR and sets the expiry on the first hit of a window.
// key format: rl:<scope>:<window_seconds>:<identifier>
func (r redisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	val, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if val == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return val, err
		}
	}
	return val, nil
}

// RateLimiter builds fixed-window limit middleware. Backend failures fail
// open so an unavailable Redis never takes the API down.
type RateLimiter struct {
	counter counter
}

// NewRedisRateLimiter limits through Redis. A nil client falls back to
// per-process counting.
func NewRedisRateLimiter(client redis.Cmdable) *RateLimiter {
	if client == nil {
		return NewMemoryRateLimiter()
	}
	return &RateLimiter{counter: redisCounter{client: client}}
}

func NewMemoryRateLimiter() *RateLimiter {
	return &RateLimiter{counter: newMemoryCounter()}
}

// ConnectRedis returns a client when addr is set and reachable, else nil.
func ConnectRedis(ctx context.Context, addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, rate limits are per process", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// ByIP limits requests per client address.
func (l *RateLimiter) ByIP(scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return l.limit(scope, maxRequests, window, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// ByAccount limits per authenticated account. Auth must run first.
func (l *RateLimiter) ByAccount(scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return l.limit(scope, maxRequests, window, func(c *gin.Context) string {
		return c.GetString(ctxAccountID)
	})
}

func (l *RateLimiter) limit(scope string, maxRequests int, window time.Duration, ident func(*gin.Context) string) gin.HandlerFunc {
	windowSec := strconv.FormatInt(int64(window.Seconds()), 10)
	return func(c *gin.Context) {
		id := ident(c)
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "code": "unauthenticated"})
			return
		}

		key := "rl:" + scope + ":" + windowSec + ":" + id
		val, err := l.counter.Incr(c.Request.Context(), key, window)
		if err != nil {
			RLErrors.WithLabelValues(scope).Inc()
			c.Header("X-RateLimit-Error", "backend-error")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(maxRequests)-val), 10))

		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(scope).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"code":        "rate_limited",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues(scope).Inc()
		c.Next()
	}
}
