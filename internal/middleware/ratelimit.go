package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/response"
)

// RateLimiter is a fixed-window per-IP limiter. Counters live in Redis and
// are shared by every replica.
type RateLimiter struct {
	rdb     *redis.Client
	limit   int
	window  time.Duration
	keyFunc func(ip string) string
	log     zerolog.Logger
}

// NewRateLimiter creates a RateLimiter allowing limit requests per window.
// keyFunc maps a client IP to its counter key.
func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration, keyFunc func(ip string) string, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		rdb:     rdb,
		limit:   limit,
		window:  window,
		keyFunc: keyFunc,
		log:     log.With().Str("component", "rate_limiter").Logger(),
	}
}

// Allow counts one hit for ip and reports whether it is within the limit,
// how many hits remain and how long until the window resets.
func (rl *RateLimiter) Allow(ctx context.Context, ip string) (bool, int, time.Duration, error) {
	key := rl.keyFunc(ip)

	n, err := rl.rdb.Incr(ctx, key).Result()
	if err != nil {
		return true, rl.limit, 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if n == 1 {
		if err := rl.rdb.Expire(ctx, key, rl.window).Err(); err != nil {
			return true, rl.limit, 0, fmt.Errorf("expire %s: %w", key, err)
		}
	}

	ttl, err := rl.rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = rl.window
	}
	remaining := max(rl.limit-int(n), 0)
	return int(n) <= rl.limit, remaining, ttl, nil
}

// Middleware returns a Gin middleware that rate-limits requests by IP.
// A Redis failure lets the request through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}

		allowed, remaining, reset, err := rl.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			rl.log.Warn().Err(err).Str("ip", c.ClientIP()).Msg("Rate limiter unavailable")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(reset.Round(time.Second).Seconds())))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}
