package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/retailpos/backoffice/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// RateLimiter is a fixed-window counter shared by every API replica
type RateLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	prefix string
}

// NewRateLimiter allows limit requests per key and window
func NewRateLimiter(client redis.UniversalClient, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window, prefix: "ratelimit:"}
}

// Allow counts one request for key and reports whether it fits the current
// window, with the number of requests left in it.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	windowStart := time.Now().Truncate(rl.window).Unix()
	redisKey := fmt.Sprintf("%s%s:%d", rl.prefix, key, windowStart)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, rl.limit, fmt.Errorf("rate limit counter: %w", err)
	}

	count := int(incr.Val())
	remaining := max(rl.limit-count, 0)
	return count <= rl.limit, remaining, nil
}

// RateLimit limits requests per store, falling back to the client IP for
// unauthenticated calls. Redis errors let the request through.
func RateLimit(limiter *RateLimiter, log *zap.Logger) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := GetJWTStoreID(c)
		if key == "" {
			key = c.ClientIP()
		}

		allowed, remaining, err := limiter.Allow(c.Request.Context(), key)
		if err != nil && log != nil {
			log.Warn("Rate limiter unavailable", zap.Error(err))
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited, "Too many requests. Please try again later.", c.GetString(RequestIDKey)))
			return
		}
		c.Next()
	}
}
