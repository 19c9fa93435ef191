package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/staffly-dev/hr-attendance-api/pkg/errors"
	"github.com/staffly-dev/hr-attendance-api/pkg/response"
)

type rateStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// FixedWindowLimiter counts requests per key in fixed windows backed by redis.
type FixedWindowLimiter struct {
	store  rateStore
	limit  int64
	window time.Duration
}

// NewFixedWindowLimiter constructs a limiter allowing limit requests per window.
func NewFixedWindowLimiter(store rateStore, limit int, window time.Duration) *FixedWindowLimiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &FixedWindowLimiter{store: store, limit: int64(limit), window: window}
}

// Allow increments the counter for the key's current window and reports
// whether the request fits under the limit.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := time.Now().Unix() / int64(l.window.Seconds())
	counterKey := fmt.Sprintf("ratelimit:punch:%s:%d", key, bucket)
	count, err := l.store.Incr(ctx, counterKey)
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.store.Expire(ctx, counterKey, l.window); err != nil {
			return count <= l.limit, err
		}
	}
	return count <= l.limit, nil
}

// KioskRateLimit throttles punch ingestion per kiosk. The kiosk identifies
// itself via the X-Kiosk-ID header; anonymous clients fall back to their IP.
// Redis failures fail open so a cache outage never blocks punches.
func KioskRateLimit(limiter *FixedWindowLimiter, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		key := c.GetHeader("X-Kiosk-ID")
		if key == "" {
			key = c.ClientIP()
		}
		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			response.Error(c, appErrors.Clone(appErrors.ErrTooManyRequests, fmt.Sprintf("kiosk %s exceeded punch rate", key)))
			c.Abort()
			return
		}
		c.Next()
	}
}
