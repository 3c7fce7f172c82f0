package ratelimit

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/crm/internal/config"
	obslogger "github.com/smallbiznis/crm/internal/observability/logger"
	"go.uber.org/zap"
)

const keyWriteLimit = "crm:ratelimit:write:%s"

// WriteLimiter throttles mutating requests per client IP.
type WriteLimiter struct {
	bucket *Bucket
	log    *zap.Logger
}

// NewWriteLimiter returns nil when limiting is disabled or redis is not
// configured; a nil limiter lets every request through.
func NewWriteLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) (*WriteLimiter, error) {
	if !cfg.RateLimitEnabled {
		return nil, nil
	}
	if client == nil {
		return nil, fmt.Errorf("rate limit requires REDIS_ADDR")
	}
	bucket, err := NewBucket(client, cfg.RateLimitRate, cfg.RateLimitBurst)
	if err != nil {
		return nil, err
	}
	return &WriteLimiter{
		bucket: bucket,
		log:    log.Named("ratelimit"),
	}, nil
}

// Middleware rejects a request with 429 once its client runs out of tokens.
// Redis failures let the request through.
func (l *WriteLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}

		ip := strings.TrimSpace(c.ClientIP())
		if ip == "" {
			ip = "unknown"
		}
		result, err := l.bucket.Take(c.Request.Context(), fmt.Sprintf(keyWriteLimit, ip))
		if err != nil {
			obslogger.WithContext(c.Request.Context(), l.log).Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			seconds := int(math.Ceil(result.RetryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"type":    "rate_limited",
					"message": "too many requests",
				},
			})
			return
		}
		c.Next()
	}
}
