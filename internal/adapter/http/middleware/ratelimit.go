package middleware

import (
	"fmt"
	"strconv"
	"time"

	redisStore "course-admin-gateway/internal/adapter/storage/redis"
	"course-admin-gateway/internal/monitoring"
	"course-admin-gateway/pkg/apperror"
	"course-admin-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the per-IP limits of the unauthenticated
// endpoint groups.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"auth_login":       {Limit: 10, Window: time.Minute},
		"webhook_receiver": {Limit: 300, Window: time.Minute},
	}
}

// RateLimiter limits an endpoint group per client IP.
func RateLimiter(store *redisStore.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ip:%s:%s", c.ClientIP(), group)
		if !enforce(c, store, key, rule.Limit, rule.Window, log) {
			return
		}
		c.Next()
	}
}

// KeyRateLimiter enforces APIKey.RateLimit requests per window. It must run
// after APIKeyAuth. A zero limit means unlimited.
func KeyRateLimiter(store *redisStore.RateLimitStore, window time.Duration, metrics *monitoring.Metrics, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := CurrentAPIKey(c)
		if key == nil || key.RateLimit <= 0 {
			c.Next()
			return
		}
		if !enforce(c, store, "apikey:"+key.ID.String(), int64(key.RateLimit), window, log) {
			metrics.RecordGateway("rate_limited")
			return
		}
		c.Next()
	}
}

// enforce applies one fixed-window check and writes the rate limit headers.
// It aborts with 429 and returns false when the caller is over the limit.
// A store failure lets the request through.
func enforce(c *gin.Context, store *redisStore.RateLimitStore, key string, limit int64, window time.Duration, log zerolog.Logger) bool {
	result, err := store.Allow(c.Request.Context(), key, limit, window)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("rate limit check failed, allowing request (degraded mode)")
		return true
	}

	c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

	if !result.Allowed {
		retryAfter := result.ResetAt - time.Now().Unix()
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		response.Error(c, apperror.ErrRateLimitExceeded())
		c.Abort()
		return false
	}
	return true
}
