package middleware

import (
	"fmt"
	"strconv"
	"time"

	redisStore "consenthub/internal/adapter/storage/redis"
	"consenthub/pkg/apperror"
	"consenthub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the per-group limits. The default group
// covers the general API; export and recompute are throttled harder because
// they fan out to heavy queries.
func DefaultRateLimitRules(requests int64, window time.Duration) map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"api":          {Limit: requests, Window: window},
		"audit_export": {Limit: 10, Window: time.Hour},
		"recompute":    {Limit: 10, Window: time.Hour},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// A store failure degrades to allowing the request.
func RateLimiter(store *redisStore.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", extractIdentifier(c), group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
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
			return
		}

		c.Next()
	}
}

// extractIdentifier scopes the counter to the authenticated user when
// present, the client IP otherwise.
func extractIdentifier(c *gin.Context) string {
	if uid := c.GetString(CtxUID); uid != "" {
		return uid
	}
	return c.ClientIP()
}
