package ratelimit

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/logger"
	"go.uber.org/zap"
)

// IdentityFunc extracts the rate limit identity for a request.
type IdentityFunc func(c *gin.Context) string

// UserIdentity keys on the authenticated user and falls back to client IP.
func UserIdentity(c *gin.Context) string {
	if v, ok := c.Get("user_id"); ok {
		if s, ok := v.(interface{ String() string }); ok {
			return "user:" + s.String()
		}
	}
	return "ip:" + c.ClientIP()
}

// Middleware enforces rule for scope. Redis failures let the request through.
func Middleware(limiter *Limiter, scope string, rule Rule, identity IdentityFunc) gin.HandlerFunc {
	if identity == nil {
		identity = UserIdentity
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		result, err := limiter.Allow(ctx, scope, identity(c), rule)
		if err != nil {
			logger.WithContext(ctx).Warn("rate limiter unavailable, allowing request",
				zap.String("scope", scope),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			common.AppErrorResponse(c, common.NewTooManyRequestsError("rate limit exceeded, try again later"))
			c.Abort()
			return
		}

		c.Next()
	}
}

