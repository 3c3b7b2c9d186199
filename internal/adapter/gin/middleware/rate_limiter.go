package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-rest-service/internal/adapter/gin/response"
	"user-rest-service/pkg/logger"
	"user-rest-service/pkg/ratelimit"
)

const msgRateLimited = "rate limit exceeded"

// RateLimiter rejects requests with 429 once the client IP runs out of tokens.
// Limiter errors fail open.
func RateLimiter(limiter ratelimit.Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		allowed, err := limiter.Allow(c.Request.Context(), clientIP)
		if err != nil {
			logger.WithContext(c.Request.Context(), log).Warn("rate limiter error, allowing request",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			logger.WithContext(c.Request.Context(), log).Warn("rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.String("path", c.Request.URL.Path),
			)
			c.Header("Retry-After", "1")
			response.Abort(c, http.StatusTooManyRequests, msgRateLimited)
			return
		}

		c.Next()
	}
}
