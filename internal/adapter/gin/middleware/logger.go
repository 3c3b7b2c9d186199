package middleware

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"user-rest-service/internal/adapter/gin/response"
	"user-rest-service/pkg/logger"
)

// Logger writes one access log line per request.
// Health and scrape endpoints in skipPaths are not logged.
func Logger(log *zap.Logger, skipPaths ...string) gin.HandlerFunc {
	return ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  skipPaths,
		Context: func(c *gin.Context) []zapcore.Field {
			if rid := logger.GetRequestID(c.Request.Context()); rid != "" {
				return []zapcore.Field{zap.String(logger.RequestIDField, rid)}
			}
			return nil
		},
	})
}

// Recovery turns a panic into a 500 error envelope and logs it with the stack
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return ginzap.CustomRecoveryWithZap(log, true, func(c *gin.Context, _ any) {
		response.Abort(c, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	})
}
