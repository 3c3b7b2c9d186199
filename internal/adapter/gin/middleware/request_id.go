package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"user-rest-service/pkg/logger"
)

// HeaderRequestID is read from the request and echoed on the response
const HeaderRequestID = "X-Request-ID"

// RequestID tags every request with an id, reusing the caller's when present.
// The id is stored on the gin context and on the request context for logger.WithContext.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}

		c.Writer.Header().Set(HeaderRequestID, rid)
		c.Set(logger.RequestIDField, rid)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), rid))

		c.Next()
	}
}
