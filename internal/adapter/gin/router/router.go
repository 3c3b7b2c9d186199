package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"user-rest-service/api/openapi"
	"user-rest-service/internal/adapter/gin/handler"
	"user-rest-service/internal/adapter/gin/middleware"
	"user-rest-service/internal/adapter/gin/response"
	"user-rest-service/pkg/ratelimit"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is usable
type HealthCheck func(ctx context.Context) error

// Options configures the router
type Options struct {
	ServiceName    string
	BasePath       string
	AllowedOrigins []string
	MaxBodyBytes   int64
	// TrustedProxies may set the client IP through forwarding headers; nil trusts none
	TrustedProxies []string
	// Limiter is applied to the API group; nil disables rate limiting
	Limiter      ratelimit.Limiter
	HealthChecks map[string]HealthCheck
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(userHandler *handler.UserHandler, opts Options, log *zap.Logger) *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		log.Error("invalid trusted proxies, trusting none", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}

	// Global middleware; Metrics precedes CORS so rejected origins and preflights are counted
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log, "/health", "/metrics"))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(opts.AllowedOrigins))

	router.GET("/health", health(opts))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", swagger())

	api := router.Group(opts.BasePath)
	api.Use(middleware.RateLimiter(opts.Limiter, log))
	if opts.MaxBodyBytes > 0 {
		api.Use(middleware.MaxBodyBytes(opts.MaxBodyBytes))
	}
	userHandler.Register(api)

	router.NoRoute(func(c *gin.Context) {
		response.Abort(c, http.StatusNotFound, "resource not found")
	})

	return router
}

func health(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		checks := make(gin.H, len(opts.HealthChecks))
		for name, check := range opts.HealthChecks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				checks[name] = err.Error()
				continue
			}
			checks[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":  state,
			"service": opts.ServiceName,
			"checks":  checks,
		})
	}
}

// swagger serves the embedded OpenAPI document at /swagger/doc.json and the UI around it
func swagger() gin.HandlerFunc {
	ui := httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json"))
	return func(c *gin.Context) {
		if c.Param("any") == "/doc.json" {
			c.Data(http.StatusOK, "application/json; charset=utf-8", openapi.Spec)
			return
		}
		ui.ServeHTTP(c.Writer, c.Request)
	}
}
