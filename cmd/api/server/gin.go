package server

import (
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-rest-service/cmd/api/di"
	ginrouter "user-rest-service/internal/adapter/gin/router"
)

// SetupGinServer creates and configures the Gin REST API server
func SetupGinServer(c *di.Container, addr string, l *zap.Logger) *http.Server {
	if c.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	checks := map[string]ginrouter.HealthCheck{
		"database": c.PingDB,
	}
	if c.RedisClient != nil {
		checks["redis"] = c.RedisClient.Ping
	}

	router := ginrouter.SetupRouter(c.GinHandler, ginrouter.Options{
		ServiceName:    c.Config.Logger.ServiceName,
		BasePath:       c.Config.App.BasePath,
		AllowedOrigins: c.Config.App.CORSAllowedOrigins,
		MaxBodyBytes:   c.Config.App.MaxBodyBytes,
		TrustedProxies: c.Config.App.TrustedProxies,
		Limiter:        c.Limiter,
		HealthChecks:   checks,
	}, l)

	l.Info("Gin REST API configured",
		zap.String("address", addr),
		zap.String("base_path", c.Config.App.BasePath),
	)

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func serveHTTP(srv *http.Server, lis net.Listener) error {
	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
