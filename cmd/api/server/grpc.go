package server

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"user-rest-service/cmd/api/di"
	"user-rest-service/pkg/logger"
)

// UserServiceName is the name reported by the gRPC health service for the users API
const UserServiceName = "users.v1.UserService"

const healthCheckInterval = 10 * time.Second

// SetupGRPC creates the gRPC server with the health and reflection services.
// Every call and stream is tagged with a request ID, access logged and rate limited.
func SetupGRPC(c *di.Container) (*grpc.Server, *health.Server) {
	accessLog := c.Logger.Named("grpc")
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.RequestIDInterceptor(),
			logger.AccessLogInterceptor(accessLog),
			c.GRPCRateLimiter.UnaryInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			logger.RequestIDStreamInterceptor(),
			logger.AccessLogStreamInterceptor(accessLog),
			c.GRPCRateLimiter.StreamInterceptor(),
		),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(UserServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	return grpcServer, healthServer
}

// watchHealth reports the user service as serving while the store answers
func watchHealth(ctx context.Context, stop <-chan struct{}, hs *health.Server, ping func(context.Context) error, l *zap.Logger) {
	update := func() {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := ping(pingCtx); err != nil {
			l.Warn("store unreachable, reporting NOT_SERVING", zap.Error(err))
			hs.SetServingStatus(UserServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
			return
		}
		hs.SetServingStatus(UserServiceName, healthpb.HealthCheckResponse_SERVING)
	}

	update()
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			update()
		}
	}
}
