package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"user-rest-service/cmd/api/di"
	"user-rest-service/internal/config"
)

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	Gin    *http.Server
	GRPC   *grpc.Server
	Health *health.Server

	ginLis      net.Listener
	grpcLis     net.Listener
	listenCfg   net.ListenConfig
	healthCheck func(context.Context) error
	stopped     chan struct{}
	stopOnce    sync.Once
}

// New creates a new server instance
func New(cfg *config.Config, l *zap.Logger, c *di.Container) *Server {
	grpcServer, healthServer := SetupGRPC(c)

	return &Server{
		Config:      cfg,
		Logger:      l,
		Gin:         SetupGinServer(c, ginAddress(cfg), l),
		GRPC:        grpcServer,
		Health:      healthServer,
		healthCheck: c.PingDB,
		stopped:     make(chan struct{}),
	}
}

// Listen binds both server addresses. Later calls are no-ops.
func (s *Server) Listen(ctx context.Context) error {
	if s.ginLis != nil {
		return nil
	}

	ginLis, err := s.listenCfg.Listen(ctx, "tcp", ginAddress(s.Config))
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", ginAddress(s.Config), err)
	}

	grpcLis, err := s.listenCfg.Listen(ctx, "tcp", grpcAddress(s.Config))
	if err != nil {
		_ = ginLis.Close()
		return fmt.Errorf("failed to listen on %s: %w", grpcAddress(s.Config), err)
	}

	s.ginLis, s.grpcLis = ginLis, grpcLis
	return nil
}

// GinAddr returns the bound REST address, valid after Listen
func (s *Server) GinAddr() net.Addr { return s.ginLis.Addr() }

// GRPCAddr returns the bound gRPC address, valid after Listen
func (s *Server) GRPCAddr() net.Addr { return s.grpcLis.Addr() }

// Start binds the listeners if needed and serves REST and gRPC until both stop
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.Logger.Info("Gin REST API running", zap.String("address", s.ginLis.Addr().String()))
		if err := serveHTTP(s.Gin, s.ginLis); err != nil {
			s.abort()
			return fmt.Errorf("gin server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.Logger.Info("gRPC server running", zap.String("address", s.grpcLis.Addr().String()))
		if err := s.GRPC.Serve(s.grpcLis); err != nil {
			s.abort()
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		watchHealth(gctx, s.stopped, s.Health, s.healthCheck, s.Logger)
		return nil
	})

	return g.Wait()
}

// Shutdown stops accepting requests and drains in-flight ones until ctx expires
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopped) })
	s.Health.Shutdown()

	var err error
	if s.Gin != nil {
		s.Logger.Info("shutting down Gin server...")
		if shutdownErr := s.Gin.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("gin shutdown: %w", shutdownErr)
		}
	}

	if s.GRPC != nil {
		s.Logger.Info("shutting down gRPC server...")
		done := make(chan struct{})
		go func() {
			s.GRPC.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.GRPC.Stop()
		}
	}

	return err
}

// abort stops both servers at once after one of them failed
func (s *Server) abort() {
	s.stopOnce.Do(func() { close(s.stopped) })
	_ = s.Gin.Close()
	s.GRPC.Stop()
}

func ginAddress(cfg *config.Config) string {
	return ":" + cfg.App.HTTPPort
}

func grpcAddress(cfg *config.Config) string {
	return ":" + cfg.App.GRPCPort
}
