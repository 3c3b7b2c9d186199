package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"

	"user-rest-service/cmd/api/di"
	"user-rest-service/cmd/api/server"
	"user-rest-service/internal/config"
	"user-rest-service/pkg/logger"
)

// App owns the process-wide resources of the user service.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Server    *server.Server
	Container *di.Container
}

// New loads configuration from CONFIG_PATH (default ".") and wires every
// dependency. Nothing listens until Run.
func New() (*App, error) {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.NewWithConfig(logger.Config{
		Level:            cfg.Logger.Level,
		Format:           cfg.Logger.Format,
		OutputPath:       cfg.Logger.OutputPath,
		SlowQuerySeconds: cfg.Logger.SlowQuerySeconds,
		EnableSampling:   cfg.Logger.EnableSampling,
		ServiceName:      cfg.Logger.ServiceName,
		ServiceVersion:   cfg.Logger.ServiceVersion,
		Environment:      cfg.App.Env,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	c, err := di.NewContainer(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	return &App{Config: cfg, Logger: l, Server: server.New(cfg, l, c), Container: c}, nil
}

// Run serves until ctx is cancelled or a server fails, then releases all
// resources. The returned error joins the serve and shutdown failures.
func (a *App) Run(ctx context.Context) (err error) {
	a.Logger.Info("starting user service",
		zap.String("version", a.Config.Logger.ServiceVersion),
		zap.String("environment", a.Config.App.Env),
		zap.String("db_driver", a.Config.DB.Driver),
		zap.Bool("redis", a.Config.Redis.Enabled),
	)
	defer func() { err = errors.Join(err, a.close()) }()

	if err := a.Server.Listen(ctx); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- a.Server.Start(ctx) }()

	select {
	case <-ctx.Done():
		a.Logger.Info("shutdown requested")
		return nil
	case err := <-done:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

// close stops the servers within the configured timeout, then the container.
func (a *App) close() error {
	timeout := time.Duration(a.Config.App.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		a.Logger.Error("server shutdown failed", zap.Error(err))
		errs = append(errs, err)
	}
	if err := a.Container.Close(); err != nil {
		a.Logger.Error("container close failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("container close: %w", err))
	}
	a.Logger.Info("user service stopped")

	// stdout and stderr cannot be synced on every platform
	if err := a.Logger.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTTY) {
		errs = append(errs, fmt.Errorf("logger sync: %w", err))
	}
	return errors.Join(errs...)
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "."
}
