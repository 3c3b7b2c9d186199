package di

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-rest-service/cmd/api/infrastructure"
	"user-rest-service/internal/adapter/cache"
	"user-rest-service/internal/adapter/db/postgres"
	ginhandler "user-rest-service/internal/adapter/gin/handler"
	"user-rest-service/internal/adapter/grpc/middleware"
	"user-rest-service/internal/adapter/repository/cached"
	"user-rest-service/internal/config"
	"user-rest-service/internal/usecase/user"
	"user-rest-service/pkg/ratelimit"
	redisclient "user-rest-service/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
	// RedisClient is nil when Redis is disabled
	RedisClient     *redisclient.Client
	UserUC          user.UserUsecase
	Limiter         ratelimit.Limiter
	GRPCRateLimiter *middleware.RateLimiter
	GinHandler      *ginhandler.UserHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	db, err := infrastructure.NewDatabase(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rdb, err := infrastructure.NewRedisClient(cfg, l)
	if err != nil {
		_ = infrastructure.CloseDatabase(db)
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	c, err := Build(cfg, l, db, rdb)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		_ = infrastructure.CloseDatabase(db)
		return nil, err
	}
	return c, nil
}

// Build wires the application graph on top of already opened connections.
// rdb may be nil.
func Build(cfg *config.Config, l *zap.Logger, db *gorm.DB, rdb *redisclient.Client) (*Container, error) {
	var userCache cache.UserCache
	if rdb != nil {
		userCache = cache.NewRedisUserCache(
			rdb.Client,
			time.Duration(cfg.Redis.CacheTTL)*time.Second,
			l,
		)
	}

	dbRepo := postgres.NewUserRepoPG(db, l)
	repo := cached.NewCachedUserRepository(dbRepo, userCache, l)
	userUC := user.New(repo, l)

	limiter := newLimiter(cfg, rdb)
	grpcLimiter, err := middleware.NewRateLimiter(limiter, cfg.App.TrustedProxies, l.Named("grpc"))
	if err != nil {
		return nil, fmt.Errorf("failed to build gRPC rate limiter: %w", err)
	}

	return &Container{
		Config:          cfg,
		Logger:          l,
		DB:              db,
		RedisClient:     rdb,
		UserUC:          userUC,
		Limiter:         limiter,
		GRPCRateLimiter: grpcLimiter,
		GinHandler:      ginhandler.NewUserHandler(userUC, l),
	}, nil
}

// newLimiter shares buckets through Redis when available and falls back to process memory
func newLimiter(cfg *config.Config, rdb *redisclient.Client) ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	if rdb != nil {
		return ratelimit.NewRedisTokenBucket(rdb.Client, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstCapacity)
	}
	return ratelimit.NewLocal(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstCapacity)
}

// PingDB reports whether the database answers
func (c *Container) PingDB(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}
