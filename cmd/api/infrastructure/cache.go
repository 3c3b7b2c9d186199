package infrastructure

import (
	"context"

	"go.uber.org/zap"

	"user-rest-service/internal/config"
	redisclient "user-rest-service/pkg/redis"
)

// NewRedisClient connects to Redis when it is enabled. A disabled Redis yields
// a nil client: users are then read straight from the database and rate
// limits are kept per process.
func NewRedisClient(cfg *config.Config, l *zap.Logger) (*redisclient.Client, error) {
	rc := cfg.Redis
	if !rc.Enabled {
		l.Info("redis disabled")
		return nil, nil
	}

	return redisclient.NewClient(context.Background(), redisclient.Config{
		Host:        rc.Host,
		Port:        rc.Port,
		Password:    rc.Password,
		DB:          rc.DB,
		MaxRetries:  rc.MaxRetries,
		PoolSize:    rc.PoolSize,
		MinIdleConn: rc.MinIdleConn,
	}, l.Named("redis"))
}
