package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	dialTimeout = 5 * time.Second
	ioTimeout   = 3 * time.Second
)

// Config holds Redis connection configuration.
type Config struct {
	Host        string
	Port        string
	Password    string
	DB          int
	MaxRetries  int
	PoolSize    int
	MinIdleConn int
}

// Addr returns host:port for the configured server.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Options translates c into go-redis options. Zero pool values keep the
// go-redis defaults.
func (c Config) Options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr(),
		Password:     c.Password,
		DB:           c.DB,
		MaxRetries:   c.MaxRetries,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConn,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
		PoolTimeout:  ioTimeout + time.Second,
	}
}

// Client is a go-redis client that logs its lifecycle.
type Client struct {
	*redis.Client
	log *zap.Logger
}

// NewClient connects and pings once. The ping is bounded by ctx and by the
// dial timeout, whichever ends first.
func NewClient(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	rdb := redis.NewClient(cfg.Options())

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}

	log.Info("redis connected", zap.String("addr", cfg.Addr()), zap.Int("db", cfg.DB))
	return &Client{Client: rdb, log: log}, nil
}

// Ping reports whether the server answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// Close releases the connection pool. Pool counters are logged first.
func (c *Client) Close() error {
	st := c.PoolStats()
	c.log.Info("closing redis connection",
		zap.Uint32("hits", st.Hits),
		zap.Uint32("misses", st.Misses),
		zap.Uint32("timeouts", st.Timeouts),
	)
	return c.Client.Close()
}
