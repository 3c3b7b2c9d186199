package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "user-rest-service/internal/domain/user"
)

// KeyPrefix namespaces user entries in Redis.
const KeyPrefix = "user:"

// versionTTL bounds how long an invalidation counter outlives its last bump.
// A fill slower than this may store a stale entry.
const versionTTL = time.Hour

// ErrIncompleteEntry reports a cached hash missing one of the user fields.
var ErrIncompleteEntry = errors.New("incomplete cached user")

// UserCache holds snapshots of stored users. Every Delete bumps a per-user
// version, and a fill only lands when the version it read beforehand is
// still current, so an invalidation always wins over a fill already in flight.
type UserCache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, id int64) (*domain.User, error)
	// Version must be read before loading the user from the store.
	Version(ctx context.Context, id int64) (int64, error)
	// SetIfVersion stores user unless id was invalidated after version was read.
	SetIfVersion(ctx context.Context, user *domain.User, version int64) (bool, error)
	// Delete evicts the entry and invalidates fills in flight.
	Delete(ctx context.Context, id int64) error
}

// entry is the Redis hash layout of a cached user.
type entry struct {
	ID    int64  `redis:"id"`
	Name  string `redis:"name"`
	Email string `redis:"email"`
}

// setIfVersion writes the hash only when the version counter still holds ARGV[1].
// KEYS: entry, version. ARGV: version, id, name, email, ttl ms.
var setIfVersion = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[2]) or '0')
if current ~= tonumber(ARGV[1]) then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'id', ARGV[2], 'name', ARGV[3], 'email', ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// RedisUserCache stores each user as a hash under user:{id} and its
// invalidation counter under user:{id}:version.
type RedisUserCache struct {
	client redis.Cmdable
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisUserCache returns a cache whose entries expire after ttl.
func NewRedisUserCache(client redis.Cmdable, ttl time.Duration, log *zap.Logger) *RedisUserCache {
	return &RedisUserCache{client: client, ttl: ttl, log: log}
}

func key(id int64) string {
	return KeyPrefix + strconv.FormatInt(id, 10)
}

func versionKey(id int64) string {
	return key(id) + ":version"
}

func (c *RedisUserCache) Get(ctx context.Context, id int64) (*domain.User, error) {
	cmd := c.client.HGetAll(ctx, key(id))
	if err := cmd.Err(); err != nil {
		return nil, err
	}
	if len(cmd.Val()) == 0 {
		c.log.Debug("cache miss", zap.Int64("user_id", id))
		return nil, nil
	}

	var e entry
	if err := cmd.Scan(&e); err != nil {
		return nil, err
	}
	if e.ID != id || e.Name == "" || e.Email == "" {
		return nil, ErrIncompleteEntry
	}

	c.log.Debug("cache hit", zap.Int64("user_id", id))
	return &domain.User{ID: e.ID, Name: e.Name, Email: e.Email}, nil
}

func (c *RedisUserCache) Version(ctx context.Context, id int64) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *RedisUserCache) SetIfVersion(ctx context.Context, user *domain.User, version int64) (bool, error) {
	if user == nil {
		return false, errors.New("cannot cache nil user")
	}

	stored, err := setIfVersion.Run(ctx, c.client,
		[]string{key(user.ID), versionKey(user.ID)},
		version, user.ID, user.Name, user.Email, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	if stored == 0 {
		c.log.Debug("cache fill skipped, user invalidated meanwhile", zap.Int64("user_id", user.ID))
		return false, nil
	}

	c.log.Debug("cached user", zap.Int64("user_id", user.ID), zap.Duration("ttl", c.ttl))
	return true, nil
}

// Delete bumps the version and evicts the entry in one transaction.
func (c *RedisUserCache) Delete(ctx context.Context, id int64) error {
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, versionKey(id))
		p.Expire(ctx, versionKey(id), versionTTL)
		p.Del(ctx, key(id))
		return nil
	})
	return err
}
