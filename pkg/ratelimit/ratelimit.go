// Package ratelimit provides per-key token buckets backed by Redis or process memory.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// KeyPrefix namespaces bucket keys in Redis
const KeyPrefix = "ratelimit:tb:"

// Limiter decides whether the caller identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// tokenBucketScript refills the bucket for the elapsed time and takes one token.
// KEYS[1] bucket, ARGV: rate, capacity, now (seconds), ttl (seconds)
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
local last_refill = tonumber(bucket[1]) or now
local tokens = tonumber(bucket[2]) or capacity

local elapsed = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call('HSET', key, 'last_refill', tostring(now), 'tokens', tostring(tokens))
redis.call('EXPIRE', key, ttl)
return allowed
`)

// RedisTokenBucket is a token bucket shared by every instance through Redis
type RedisTokenBucket struct {
	client   *redis.Client
	rate     float64
	capacity int
	ttl      int
}

// NewRedisTokenBucket creates a bucket refilled at rps tokens per second holding at most burst tokens
func NewRedisTokenBucket(client *redis.Client, rps float64, burst int) *RedisTokenBucket {
	// a bucket idle long enough to refill completely carries no state
	ttl := int(float64(burst)/rps) + 1
	if ttl < 60 {
		ttl = 60
	}
	return &RedisTokenBucket{
		client:   client,
		rate:     rps,
		capacity: burst,
		ttl:      ttl,
	}
}

// Allow takes one token from the bucket for key.
// The clock is read from Redis so every instance agrees on elapsed time.
func (b *RedisTokenBucket) Allow(ctx context.Context, key string) (bool, error) {
	now, err := b.client.Time(ctx).Result()
	if err != nil {
		return false, err
	}

	seconds := float64(now.UnixMicro()) / 1e6
	res, err := tokenBucketScript.Run(ctx, b.client, []string{KeyPrefix + key},
		b.rate, b.capacity, seconds, b.ttl).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

const localIdleTTL = 3 * time.Minute

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Local keeps one in-process token bucket per key.
// Buckets idle for a few minutes are dropped.
type Local struct {
	mu        sync.Mutex
	entries   map[string]*localEntry
	rps       rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

// NewLocal creates a per-key limiter refilled at rps tokens per second
func NewLocal(rps float64, burst int) *Local {
	return &Local{
		entries:   make(map[string]*localEntry),
		rps:       rate.Limit(rps),
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow takes one token from the bucket for key. It never returns an error.
func (l *Local) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > localIdleTTL {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > localIdleTTL {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now

	return e.limiter.AllowN(now, 1), nil
}
