package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisTokenBucket_Burst(t *testing.T) {
	client, mr := setupTestRedis(t)
	bucket := NewRedisTokenBucket(client, 0.01, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := bucket.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}

	ok, err := bucket.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	// keys are independent
	ok, err = bucket.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, mr.Exists(KeyPrefix+"10.0.0.1"))
	ttl := mr.TTL(KeyPrefix + "10.0.0.1")
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisTokenBucket_Refill(t *testing.T) {
	client, mr := setupTestRedis(t)
	bucket := NewRedisTokenBucket(client, 1, 1)
	ctx := context.Background()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mr.SetTime(start)

	ok, err := bucket.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = bucket.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.SetTime(start.Add(2 * time.Second))
	ok, err = bucket.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisTokenBucket_ServerDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	bucket := NewRedisTokenBucket(client, 1, 1)
	mr.Close()

	ok, err := bucket.Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewRedisTokenBucket_TTL(t *testing.T) {
	assert.Equal(t, 60, NewRedisTokenBucket(nil, 10, 20).ttl)
	assert.Equal(t, 201, NewRedisTokenBucket(nil, 0.5, 100).ttl)
}

func TestLocal_RefillsAndSweeps(t *testing.T) {
	l := NewLocal(1, 1)
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.Allow(ctx, "a")
	assert.False(t, ok)

	now = now.Add(time.Second)
	ok, _ = l.Allow(ctx, "a")
	assert.True(t, ok)

	now = now.Add(localIdleTTL + time.Second)
	_, _ = l.Allow(ctx, "b")
	assert.NotContains(t, l.entries, "a")
	assert.Contains(t, l.entries, "b")
}

func TestLocal_Concurrent(t *testing.T) {
	l := NewLocal(0.001, 10)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := l.Allow(ctx, "shared")
			if ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, allowed)
}
