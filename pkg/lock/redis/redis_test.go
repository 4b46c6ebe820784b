package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	locker := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
	t.Cleanup(func() { locker.Close() })
	return locker, mr
}

func TestAcquireIsExclusive(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	release, ok, err := locker.Acquire(ctx, "reminders:dispatch", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.Acquire(ctx, "reminders:dispatch", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, release(ctx))

	_, ok, err = locker.Acquire(ctx, "reminders:dispatch", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLeaseExpires(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	_, ok, err := locker.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	_, ok, err = locker.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStaleReleaseKeepsNewHolder(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	staleRelease, ok, err := locker.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	_, ok, err = locker.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, staleRelease(ctx))
	assert.True(t, mr.Exists("k"))
}

func TestNewRedisLockerBadURL(t *testing.T) {
	_, err := NewRedisLocker(Config{URL: "not-a-url"}, nil)
	assert.Error(t, err)
}

func TestNewRedisLockerConnects(t *testing.T) {
	mr := miniredis.RunT(t)

	locker, err := NewRedisLocker(Config{URL: "redis://" + mr.Addr(), PoolSize: 2}, nil)
	require.NoError(t, err)
	defer locker.Close()

	_, ok, err := locker.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
