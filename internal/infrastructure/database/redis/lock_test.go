// internal/infrastructure/database/redis/lock_test.go

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
)

func newMiniredisClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return NewClientFromUniversal(rdb, logging.NewNopLogger()), mr
}

func TestLockAcquireRelease(t *testing.T) {
	client, mr := newMiniredisClient(t)
	defer mr.Close()
	ctx := context.Background()

	lock := NewLock(client, "daily-scheduler", logging.NewNopLogger(), WithLockTTL(time.Second))
	require.NoError(t, lock.Lock(ctx))

	exists, _ := client.Exists(ctx, "fileready:lock:daily-scheduler").Result()
	assert.Equal(t, int64(1), exists)

	require.NoError(t, lock.Unlock(ctx))
	exists, _ = client.Exists(ctx, "fileready:lock:daily-scheduler").Result()
	assert.Equal(t, int64(0), exists)
}

func TestLockContention(t *testing.T) {
	client, mr := newMiniredisClient(t)
	defer mr.Close()
	ctx := context.Background()

	first := NewLock(client, "daily-scheduler", logging.NewNopLogger())
	second := NewLock(client, "daily-scheduler", logging.NewNopLogger(),
		WithRetryCount(2), WithRetryDelay(5*time.Millisecond))

	require.NoError(t, first.Lock(ctx))

	ok, err := second.TryLock(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)

	err = second.Lock(ctx)
	assert.Equal(t, ErrLockNotAcquired, err)
}

func TestLockUnlockWrongOwner(t *testing.T) {
	client, mr := newMiniredisClient(t)
	defer mr.Close()
	ctx := context.Background()

	owner := NewLock(client, "daily-scheduler", logging.NewNopLogger())
	intruder := NewLock(client, "daily-scheduler", logging.NewNopLogger())

	require.NoError(t, owner.Lock(ctx))
	assert.Equal(t, ErrLockNotHeld, intruder.Unlock(ctx))

	// The real owner can still release.
	assert.NoError(t, owner.Unlock(ctx))
}

func TestLockExtend(t *testing.T) {
	client, mr := newMiniredisClient(t)
	defer mr.Close()
	ctx := context.Background()

	lock := NewLock(client, "daily-scheduler", logging.NewNopLogger(), WithLockTTL(time.Second))
	require.NoError(t, lock.Lock(ctx))

	ok, err := lock.Extend(ctx, 10*time.Second)
	assert.NoError(t, err)
	assert.True(t, ok)

	other := NewLock(client, "daily-scheduler", logging.NewNopLogger())
	ok, err = other.Extend(ctx, 10*time.Second)
	assert.NoError(t, err)
	assert.False(t, ok, "a non-owner must not extend the lock")
}

func TestLockReleasedAfterExpiry(t *testing.T) {
	client, mr := newMiniredisClient(t)
	defer mr.Close()
	ctx := context.Background()

	first := NewLock(client, "daily-scheduler", logging.NewNopLogger(), WithLockTTL(time.Second))
	require.NoError(t, first.Lock(ctx))

	mr.FastForward(2 * time.Second)

	second := NewLock(client, "daily-scheduler", logging.NewNopLogger())
	ok, err := second.TryLock(ctx)
	assert.NoError(t, err)
	assert.True(t, ok, "the lock must be free after its TTL lapses")
}
