package redisclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestWithLockReleasesKey(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewRedisLocker(client, 5*time.Second, 100*time.Millisecond)

	ran := false
	err := locker.WithLock(context.Background(), "lock:quota:a:2025-06-01", func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists("lock:quota:a:2025-06-01"))
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists("lock:quota:a:2025-06-01"))
}

func TestWithLockPropagatesCallbackError(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewRedisLocker(client, 5*time.Second, 100*time.Millisecond)
	boom := errors.New("boom")

	err := locker.WithLock(context.Background(), "k", func(ctx context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("k"))
}

func TestWithLockGivesUpAfterWait(t *testing.T) {
	_, client := newTestClient(t)
	locker := NewRedisLocker(client, 5*time.Second, 50*time.Millisecond)

	held := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = locker.WithLock(context.Background(), "k", func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()

	<-held
	err := locker.WithLock(context.Background(), "k", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	close(release)
	wg.Wait()
}

func TestWithLockWaitsForRelease(t *testing.T) {
	_, client := newTestClient(t)
	locker := NewRedisLocker(client, 5*time.Second, 2*time.Second)

	held := make(chan struct{})
	go func() {
		_ = locker.WithLock(context.Background(), "k", func(ctx context.Context) error {
			close(held)
			time.Sleep(30 * time.Millisecond)
			return nil
		})
	}()

	<-held
	err := locker.WithLock(context.Background(), "k", func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestReleaseLeavesForeignToken(t *testing.T) {
	mr, client := newTestClient(t)
	l := &redisLocker{client: client, ttl: time.Second}

	require.NoError(t, mr.Set("k", "someone-else"))
	require.NoError(t, l.release(context.Background(), "k", "mine"))

	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestMarkOnce(t *testing.T) {
	mr, client := newTestClient(t)
	marker := NewRedisMarker(client)
	ctx := context.Background()

	first, err := marker.MarkOnce(ctx, "reminder:tomorrow:x", time.Hour)
	require.NoError(t, err)
	second, err := marker.MarkOnce(ctx, "reminder:tomorrow:x", time.Hour)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)

	require.NoError(t, marker.Unmark(ctx, "reminder:tomorrow:x"))
	again, err := marker.MarkOnce(ctx, "reminder:tomorrow:x", time.Hour)
	require.NoError(t, err)
	assert.True(t, again)

	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists("reminder:tomorrow:x"))
}
