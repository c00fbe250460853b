package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewWithClient(rdb, Config{TTL: time.Hour, LockTTL: 10 * time.Second}), mr
}

func TestStore_AcquireSaveReplay(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	cached, err := s.Acquire(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, cached)

	resp := Response{Status: 201, ContentType: "application/json", Body: []byte(`{"data":{}}`)}
	require.NoError(t, s.Save(ctx, "k1", resp))

	cached, err = s.Acquire(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, resp, *cached)
}

func TestStore_ConcurrentRequestInProgress(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Acquire(ctx, "k2")
	require.NoError(t, err)

	_, err = s.Acquire(ctx, "k2")
	assert.ErrorIs(t, err, ErrInProgress)

	require.NoError(t, s.Release(ctx, "k2"))

	cached, err := s.Acquire(ctx, "k2")
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestStore_Expiry(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_, err := s.Acquire(ctx, "k3")
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "k3", Response{Status: 200}))
	assert.True(t, mr.Exists(resultKey("k3")))
	assert.False(t, mr.Exists(lockKey("k3")))

	mr.FastForward(2 * time.Hour)

	cached, err := s.Acquire(ctx, "k3")
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestStore_StaleLockExpires(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_, err := s.Acquire(ctx, "k4")
	require.NoError(t, err)

	mr.FastForward(11 * time.Second)

	_, err = s.Acquire(ctx, "k4")
	assert.NoError(t, err)
}

func TestStore_EmptyKey(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Acquire(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestStore_CorruptEntryIgnored(t *testing.T) {
	s, mr := newTestStore(t)
	require.NoError(t, mr.Set(resultKey("k5"), "not json"))

	cached, err := s.Acquire(context.Background(), "k5")
	require.NoError(t, err)
	assert.Nil(t, cached)
}
