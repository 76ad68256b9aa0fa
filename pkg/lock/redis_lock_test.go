package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLockerExclusive(t *testing.T) {
	srv := miniredis.RunT(t)
	l, err := NewRedisLocker(srv.Addr(), "", "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, "followups", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, "followups", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	release()

	release2, ok, err := l.Acquire(ctx, "followups", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestRedisLockerExpires(t *testing.T) {
	srv := miniredis.RunT(t)
	l, err := NewRedisLocker(srv.Addr(), "", "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	ctx := context.Background()

	_, ok, err := l.Acquire(ctx, "followups", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	srv.FastForward(2 * time.Second)

	_, ok, err = l.Acquire(ctx, "followups", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockerStaleReleaseKeepsNewHolder(t *testing.T) {
	srv := miniredis.RunT(t)
	l, err := NewRedisLocker(srv.Addr(), "", "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	ctx := context.Background()

	staleRelease, ok, err := l.Acquire(ctx, "followups", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	srv.FastForward(2 * time.Second)
	_, ok, err = l.Acquire(ctx, "followups", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	staleRelease()
	assert.True(t, srv.Exists("test:followups"), "stale token must not delete the new lease")
}

func TestNewRedisLockerRequiresAddr(t *testing.T) {
	_, err := NewRedisLocker(" ", "", "")
	assert.Error(t, err)
}
