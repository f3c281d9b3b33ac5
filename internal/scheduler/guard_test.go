package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/minisource/heartbeat/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestGuard(t *testing.T, mr *miniredis.Miniredis, ttl time.Duration) *InstanceGuard {
	t.Helper()

	cfg := &config.RedisConfig{Addr: mr.Addr(), LockTTL: ttl}
	return NewInstanceGuard(cfg, zaptest.NewLogger(t).Sugar())
}

// TestGuardAcquireRelease tests the lease round trip against a live store
func TestGuardAcquireRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	guard := newTestGuard(t, mr, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, guard.Acquire(ctx))

	holder, err := mr.Get("heartbeat:scheduler:owner")
	require.NoError(t, err)
	assert.Equal(t, guard.Owner(), holder)
	assert.Equal(t, 30*time.Second, mr.TTL("heartbeat:scheduler:owner"))

	require.NoError(t, guard.Release(ctx))
	assert.False(t, mr.Exists("heartbeat:scheduler:owner"))
}

// TestGuardMutualExclusion tests that a second engine refuses to start while
// the lease is held
func TestGuardMutualExclusion(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	first := newTestGuard(t, mr, 30*time.Second)
	require.NoError(t, first.Acquire(ctx))

	second := newTestGuard(t, mr, 30*time.Second)
	err := second.Acquire(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another instance")
	assert.Contains(t, err.Error(), first.Owner())

	// Releasing a lease it never held must not evict the holder.
	require.NoError(t, second.Release(ctx))
	holder, err := mr.Get("heartbeat:scheduler:owner")
	require.NoError(t, err)
	assert.Equal(t, first.Owner(), holder)

	require.NoError(t, first.Release(ctx))

	third := newTestGuard(t, mr, 30*time.Second)
	require.NoError(t, third.Acquire(ctx))
	require.NoError(t, third.Release(ctx))
}

// TestGuardRefreshExtendsLease tests that the background loop keeps the lease
// from expiring
func TestGuardRefreshExtendsLease(t *testing.T) {
	mr := miniredis.RunT(t)
	guard := newTestGuard(t, mr, 300*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, guard.Acquire(ctx))
	t.Cleanup(func() { _ = guard.Release(context.Background()) })

	// Burn most of the TTL, then wait for a refresh tick to restore it.
	mr.FastForward(200 * time.Millisecond)
	require.Eventually(t, func() bool {
		return mr.TTL("heartbeat:scheduler:owner") == 300*time.Millisecond
	}, 2*time.Second, 20*time.Millisecond, "lease was never refreshed")

	holder, err := mr.Get("heartbeat:scheduler:owner")
	require.NoError(t, err)
	assert.Equal(t, guard.Owner(), holder)
}

// TestGuardOwnerIdentity tests the shape and uniqueness of lease identities
func TestGuardOwnerIdentity(t *testing.T) {
	mr := miniredis.RunT(t)

	first := newTestGuard(t, mr, 30*time.Second)
	second := newTestGuard(t, mr, 30*time.Second)

	assert.True(t, strings.HasPrefix(first.Owner(), "heartbeat-"))
	assert.Len(t, first.Owner(), len("heartbeat-")+8)
	assert.NotEqual(t, first.Owner(), second.Owner())
}
