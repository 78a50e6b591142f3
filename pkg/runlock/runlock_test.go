package runlock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_Exclusive(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	lease, err := l.TryLock(ctx, "pts-sync", time.Minute)
	require.NoError(t, err)
	require.Equal(t, "pts-sync", lease.Key())

	_, err = l.TryLock(ctx, "pts-sync", time.Minute)
	require.ErrorIs(t, err, ErrLocked)

	held, err := l.Held(ctx, "pts-sync")
	require.NoError(t, err)
	require.True(t, held)

	require.NoError(t, lease.Release(ctx))
	held, _ = l.Held(ctx, "pts-sync")
	require.False(t, held)

	_, err = l.TryLock(ctx, "pts-sync", time.Minute)
	require.NoError(t, err)
}

func TestMemoryLocker_ExpiredLeaseDoesNotReleaseNewHolder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLocker()
	l.now = func() time.Time { return now }

	stale, err := l.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := l.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))
	_, err = l.TryLock(ctx, "k", time.Minute)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, fresh.Release(ctx))
	_, err = l.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
}

func TestMemoryLocker_Extend(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLocker()
	l.now = func() time.Time { return now }

	lease, err := l.TryLock(ctx, "k", 10*time.Second)
	require.NoError(t, err)

	now = now.Add(8 * time.Second)
	require.NoError(t, lease.Extend(ctx, 10*time.Second))

	now = now.Add(8 * time.Second)
	held, err := l.Held(ctx, "k")
	require.NoError(t, err)
	require.True(t, held)

	now = now.Add(3 * time.Second)
	require.ErrorIs(t, lease.Extend(ctx, 10*time.Second), ErrLeaseLost)

	_, err = l.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.ErrorIs(t, lease.Extend(ctx, time.Minute), ErrLeaseLost)
}
