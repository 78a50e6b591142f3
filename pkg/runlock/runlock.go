// Package runlock provides a single-holder lease used to keep sync and
// rollback runs from overlapping.
package runlock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/pts-sync/pkg/serrors"
)

var (
	ErrLocked    = serrors.NewError("PTS_SYNC_RUNNING", "another sync or rollback is already running", "PtsSync.Errors.Running")
	ErrLeaseLost = serrors.NewError("PTS_LOCK_LOST", "run lock expired before the run finished", "PtsSync.Errors.LockLost")
)

// Lease is held until Release is called or the TTL expires.
type Lease interface {
	Key() string
	// Extend pushes the expiry to ttl from now. It returns ErrLeaseLost when
	// the lease already expired or another holder took the key.
	Extend(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

type Locker interface {
	// TryLock returns ErrLocked when the key is held by someone else.
	TryLock(ctx context.Context, key string, ttl time.Duration) (Lease, error)
	// Held reports whether key is currently locked.
	Held(ctx context.Context, key string) (bool, error)
}

type memoryEntry struct {
	token   string
	expires time.Time
}

type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]memoryEntry
	now   func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]memoryEntry), now: time.Now}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.locks[key]; ok && now.Before(e.expires) {
		return nil, ErrLocked
	}
	token := uuid.NewString()
	l.locks[key] = memoryEntry{token: token, expires: now.Add(ttl)}
	return &memoryLease{locker: l, key: key, token: token}, nil
}

func (l *MemoryLocker) Held(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[key]
	return ok && l.now().Before(e.expires), nil
}

type memoryLease struct {
	locker *MemoryLocker
	key    string
	token  string
}

func (l *memoryLease) Key() string { return l.key }

func (l *memoryLease) Extend(_ context.Context, ttl time.Duration) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	now := l.locker.now()
	e, ok := l.locker.locks[l.key]
	if !ok || e.token != l.token || !now.Before(e.expires) {
		return ErrLeaseLost
	}
	l.locker.locks[l.key] = memoryEntry{token: l.token, expires: now.Add(ttl)}
	return nil
}

func (l *memoryLease) Release(context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	if e, ok := l.locker.locks[l.key]; ok && e.token == l.token {
		delete(l.locker.locks, l.key)
	}
	return nil
}
