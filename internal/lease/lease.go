// Package lease provides short-lived named locks so only one process runs a
// given scheduled task at a time.
package lease

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Release gives the lease back. It is safe to call more than once.
type Release func(ctx context.Context) error

type Locker interface {
	// Acquire returns ok=false without error when another holder owns key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, bool, error)
}

func noopRelease(context.Context) error { return nil }

// Nop always grants the lease.
type Nop struct{}

func (Nop) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, bool, error) {
	return noopRelease, true, nil
}

type memLease struct {
	token   string
	expires time.Time
}

// MemoryLocker grants leases within a single process.
type MemoryLocker struct {
	mu    sync.Mutex
	items map[string]memLease
	now   func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{items: map[string]memLease{}, now: time.Now}
}

func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if it, ok := m.items[key]; ok && (it.expires.IsZero() || now.Before(it.expires)) {
		return nil, false, nil
	}
	it := memLease{token: uuid.NewString()}
	if ttl > 0 {
		it.expires = now.Add(ttl)
	}
	m.items[key] = it
	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if cur, ok := m.items[key]; ok && cur.token == it.token {
			delete(m.items, key)
		}
		return nil
	}, true, nil
}
