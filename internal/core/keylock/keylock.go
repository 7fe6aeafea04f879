// Package keylock provides per-key mutual exclusion with a bounded
// acquisition wait. Mutations on the same inventory cell are serialized;
// unrelated keys proceed fully in parallel.
package keylock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrAcquireTimeout is returned when the lock could not be acquired
// within the configured wait budget.
var ErrAcquireTimeout = errors.New("keylock: acquisition timed out")

// DefaultTimeout bounds how long a caller may wait on a contended key.
const DefaultTimeout = 5 * time.Second

// KeyLock manages one mutex per key. Entries are reference-counted and
// removed as soon as the last waiter releases, so the map does not grow
// with the keyspace.
type KeyLock struct {
	mu      sync.Mutex
	entries map[string]*entry
	timeout time.Duration
}

type entry struct {
	sem  chan struct{} // capacity 1, full while held
	refs int
}

// New creates a KeyLock with the given acquisition timeout.
// A non-positive timeout falls back to DefaultTimeout.
func New(timeout time.Duration) *KeyLock {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &KeyLock{
		entries: make(map[string]*entry),
		timeout: timeout,
	}
}

// Acquire takes exclusive ownership of key and returns a release function.
// The release function must be called on every exit path (defer it).
// Returns ErrAcquireTimeout when the wait budget is exhausted, or the
// context error when ctx is cancelled first.
func (l *KeyLock) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case e.sem <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() {
				<-e.sem
				l.unref(key, e)
			})
		}
		return release, nil
	case <-ctx.Done():
		l.unref(key, e)
		return nil, ctx.Err()
	case <-timer.C:
		l.unref(key, e)
		return nil, ErrAcquireTimeout
	}
}

// unref drops one reference and deletes the entry when nobody holds or
// waits on it anymore.
func (l *KeyLock) unref(key string, e *entry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}

// Len reports how many keys currently have holders or waiters.
func (l *KeyLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
