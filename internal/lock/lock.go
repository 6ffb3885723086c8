// Package lock serialises writers of the same document.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrLocked is returned when a lock could not be taken before the context
// ended.
var ErrLocked = errors.New("document is locked by another operation")

// Locker hands out exclusive locks by key. The returned unlock function is
// safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Local is an in-process Locker. Entries are reference counted and removed
// once nobody holds or waits for them.
type Local struct {
	mu    sync.Mutex
	locks map[string]*localEntry
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

// NewLocal returns an empty Local.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*localEntry)}
}

func (l *Local) acquireRef(key string) *localEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	return e
}

func (l *Local) releaseRef(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Lock blocks until key is free or ctx is done.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	e := l.acquireRef(key)
	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.releaseRef(key, e)
		return nil, fmt.Errorf("%w: %s: %v", ErrLocked, key, ctx.Err())
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.releaseRef(key, e)
		})
	}, nil
}

// size reports how many keys are tracked.
func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
