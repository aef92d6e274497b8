package loader

import (
	"context"
	"sync"
	"sync/atomic"
)

// lifecycle tracks the Active -> Disposed transition shared by both actor
// kinds. mu guards the disposed flag together with every view-model
// mutation, so Dispose waits for a mutation in progress and no mutation
// starts after it.
type lifecycle struct {
	mu       sync.Mutex
	disposed bool
	active   atomic.Bool

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	stop   func() bool
	done   chan struct{}
}

func newLifecycle(parent context.Context) *lifecycle {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	l := &lifecycle{parent: parent, ctx: ctx, cancel: cancel, done: make(chan struct{})}
	l.active.Store(true)
	return l
}

// watch runs dispose once the parent context is done. Until it runs, a done
// parent already counts as disposed for mutate and isActive.
func (l *lifecycle) watch(dispose func()) {
	l.stop = context.AfterFunc(l.parent, dispose)
}

// mutate runs fn while holding the lifecycle lock. It reports false, without
// calling fn, once the actor is disposed.
func (l *lifecycle) mutate(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed || l.parent.Err() != nil {
		return false
	}
	fn()
	return true
}

// dispose flips the state and runs closeInbox. It reports whether this call
// performed the transition.
func (l *lifecycle) dispose(closeInbox func()) bool {
	l.mu.Lock()
	if l.disposed {
		l.mu.Unlock()
		return false
	}
	l.disposed = true
	l.active.Store(false)
	closeInbox()
	l.mu.Unlock()
	l.cancel()
	if l.stop != nil {
		l.stop()
	}
	return true
}

func (l *lifecycle) isActive() bool { return l.active.Load() && l.parent.Err() == nil }
