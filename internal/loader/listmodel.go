package loader

import (
	"context"
	"sync"
)

// ListModel is an in-memory ViewModel that readers can observe. Writers are
// expected to be a single actor; readers may be any goroutine.
type ListModel[T any] struct {
	mu        sync.RWMutex
	items     []T
	emptyText string
	version   uint64
	notifyCh  chan struct{}
}

// NewListModel returns an empty model.
func NewListModel[T any]() *ListModel[T] {
	return &ListModel[T]{notifyCh: make(chan struct{})}
}

var _ ViewModel[Entry] = (*ListModel[Entry])(nil)

func (m *ListModel[T]) ReplaceAll(items []T) {
	m.update(func() { m.items = append([]T(nil), items...) })
}

func (m *ListModel[T]) AppendRange(items []T) {
	m.update(func() { m.items = append(m.items, items...) })
}

func (m *ListModel[T]) PrependRange(items []T) {
	m.update(func() {
		merged := make([]T, 0, len(items)+len(m.items))
		merged = append(merged, items...)
		m.items = append(merged, m.items...)
	})
}

func (m *ListModel[T]) Clear() {
	m.update(func() { m.items = nil })
}

func (m *ListModel[T]) SetEmptyStatus(message string) {
	m.update(func() { m.emptyText = message })
}

// update applies fn and wakes every waiter.
func (m *ListModel[T]) update(fn func()) {
	m.mu.Lock()
	fn()
	m.version++
	close(m.notifyCh)
	m.notifyCh = make(chan struct{})
	m.mu.Unlock()
}

// Items returns a copy of the current rows.
func (m *ListModel[T]) Items() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]T(nil), m.items...)
}

func (m *ListModel[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// EmptyText returns the last empty-status hint.
func (m *ListModel[T]) EmptyText() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.emptyText
}

// Version increases on every mutation.
func (m *ListModel[T]) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Changed returns a channel closed at the next mutation.
func (m *ListModel[T]) Changed() <-chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notifyCh
}

// WaitFor blocks until cond holds for the current rows or ctx is done.
func (m *ListModel[T]) WaitFor(ctx context.Context, cond func(items []T) bool) error {
	for {
		m.mu.RLock()
		ok := cond(m.items)
		ch := m.notifyCh
		m.mu.RUnlock()
		if ok {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitForLen blocks until the model holds at least n rows.
func (m *ListModel[T]) WaitForLen(ctx context.Context, n int) error {
	return m.WaitFor(ctx, func(items []T) bool { return len(items) >= n })
}
