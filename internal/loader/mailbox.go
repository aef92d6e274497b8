package loader

import (
	"context"
	"sync"
)

// mailbox is a FIFO inbox with many producers and a single consumer. A
// capacity of zero means unbounded.
type mailbox[M any] struct {
	mu       sync.Mutex
	items    []M
	capacity int
	closed   bool
	signal   chan struct{}
}

func newMailbox[M any](capacity int) *mailbox[M] {
	return &mailbox[M]{capacity: capacity, signal: make(chan struct{}, 1)}
}

// Enqueue appends msg without blocking.
func (m *mailbox[M]) Enqueue(msg M) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrInboxClosed
	}
	if m.capacity > 0 && len(m.items) >= m.capacity {
		m.mu.Unlock()
		return ErrInboxFull
	}
	m.items = append(m.items, msg)
	m.mu.Unlock()
	m.wake()
	return nil
}

// Dequeue blocks until a message is available. It returns false once the
// mailbox is closed or ctx is done; queued messages are not delivered after
// Close.
func (m *mailbox[M]) Dequeue(ctx context.Context) (M, bool) {
	var zero M
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return zero, false
		}
		if len(m.items) > 0 {
			msg := m.items[0]
			m.items[0] = zero
			m.items = m.items[1:]
			m.mu.Unlock()
			return msg, true
		}
		m.mu.Unlock()

		select {
		case <-m.signal:
		case <-ctx.Done():
			return zero, false
		}
	}
}

// Len returns a snapshot of the queue length.
func (m *mailbox[M]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close rejects further sends and drops pending messages. Idempotent.
func (m *mailbox[M]) Close() {
	m.mu.Lock()
	m.closed = true
	m.items = nil
	m.mu.Unlock()
	m.wake()
}

func (m *mailbox[M]) wake() {
	select {
	case m.signal <- struct{}{}:
	default:
	}
}
