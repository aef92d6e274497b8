package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rzbill/logpager/pkg/log"
)

// ListActor enumerates a resource into a ViewModel. It accepts LoadInitial
// (replace the model with the first page, or with every page under
// WithExhaustive) and LoadForward (append the next page).
type ListActor[T any] struct {
	id      string
	fetcher ListFetcher[T]
	model   ViewModel[T]
	opts    options
	logger  log.Logger

	inbox *mailbox[Message]
	lc    *lifecycle

	next Token
}

// NewListActor starts a list actor. Cancelling ctx disposes it.
func NewListActor[T any](ctx context.Context, fetcher ListFetcher[T], model ViewModel[T], opts ...Option) *ListActor[T] {
	o := buildOptions(opts)
	id := uuid.NewString()
	a := &ListActor[T]{
		id:      id,
		fetcher: fetcher,
		model:   model,
		opts:    o,
		logger:  o.logger.WithComponent("loader").With(log.Str("actor_id", id), log.Str("actor", "list")),
		inbox:   newMailbox[Message](o.inboxSize),
		lc:      newLifecycle(ctx),
	}
	o.metrics.actorStarted("list")
	a.lc.watch(a.Dispose)
	go a.run()
	return a
}

// ID returns the actor's unique identifier.
func (a *ListActor[T]) ID() string { return a.id }

// Send enqueues LoadInitial or LoadForward; any other message fails with
// ErrUnsupportedOperation without being queued.
func (a *ListActor[T]) Send(msg Message) error {
	switch msg.(type) {
	case LoadInitial, LoadForward:
		if !a.IsActive() {
			return ErrInboxClosed
		}
		return a.inbox.Enqueue(msg)
	case nil:
		return fmt.Errorf("%w: nil message", ErrUnsupportedOperation)
	default:
		return fmt.Errorf("%w: %s on a list actor", ErrUnsupportedOperation, msg.Kind())
	}
}

// IsActive reports whether the actor has not been disposed.
func (a *ListActor[T]) IsActive() bool { return a.lc.isActive() }

// Done is closed when the actor's goroutine has exited.
func (a *ListActor[T]) Done() <-chan struct{} { return a.lc.done }

// Dispose behaves as Actor.Dispose.
func (a *ListActor[T]) Dispose() {
	if a.lc.dispose(a.inbox.Close) {
		a.opts.metrics.actorStopped("list")
		a.logger.Debug("actor disposed")
	}
}

func (a *ListActor[T]) run() {
	defer close(a.lc.done)
	defer a.Dispose()
	for {
		msg, ok := a.inbox.Dequeue(a.lc.ctx)
		if !ok {
			return
		}
		switch msg.(type) {
		case LoadInitial:
			a.loadInitial()
		case LoadForward:
			a.loadMore()
		}
	}
}

func (a *ListActor[T]) loadInitial() {
	a.next = ""
	if !a.lc.mutate(a.model.Clear) {
		return
	}

	var items []T
	var token Token
	for {
		page, err := a.list(token)
		if err != nil {
			if !a.lc.mutate(func() {
				a.model.Clear()
				a.model.SetEmptyStatus(a.opts.emptyText)
			}) {
				return
			}
			a.logger.Warn("list failed", log.Err(err))
			a.report(KindLoadInitial, StatusFailed, 0, &FetchError{Op: "list", Err: err})
			return
		}
		items = append(items, page.Items...)
		// a token that does not advance would loop forever
		if !a.opts.exhaustive || page.Next.IsZero() || page.Next == token {
			token = page.Next
			break
		}
		token = page.Next
		if a.lc.ctx.Err() != nil {
			return
		}
	}

	if !a.lc.mutate(func() {
		if len(items) == 0 {
			a.model.Clear()
		} else {
			a.model.ReplaceAll(items)
		}
		a.model.SetEmptyStatus(a.opts.emptyText)
	}) {
		return
	}
	if !a.opts.exhaustive {
		a.next = token
	}
	a.reportItems(KindLoadInitial, len(items))
}

func (a *ListActor[T]) loadMore() {
	if a.next.IsZero() {
		a.report(KindLoadForward, StatusRejected, 0, fmt.Errorf("%w: no further pages", ErrNoCursor))
		return
	}
	page, err := a.list(a.next)
	if err != nil {
		if a.IsActive() {
			a.logger.Warn("list failed", log.Err(err))
			a.report(KindLoadForward, StatusFailed, 0, &FetchError{Op: "list", Err: err})
		}
		return
	}
	if len(page.Items) > 0 && !a.lc.mutate(func() { a.model.AppendRange(page.Items) }) {
		return
	}
	if !a.IsActive() {
		return
	}
	if page.Next == a.next {
		a.next = ""
	} else {
		a.next = page.Next
	}
	a.reportItems(KindLoadForward, len(page.Items))
}

func (a *ListActor[T]) list(token Token) (ListPage[T], error) {
	start := time.Now()
	page, err := a.fetcher.List(a.lc.ctx, token)
	a.opts.metrics.observeFetch("list", time.Since(start))
	return page, err
}

func (a *ListActor[T]) reportItems(kind Kind, n int) {
	if n == 0 {
		a.report(kind, StatusEmpty, 0, nil)
		return
	}
	a.report(kind, StatusLoaded, n, nil)
}

func (a *ListActor[T]) report(kind Kind, status StatusKind, n int, err error) {
	a.logger.Debug("message handled", log.Str("kind", kind.String()), log.Str("status", status.String()), log.Int("entries", n))
	a.opts.metrics.observeStatus(kind, status)
	if a.opts.onStatus != nil {
		a.opts.onStatus(Status{ActorID: a.id, Message: kind, Kind: status, Entries: n, Err: err})
	}
}
