package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rzbill/logpager/pkg/log"
)

// cursor is the pagination state of one Actor. Only the actor goroutine
// touches it.
type cursor struct {
	forward  Token
	backward Token
	filtered bool
	filter   string
}

// Actor loads one log stream into a ViewModel in response to control
// messages, one message at a time.
type Actor struct {
	id      string
	stream  string
	fetcher Fetcher
	model   ViewModel[Entry]
	opts    options
	logger  log.Logger

	inbox *mailbox[Message]
	lc    *lifecycle

	cur cursor
}

// NewActor starts an actor for stream. Cancelling ctx disposes the actor.
func NewActor(ctx context.Context, stream string, fetcher Fetcher, model ViewModel[Entry], opts ...Option) *Actor {
	o := buildOptions(opts)
	id := uuid.NewString()
	a := &Actor{
		id:      id,
		stream:  stream,
		fetcher: fetcher,
		model:   model,
		opts:    o,
		logger:  o.logger.WithComponent("loader").With(log.Str("actor_id", id), log.Str("stream", stream)),
		inbox:   newMailbox[Message](o.inboxSize),
		lc:      newLifecycle(ctx),
	}
	o.metrics.actorStarted("stream")
	a.logger.Info("actor started")
	a.lc.watch(a.Dispose)
	go a.run()
	return a
}

// ID returns the actor's unique identifier.
func (a *Actor) ID() string { return a.id }

// Stream returns the stream the actor loads.
func (a *Actor) Stream() string { return a.stream }

// Send enqueues msg. It never blocks; it fails with ErrInboxClosed after
// Dispose and with ErrInboxFull when a bounded inbox is at capacity.
func (a *Actor) Send(msg Message) error {
	if msg == nil {
		return fmt.Errorf("%w: nil message", ErrUnsupportedOperation)
	}
	if !a.IsActive() {
		return ErrInboxClosed
	}
	return a.inbox.Enqueue(msg)
}

// IsActive reports whether the actor has not been disposed.
func (a *Actor) IsActive() bool { return a.lc.isActive() }

// Done is closed when the actor's goroutine has exited.
func (a *Actor) Done() <-chan struct{} { return a.lc.done }

// Dispose closes the inbox, cancels any in-flight fetch and waits for a model
// mutation in progress to finish. Safe to call more than once and from any
// goroutine, including the status observer.
func (a *Actor) Dispose() {
	if a.lc.dispose(a.inbox.Close) {
		a.opts.metrics.actorStopped("stream")
		a.logger.Info("actor disposed")
	}
}

func (a *Actor) run() {
	defer close(a.lc.done)
	defer a.Dispose()
	for {
		msg, ok := a.inbox.Dequeue(a.lc.ctx)
		if !ok {
			return
		}
		a.handle(msg)
	}
}

func (a *Actor) handle(msg Message) {
	a.logger.Debug("handling message", log.Str("kind", msg.Kind().String()))
	switch m := msg.(type) {
	case LoadInitial:
		a.loadInitial(m, ForwardRequest{})
	case LoadInitialRange:
		a.loadInitial(m, ForwardRequest{Range: &TimeRange{Start: m.Anchor.Add(-m.Window)}})
	case LoadInitialFilter:
		a.loadInitial(m, ForwardRequest{Filter: m.Expression})
	case LoadForward:
		a.loadForward()
	case LoadBackward:
		a.loadBackward()
	default:
		a.report(msg.Kind(), StatusRejected, 0, fmt.Errorf("%w: %T", ErrUnsupportedOperation, msg))
	}
}

func (a *Actor) loadInitial(msg Message, req ForwardRequest) {
	// a new epoch starts before the fetch so no older page can land after it
	a.cur = cursor{}
	filtered := msg.Kind() == KindLoadInitialFilter

	if filtered && !supportsFilter(a.fetcher) {
		a.rejectFilter(msg.Kind())
		return
	}
	if !a.lc.mutate(a.model.Clear) {
		return
	}

	page, err := a.fetchForward(req)
	if err != nil {
		if filtered && errors.Is(err, ErrUnsupportedOperation) {
			a.rejectFilter(msg.Kind())
			return
		}
		if !a.lc.mutate(func() {
			a.model.Clear()
			a.model.SetEmptyStatus(a.opts.emptyText)
		}) {
			return
		}
		a.logger.Warn("initial load failed", log.Err(err))
		a.report(msg.Kind(), StatusFailed, 0, &FetchError{Op: "forward", Stream: a.stream, Err: err})
		return
	}

	if !a.lc.mutate(func() {
		if len(page.Entries) == 0 {
			a.model.Clear()
		} else {
			a.model.ReplaceAll(page.Entries)
		}
		a.model.SetEmptyStatus(a.opts.emptyText)
	}) {
		return
	}

	a.cur.forward = page.NextForward
	if msg.Kind() == KindLoadInitialRange {
		a.cur.backward = page.NextBackward
	}
	if filtered {
		a.cur.filtered = true
		a.cur.filter = req.Filter
	}
	a.reportPage(msg.Kind(), len(page.Entries))
}

// rejectFilter handles a filtered load against a source that cannot filter:
// the model is cleared and the actor disposes itself rather than show
// unfiltered rows.
func (a *Actor) rejectFilter(kind Kind) {
	if !a.lc.mutate(func() {
		a.model.Clear()
		a.model.SetEmptyStatus(a.opts.emptyText)
	}) {
		return
	}
	err := fmt.Errorf("%w: filtering stream %q", ErrUnsupportedOperation, a.stream)
	a.logger.Warn("filter not supported, disposing")
	a.report(kind, StatusFailed, 0, err)
	a.Dispose()
}

func (a *Actor) loadForward() {
	if a.cur.forward.IsZero() {
		a.report(KindLoadForward, StatusRejected, 0, fmt.Errorf("%w: forward", ErrNoCursor))
		return
	}
	page, err := a.fetchForward(ForwardRequest{Token: a.cur.forward, Filter: a.cur.filter})
	if err != nil {
		if !a.IsActive() {
			return
		}
		a.logger.Warn("forward load failed", log.Err(err))
		a.report(KindLoadForward, StatusFailed, 0, &FetchError{Op: "forward", Stream: a.stream, Err: err})
		return
	}
	if len(page.Entries) == 0 {
		if a.IsActive() {
			a.report(KindLoadForward, StatusEmpty, 0, nil)
		}
		return
	}
	if !a.lc.mutate(func() { a.model.AppendRange(page.Entries) }) {
		return
	}
	if !page.NextForward.IsZero() {
		a.cur.forward = page.NextForward
	}
	a.reportPage(KindLoadForward, len(page.Entries))
}

func (a *Actor) loadBackward() {
	if a.cur.filtered {
		a.report(KindLoadBackward, StatusRejected, 0, fmt.Errorf("%w: backward pagination of a filtered load", ErrUnsupportedOperation))
		return
	}
	if a.cur.backward.IsZero() {
		a.report(KindLoadBackward, StatusRejected, 0, fmt.Errorf("%w: backward", ErrNoCursor))
		return
	}
	start := time.Now()
	page, err := a.fetcher.FetchBackward(a.lc.ctx, a.stream, a.cur.backward)
	a.opts.metrics.observeFetch("backward", time.Since(start))
	if err != nil {
		if !a.IsActive() {
			return
		}
		a.logger.Warn("backward load failed", log.Err(err))
		a.report(KindLoadBackward, StatusFailed, 0, &FetchError{Op: "backward", Stream: a.stream, Err: err})
		return
	}
	if len(page.Entries) == 0 {
		if a.IsActive() {
			a.report(KindLoadBackward, StatusEmpty, 0, nil)
		}
		return
	}
	if !a.lc.mutate(func() { a.model.PrependRange(page.Entries) }) {
		return
	}
	if !page.NextBackward.IsZero() {
		a.cur.backward = page.NextBackward
	}
	a.reportPage(KindLoadBackward, len(page.Entries))
}

func (a *Actor) fetchForward(req ForwardRequest) (Page, error) {
	start := time.Now()
	page, err := a.fetcher.FetchForward(a.lc.ctx, a.stream, req)
	a.opts.metrics.observeFetch("forward", time.Since(start))
	return page, err
}

func (a *Actor) reportPage(kind Kind, n int) {
	if n == 0 {
		a.report(kind, StatusEmpty, 0, nil)
		return
	}
	a.report(kind, StatusLoaded, n, nil)
}

func (a *Actor) report(kind Kind, status StatusKind, n int, err error) {
	a.logger.Debug("message handled",
		log.Str("kind", kind.String()),
		log.Str("status", status.String()),
		log.Int("entries", n),
	)
	a.opts.metrics.observeStatus(kind, status)
	if a.opts.onStatus != nil {
		a.opts.onStatus(Status{ActorID: a.id, Message: kind, Kind: status, Entries: n, Err: err})
	}
}
