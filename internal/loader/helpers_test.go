package loader

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

type fetchResult struct {
	page Page
	err  error
}

type fetchCall struct {
	op     string
	stream string
	req    ForwardRequest
	token  Token
}

// scriptedFetcher replays queued results in order and records every call.
// When a script runs dry it returns an empty page.
type scriptedFetcher struct {
	mu       sync.Mutex
	forward  []fetchResult
	backward []fetchResult
	calls    []fetchCall
	started  chan struct{}
	gate     chan struct{}
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{started: make(chan struct{}, 16)}
}

func (f *scriptedFetcher) onForward(entries []Entry, next, back Token) *scriptedFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forward = append(f.forward, fetchResult{page: Page{Entries: entries, NextForward: next, NextBackward: back}})
	return f
}

func (f *scriptedFetcher) failForward(err error) *scriptedFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forward = append(f.forward, fetchResult{err: err})
	return f
}

func (f *scriptedFetcher) onBackward(entries []Entry, back Token) *scriptedFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backward = append(f.backward, fetchResult{page: Page{Entries: entries, NextBackward: back}})
	return f
}

func (f *scriptedFetcher) failBackward(err error) *scriptedFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backward = append(f.backward, fetchResult{err: err})
	return f
}

func (f *scriptedFetcher) FetchForward(ctx context.Context, stream string, req ForwardRequest) (Page, error) {
	return f.next("forward", fetchCall{op: "forward", stream: stream, req: req})
}

func (f *scriptedFetcher) FetchBackward(ctx context.Context, stream string, token Token) (Page, error) {
	return f.next("backward", fetchCall{op: "backward", stream: stream, token: token})
}

func (f *scriptedFetcher) next(op string, c fetchCall) (Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	gate := f.gate
	var res fetchResult
	queue := &f.forward
	if op == "backward" {
		queue = &f.backward
	}
	if len(*queue) > 0 {
		res = (*queue)[0]
		*queue = (*queue)[1:]
	}
	f.mu.Unlock()

	select {
	case f.started <- struct{}{}:
	default:
	}
	if gate != nil {
		<-gate
	}
	return res.page, res.err
}

func (f *scriptedFetcher) Calls() []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetchCall(nil), f.calls...)
}

// filteringFetcher is a scriptedFetcher that claims filter support.
type filteringFetcher struct {
	*scriptedFetcher
}

func (filteringFetcher) SupportsFilter() bool { return true }

// windowFetcher serves a fixed slice of entries two at a time. Tokens are
// slice indexes: forward tokens point at the next entry to read, backward
// tokens at the first entry already read.
type windowFetcher struct {
	entries []Entry
	size    int
}

func newWindowFetcher(n int) *windowFetcher {
	base := time.Unix(1_700_000_000, 0)
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{Timestamp: base.Add(time.Duration(i) * time.Second), Message: "m" + strconv.Itoa(i)}
	}
	return &windowFetcher{entries: entries, size: 2}
}

func (w *windowFetcher) FetchForward(ctx context.Context, stream string, req ForwardRequest) (Page, error) {
	start := 0
	if req.Range != nil {
		for start < len(w.entries) && w.entries[start].Timestamp.Before(req.Range.Start) {
			start++
		}
	}
	if !req.Token.IsZero() {
		start, _ = strconv.Atoi(string(req.Token))
	}
	end := min(start+w.size, len(w.entries))
	page := Page{Entries: append([]Entry(nil), w.entries[start:end]...), NextForward: Token(strconv.Itoa(end))}
	if req.Range != nil {
		page.NextBackward = Token(strconv.Itoa(start))
	}
	return page, nil
}

func (w *windowFetcher) FetchBackward(ctx context.Context, stream string, token Token) (Page, error) {
	end, _ := strconv.Atoi(string(token))
	start := max(0, end-w.size)
	return Page{Entries: append([]Entry(nil), w.entries[start:end]...), NextBackward: Token(strconv.Itoa(start))}, nil
}

// statusRecorder collects reports from OnStatus.
type statusRecorder struct {
	ch chan Status
}

func newStatusRecorder() *statusRecorder {
	return &statusRecorder{ch: make(chan Status, 128)}
}

func (r *statusRecorder) record(s Status) { r.ch <- s }

func (r *statusRecorder) option() Option { return OnStatus(r.record) }

func (r *statusRecorder) next(t *testing.T) Status {
	t.Helper()
	select {
	case s := <-r.ch:
		return s
	case <-time.After(waitTimeout):
		t.Fatalf("no status reported within %s", waitTimeout)
		return Status{}
	}
}

func (r *statusRecorder) drain(t *testing.T, n int) []Status {
	t.Helper()
	out := make([]Status, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, r.next(t))
	}
	return out
}

func (r *statusRecorder) none(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case s := <-r.ch:
		t.Fatalf("unexpected status %+v", s)
	case <-time.After(within):
	}
}

func entries(msgs ...string) []Entry {
	out := make([]Entry, len(msgs))
	for i, m := range msgs {
		out[i] = Entry{Message: m}
	}
	return out
}

func messagesOf(items []Entry) []string {
	out := make([]string, len(items))
	for i, e := range items {
		out[i] = e.Message
	}
	return out
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatalf("actor did not stop")
	}
}

func requireDisposed(t *testing.T, send func(Message) error, active func() bool) {
	t.Helper()
	require.False(t, active())
	require.ErrorIs(t, send(LoadBackward{}), ErrInboxClosed)
}
