package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestActor(t *testing.T, f Fetcher, opts ...Option) (*Actor, *ListModel[Entry], *statusRecorder) {
	t.Helper()
	model := NewListModel[Entry]()
	rec := newStatusRecorder()
	a := NewActor(context.Background(), "app/web-1", f, model, append([]Option{rec.option()}, opts...)...)
	t.Cleanup(a.Dispose)
	return a, model, rec
}

func TestLoadInitialPopulatesModel(t *testing.T) {
	f := newScriptedFetcher().onForward(entries("message"), "f1", "")
	a, model, rec := newTestActor(t, f)

	require.NoError(t, a.Send(LoadInitial{}))
	st := rec.next(t)

	assert.Equal(t, StatusLoaded, st.Kind)
	assert.Equal(t, KindLoadInitial, st.Message)
	assert.Equal(t, 1, st.Entries)
	assert.Equal(t, a.ID(), st.ActorID)
	assert.Equal(t, []string{"message"}, messagesOf(model.Items()))
	assert.Equal(t, DefaultEmptyText, model.EmptyText())

	calls := f.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "app/web-1", calls[0].stream)
	assert.Equal(t, ForwardRequest{}, calls[0].req)
}

func TestLoadInitialRangeStartsAtWindow(t *testing.T) {
	f := newScriptedFetcher().onForward(entries("message"), "f1", "b1")
	a, model, rec := newTestActor(t, f)

	anchor := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, a.Send(LoadInitialRange{Anchor: anchor, Window: 5 * time.Minute}))
	assert.Equal(t, StatusLoaded, rec.next(t).Kind)
	assert.Equal(t, []string{"message"}, messagesOf(model.Items()))
	assert.Equal(t, DefaultEmptyText, model.EmptyText())

	calls := f.Calls()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].req.Range)
	assert.True(t, calls[0].req.Range.Start.Equal(anchor.Add(-5*time.Minute)))
	assert.True(t, calls[0].req.Range.End.IsZero())
}

func TestEmptyInitialLoad(t *testing.T) {
	f := newScriptedFetcher().onForward(nil, "", "")
	a, model, rec := newTestActor(t, f, WithEmptyText("nothing here"))

	require.NoError(t, a.Send(LoadInitial{}))
	assert.Equal(t, StatusEmpty, rec.next(t).Kind)
	assert.Zero(t, model.Len())
	assert.Equal(t, "nothing here", model.EmptyText())
}

func TestInitialFailureClearsModel(t *testing.T) {
	for _, msg := range []Message{LoadInitial{}, LoadInitialRange{Anchor: time.Unix(0, 0)}} {
		t.Run(msg.Kind().String(), func(t *testing.T) {
			boom := errors.New("network broke")
			f := newScriptedFetcher().
				onForward(entries("stale"), "f1", "").
				failForward(boom)
			a, model, rec := newTestActor(t, f)

			require.NoError(t, a.Send(LoadInitial{}))
			require.Equal(t, StatusLoaded, rec.next(t).Kind)

			require.NoError(t, a.Send(msg))
			st := rec.next(t)
			assert.Equal(t, StatusFailed, st.Kind)
			assert.ErrorIs(t, st.Err, ErrFetchFailed)
			assert.ErrorIs(t, st.Err, boom)
			var fe *FetchError
			require.ErrorAs(t, st.Err, &fe)
			assert.Equal(t, "forward", fe.Op)

			assert.Zero(t, model.Len())
			assert.Equal(t, DefaultEmptyText, model.EmptyText())
			assert.True(t, a.IsActive())

			// the failed load reset the cursor
			require.NoError(t, a.Send(LoadForward{}))
			st = rec.next(t)
			assert.Equal(t, StatusRejected, st.Kind)
			assert.ErrorIs(t, st.Err, ErrNoCursor)
		})
	}
}

func TestLoadingForwardAppends(t *testing.T) {
	f := newScriptedFetcher().
		onForward(entries("message"), "f1", "").
		onForward(nil, "", "").
		onForward(entries("message2"), "f2", "")
	a, model, rec := newTestActor(t, f)

	require.NoError(t, a.Send(LoadInitial{}))
	rec.next(t)
	assert.Equal(t, []string{"message"}, messagesOf(model.Items()))

	require.NoError(t, a.Send(LoadForward{}))
	assert.Equal(t, StatusEmpty, rec.next(t).Kind)
	assert.Equal(t, []string{"message"}, messagesOf(model.Items()))

	require.NoError(t, a.Send(LoadForward{}))
	assert.Equal(t, StatusLoaded, rec.next(t).Kind)
	assert.Equal(t, []string{"message", "message2"}, messagesOf(model.Items()))

	calls := f.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, Token("f1"), calls[1].req.Token)
	assert.Equal(t, Token("f1"), calls[2].req.Token, "an empty page keeps the forward token")
}

func TestLoadingBackwardPrepends(t *testing.T) {
	f := newScriptedFetcher().
		onForward(entries("message"), "f1", "b1").
		onBackward(nil, "").
		onBackward(entries("message2"), "b2")
	a, model, rec := newTestActor(t, f)

	require.NoError(t, a.Send(LoadInitialRange{Anchor: time.Unix(0, 0)}))
	require.NoError(t, a.Send(LoadBackward{}))
	require.NoError(t, a.Send(LoadBackward{}))
	sts := rec.drain(t, 3)
	assert.Equal(t, []StatusKind{StatusLoaded, StatusEmpty, StatusLoaded}, []StatusKind{sts[0].Kind, sts[1].Kind, sts[2].Kind})

	assert.Equal(t, []string{"message2", "message"}, messagesOf(model.Items()))
	calls := f.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, Token("b1"), calls[1].token)
	assert.Equal(t, Token("b1"), calls[2].token)
}

func TestNForwardLoadsYieldNEntries(t *testing.T) {
	const n = 5
	f := newScriptedFetcher().onForward(nil, "t0", "")
	for i := 0; i < n; i++ {
		f.onForward(entries(string(rune('a'+i))), Token(string(rune('A'+i))), "")
	}
	f.onForward(nil, "", "")
	a, model, rec := newTestActor(t, f)

	require.NoError(t, a.Send(LoadInitial{}))
	for i := 0; i < n+1; i++ {
		require.NoError(t, a.Send(LoadForward{}))
	}
	rec.drain(t, n+2)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, messagesOf(model.Items()))
}

func TestForwardFailureKeepsStateForRetry(t *testing.T) {
	f := newScriptedFetcher().
		onForward(entries("a"), "f1", "").
		failForward(errors.New("timeout")).
		onForward(entries("b"), "f2", "")
	a, model, rec := newTestActor(t, f)

	require.NoError(t, a.Send(LoadInitial{}))
	rec.next(t)
	require.NoError(t, a.Send(LoadForward{}))
	st := rec.next(t)
	assert.Equal(t, StatusFailed, st.Kind)
	assert.ErrorIs(t, st.Err, ErrFetchFailed)
	assert.Equal(t, []string{"a"}, messagesOf(model.Items()))

	require.NoError(t, a.Send(LoadForward{}))
	assert.Equal(t, StatusLoaded, rec.next(t).Kind)
	assert.Equal(t, []string{"a", "b"}, messagesOf(model.Items()))

	calls := f.Calls()
	assert.Equal(t, Token("f1"), calls[1].req.Token)
	assert.Equal(t, Token("f1"), calls[2].req.Token)
}

func TestBackwardFailureKeepsState(t *testing.T) {
	f := newScriptedFetcher().
		onForward(entries("x"), "f1", "b1").
		failBackward(errors.New("throttled")).
		onBackward(entries("w"), "b0")
	a, model, rec := newTestActor(t, f)

	require.NoError(t, a.Send(LoadInitialRange{Anchor: time.Unix(0, 0)}))
	require.NoError(t, a.Send(LoadBackward{}))
	require.NoError(t, a.Send(LoadBackward{}))
	sts := rec.drain(t, 3)
	assert.Equal(t, StatusFailed, sts[1].Kind)
	var fe *FetchError
	require.ErrorAs(t, sts[1].Err, &fe)
	assert.Equal(t, "backward", fe.Op)
	assert.Equal(t, []string{"w", "x"}, messagesOf(model.Items()))
	assert.Equal(t, Token("b1"), f.Calls()[2].token)
}

func TestPaginationWithoutCursorIsRejected(t *testing.T) {
	f := newScriptedFetcher().onForward(entries("a"), "f1", "b1")
	a, _, rec := newTestActor(t, f)

	require.NoError(t, a.Send(LoadForward{}))
	require.NoError(t, a.Send(LoadBackward{}))
	sts := rec.drain(t, 2)
	for _, st := range sts {
		assert.Equal(t, StatusRejected, st.Kind)
		assert.ErrorIs(t, st.Err, ErrNoCursor)
	}
	assert.Empty(t, f.Calls())

	// LoadInitial records only the forward token
	require.NoError(t, a.Send(LoadInitial{}))
	require.NoError(t, a.Send(LoadBackward{}))
	sts = rec.drain(t, 2)
	assert.Equal(t, StatusLoaded, sts[0].Kind)
	assert.ErrorIs(t, sts[1].Err, ErrNoCursor)
	assert.Len(t, f.Calls(), 1)
}

func TestReinitializationSupersedesCursor(t *testing.T) {
	f := newScriptedFetcher().
		onForward(entries("old"), "old-token", "").
		onForward(entries("new"), "new-token", "").
		onForward(entries("new2"), "", "")
	a, model, rec := newTestActor(t, f)

	require.NoError(t, a.Send(LoadInitial{}))
	require.NoError(t, a.Send(LoadInitial{}))
	require.NoError(t, a.Send(LoadForward{}))
	rec.drain(t, 3)

	assert.Equal(t, []string{"new", "new2"}, messagesOf(model.Items()))
	calls := f.Calls()
	assert.Equal(t, Token(""), calls[1].req.Token)
	assert.Equal(t, Token("new-token"), calls[2].req.Token)
}

func TestFilterOnNonFilteringSourceDisposesActor(t *testing.T) {
	f := newScriptedFetcher()
	a, model, rec := newTestActor(t, f)

	require.NoError(t, a.Send(LoadInitialFilter{Expression: "abc"}))
	st := rec.next(t)
	assert.Equal(t, StatusFailed, st.Kind)
	assert.ErrorIs(t, st.Err, ErrUnsupportedOperation)

	waitDone(t, a.Done())
	requireDisposed(t, a.Send, a.IsActive)
	assert.Zero(t, model.Len())
	assert.Empty(t, f.Calls(), "unfiltered data must never be fetched")
}

func TestFilterRejectedByFetcherDisposesActor(t *testing.T) {
	sf := newScriptedFetcher().failForward(ErrUnsupportedOperation)
	a, _, rec := newTestActor(t, filteringFetcher{sf})

	require.NoError(t, a.Send(LoadInitialFilter{Expression: `text.contains("x")`}))
	st := rec.next(t)
	assert.Equal(t, StatusFailed, st.Kind)
	assert.ErrorIs(t, st.Err, ErrUnsupportedOperation)
	waitDone(t, a.Done())
	assert.False(t, a.IsActive())
}

func TestFilteredSession(t *testing.T) {
	sf := newScriptedFetcher().
		onForward(entries("ERROR 1"), "f1", "b1").
		onForward(entries("ERROR 2"), "f2", "")
	a, model, rec := newTestActor(t, filteringFetcher{sf})

	expr := `text.contains("ERROR")`
	require.NoError(t, a.Send(LoadInitialFilter{Expression: expr}))
	require.NoError(t, a.Send(LoadBackward{}))
	require.NoError(t, a.Send(LoadForward{}))
	sts := rec.drain(t, 3)

	assert.Equal(t, StatusLoaded, sts[0].Kind)
	assert.Equal(t, StatusRejected, sts[1].Kind)
	assert.ErrorIs(t, sts[1].Err, ErrUnsupportedOperation)
	assert.Equal(t, StatusLoaded, sts[2].Kind)
	assert.True(t, a.IsActive())

	assert.Equal(t, []string{"ERROR 1", "ERROR 2"}, messagesOf(model.Items()))
	calls := sf.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, expr, calls[0].req.Filter)
	assert.Equal(t, ForwardRequest{Token: "f1", Filter: expr}, calls[1].req)

	// a plain reload leaves the filtered session
	sf.onForward(entries("plain"), "f3", "")
	require.NoError(t, a.Send(LoadInitial{}))
	rec.next(t)
	assert.Equal(t, "", sf.Calls()[2].req.Filter)
}

func TestDispose(t *testing.T) {
	a, _, _ := newTestActor(t, newScriptedFetcher())
	require.True(t, a.IsActive())

	a.Dispose()
	requireDisposed(t, a.Send, a.IsActive)
	require.ErrorIs(t, a.Send(LoadInitial{}), ErrInboxClosed)
	assert.NotPanics(t, a.Dispose)
	waitDone(t, a.Done())
}

func TestDisposeDiscardsInFlightFetch(t *testing.T) {
	f := newScriptedFetcher().onForward(entries("late"), "f1", "")
	f.gate = make(chan struct{})
	a, model, rec := newTestActor(t, f)

	require.NoError(t, a.Send(LoadInitial{}))
	select {
	case <-f.started:
	case <-time.After(waitTimeout):
		t.Fatal("fetch not started")
	}
	versionBefore := model.Version()
	a.Dispose()
	close(f.gate)

	waitDone(t, a.Done())
	rec.none(t, 50*time.Millisecond)
	assert.Zero(t, model.Len())
	assert.Equal(t, versionBefore, model.Version(), "no mutation after disposal")
}

func TestParentCancelDisposes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := NewActor(ctx, "s", newScriptedFetcher(), NewListModel[Entry]())
	cancel()
	waitDone(t, a.Done())
	requireDisposed(t, a.Send, a.IsActive)
}

func TestParentCancelDuringFetchDiscardsPage(t *testing.T) {
	for name, script := range map[string]func(*scriptedFetcher){
		"page":    func(f *scriptedFetcher) { f.onForward(entries("late"), "f1", "") },
		"failure": func(f *scriptedFetcher) { f.failForward(errors.New("boom")) },
	} {
		t.Run(name, func(t *testing.T) {
			f := newScriptedFetcher()
			script(f)
			f.gate = make(chan struct{})
			ctx, cancel := context.WithCancel(context.Background())
			model := NewListModel[Entry]()
			rec := newStatusRecorder()
			a := NewActor(ctx, "app/web-1", f, model, rec.option())
			t.Cleanup(a.Dispose)

			require.NoError(t, a.Send(LoadInitial{}))
			select {
			case <-f.started:
			case <-time.After(waitTimeout):
				t.Fatal("fetch not started")
			}
			versionBefore := model.Version()
			cancel()
			assert.False(t, a.IsActive())
			assert.ErrorIs(t, a.Send(LoadForward{}), ErrInboxClosed)
			close(f.gate)

			waitDone(t, a.Done())
			rec.none(t, 50*time.Millisecond)
			assert.Zero(t, model.Len())
			assert.Equal(t, versionBefore, model.Version(), "no mutation after parent cancel")
		})
	}
}

func TestBoundedInbox(t *testing.T) {
	f := newScriptedFetcher().onForward(entries("a"), "f1", "")
	f.gate = make(chan struct{})
	a, model, rec := newTestActor(t, f, WithInboxSize(1))

	require.NoError(t, a.Send(LoadInitial{}))
	<-f.started
	require.NoError(t, a.Send(LoadForward{}))
	require.ErrorIs(t, a.Send(LoadForward{}), ErrInboxFull)

	close(f.gate)
	rec.drain(t, 2)
	assert.Equal(t, []string{"a"}, messagesOf(model.Items()))
}

func TestInterleavedPagingKeepsChronologicalOrder(t *testing.T) {
	w := newWindowFetcher(30)
	a, model, rec := newTestActor(t, w)

	require.NoError(t, a.Send(LoadInitialRange{Anchor: w.entries[10].Timestamp, Window: 0}))
	for i := 0; i < 5; i++ {
		require.NoError(t, a.Send(LoadBackward{}))
		require.NoError(t, a.Send(LoadForward{}))
	}
	rec.drain(t, 11)

	assert.Equal(t, messagesOf(w.entries[0:22]), messagesOf(model.Items()))
	items := model.Items()
	for i := 1; i < len(items); i++ {
		assert.True(t, items[i-1].Timestamp.Before(items[i].Timestamp), "out of order at %d", i)
	}
}

func TestSerializableUnderConcurrentSenders(t *testing.T) {
	w := newWindowFetcher(200)
	a, model, rec := newTestActor(t, w)

	require.NoError(t, a.Send(LoadInitialRange{Anchor: w.entries[100].Timestamp}))
	rec.next(t)

	const senders, perSender = 4, 10
	done := make(chan struct{})
	for s := 0; s < senders; s++ {
		go func(s int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < perSender; i++ {
				if (s+i)%2 == 0 {
					_ = a.Send(LoadForward{})
				} else {
					_ = a.Send(LoadBackward{})
				}
			}
		}(s)
	}
	for s := 0; s < senders; s++ {
		<-done
	}
	rec.drain(t, senders*perSender)

	// 20 backward and 20 forward pages of two, around [100,102)
	assert.Equal(t, messagesOf(w.entries[60:142]), messagesOf(model.Items()))
}

func TestMessageKinds(t *testing.T) {
	assert.Equal(t, "load_initial_filter", LoadInitialFilter{}.Kind().String())
	assert.Equal(t, "load_backward", KindLoadBackward.String())
	assert.ErrorIs(t, newTestActorSend(t, nil), ErrUnsupportedOperation)
}

func newTestActorSend(t *testing.T, msg Message) error {
	a, _, _ := newTestActor(t, newScriptedFetcher())
	return a.Send(msg)
}
