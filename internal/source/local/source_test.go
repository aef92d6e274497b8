package local

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/logpager/internal/filter"
	"github.com/rzbill/logpager/internal/loader"
	"github.com/rzbill/logpager/internal/logstore"
	pebblestore "github.com/rzbill/logpager/internal/storage/pebble"
)

const testStream = "app/web"

func newStore(t *testing.T) *logstore.Store {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s, err := logstore.Open(db, logstore.Options{})
	require.NoError(t, err)
	return s
}

// seed appends n events msg-1..msg-n at 1s, 2s, ... after the epoch.
func seed(t *testing.T, src *Source, n int) {
	t.Helper()
	es := make([]loader.Entry, n)
	for i := range es {
		es[i] = loader.Entry{Timestamp: time.UnixMilli(int64(1000 * (i + 1))), Message: fmt.Sprintf("msg-%d", i+1), Source: "web"}
	}
	_, err := src.Append(context.Background(), testStream, es)
	require.NoError(t, err)
}

func messages(es []loader.Entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Message
	}
	return out
}

func TestTokenRoundTrip(t *testing.T) {
	seq, err := DecodeToken(EncodeToken(42))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), seq)

	_, err = DecodeToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSplitStreamID(t *testing.T) {
	g, s, err := SplitStreamID("app/web")
	require.NoError(t, err)
	assert.Equal(t, "app", g)
	assert.Equal(t, "web", s)
	for _, bad := range []string{"", "app", "/web", "app/"} {
		_, _, err := SplitStreamID(bad)
		assert.ErrorIs(t, err, ErrInvalidStreamID, bad)
	}
}

func TestForwardPagesThroughStream(t *testing.T) {
	src := New(newStore(t), WithPageSize(2))
	seed(t, src, 5)
	ctx := context.Background()

	p1, err := src.FetchForward(ctx, testStream, loader.ForwardRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"msg-1", "msg-2"}, messages(p1.Entries))

	p2, err := src.FetchForward(ctx, testStream, loader.ForwardRequest{Token: p1.NextForward})
	require.NoError(t, err)
	assert.Equal(t, []string{"msg-3", "msg-4"}, messages(p2.Entries))

	p3, err := src.FetchForward(ctx, testStream, loader.ForwardRequest{Token: p2.NextForward})
	require.NoError(t, err)
	assert.Equal(t, []string{"msg-5"}, messages(p3.Entries))

	tail, err := src.FetchForward(ctx, testStream, loader.ForwardRequest{Token: p3.NextForward})
	require.NoError(t, err)
	assert.Empty(t, tail.Entries)
	assert.Equal(t, p3.NextForward, tail.NextForward, "an empty tail keeps the token")
}

func TestForwardFromRangeAndBackward(t *testing.T) {
	src := New(newStore(t), WithPageSize(2))
	seed(t, src, 6)
	ctx := context.Background()

	p, err := src.FetchForward(ctx, testStream, loader.ForwardRequest{Range: &loader.TimeRange{Start: time.UnixMilli(4000)}})
	require.NoError(t, err)
	assert.Equal(t, []string{"msg-4", "msg-5"}, messages(p.Entries))

	b1, err := src.FetchBackward(ctx, testStream, p.NextBackward)
	require.NoError(t, err)
	assert.Equal(t, []string{"msg-2", "msg-3"}, messages(b1.Entries), "backward pages are chronological")

	b2, err := src.FetchBackward(ctx, testStream, b1.NextBackward)
	require.NoError(t, err)
	assert.Equal(t, []string{"msg-1"}, messages(b2.Entries))

	b3, err := src.FetchBackward(ctx, testStream, b2.NextBackward)
	require.NoError(t, err)
	assert.Empty(t, b3.Entries)
}

func TestForwardHonoursRangeEnd(t *testing.T) {
	src := New(newStore(t), WithPageSize(10))
	seed(t, src, 6)
	p, err := src.FetchForward(context.Background(), testStream, loader.ForwardRequest{
		Range: &loader.TimeRange{Start: time.UnixMilli(2000), End: time.UnixMilli(3000)},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"msg-2", "msg-3"}, messages(p.Entries))
}

func TestRangePastTailStartsAtNextAppend(t *testing.T) {
	src := New(newStore(t))
	seed(t, src, 2)
	ctx := context.Background()
	p, err := src.FetchForward(ctx, testStream, loader.ForwardRequest{Range: &loader.TimeRange{Start: time.UnixMilli(60_000)}})
	require.NoError(t, err)
	assert.Empty(t, p.Entries)

	_, err = src.Append(ctx, testStream, []loader.Entry{{Timestamp: time.UnixMilli(70_000), Message: "late"}})
	require.NoError(t, err)
	next, err := src.FetchForward(ctx, testStream, loader.ForwardRequest{Token: p.NextForward})
	require.NoError(t, err)
	assert.Equal(t, []string{"late"}, messages(next.Entries))
}

func TestFilteredForwardScansBatches(t *testing.T) {
	src := New(newStore(t), WithPageSize(2), WithScanBatch(3))
	seed(t, src, 10)
	ctx := context.Background()
	expr := `text.endsWith("3") || text.endsWith("6") || text.endsWith("9")`

	p1, err := src.FetchForward(ctx, testStream, loader.ForwardRequest{Filter: expr})
	require.NoError(t, err)
	assert.Equal(t, []string{"msg-3", "msg-6"}, messages(p1.Entries))

	p2, err := src.FetchForward(ctx, testStream, loader.ForwardRequest{Token: p1.NextForward, Filter: expr})
	require.NoError(t, err)
	assert.Equal(t, []string{"msg-9"}, messages(p2.Entries))
}

func TestFetchErrors(t *testing.T) {
	src := New(newStore(t))
	ctx := context.Background()

	_, err := src.FetchForward(ctx, "app/missing", loader.ForwardRequest{})
	assert.ErrorIs(t, err, logstore.ErrNotFound)

	seed(t, src, 1)
	_, err = src.FetchForward(ctx, testStream, loader.ForwardRequest{Filter: "text +"})
	assert.ErrorIs(t, err, filter.ErrInvalidExpression)

	_, err = src.FetchForward(ctx, testStream, loader.ForwardRequest{Token: "???"})
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = src.FetchBackward(ctx, testStream, "")
	assert.ErrorIs(t, err, loader.ErrNoCursor)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = src.FetchForward(cctx, testStream, loader.ForwardRequest{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFetchForwardWaitWakesOnAppend(t *testing.T) {
	src := New(newStore(t))
	seed(t, src, 1)
	ctx := context.Background()
	p, err := src.FetchForward(ctx, testStream, loader.ForwardRequest{})
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_, _ = src.Append(ctx, testStream, []loader.Entry{{Message: "fresh"}})
	}()
	got, err := src.FetchForwardWait(ctx, testStream, loader.ForwardRequest{Token: p.NextForward}, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, messages(got.Entries))

	empty, err := src.FetchForwardWait(ctx, testStream, loader.ForwardRequest{Token: got.NextForward}, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, empty.Entries)
}

func TestGroupsAndStreamsListing(t *testing.T) {
	src := New(newStore(t), WithPageSize(2))
	ctx := context.Background()
	for _, id := range []string{"a/x", "b/x", "c/x", "c/y", "c/z"} {
		_, err := src.Append(ctx, id, []loader.Entry{{Message: "hi"}})
		require.NoError(t, err)
	}

	p1, err := src.Groups().List(ctx, "")
	require.NoError(t, err)
	require.Len(t, p1.Items, 2)
	assert.Equal(t, "b", p1.Items[1].Name)
	require.False(t, p1.Next.IsZero())

	p2, err := src.Groups().List(ctx, p1.Next)
	require.NoError(t, err)
	require.Len(t, p2.Items, 1)
	assert.Equal(t, "c", p2.Items[0].Name)
	assert.True(t, p2.Next.IsZero())

	s1, err := src.Streams("c").List(ctx, "")
	require.NoError(t, err)
	require.Len(t, s1.Items, 2)
	s2, err := src.Streams("c").List(ctx, s1.Next)
	require.NoError(t, err)
	require.Len(t, s2.Items, 1)
	assert.Equal(t, "z", s2.Items[0].Name)

	_, err = src.Streams("nope").List(ctx, "")
	assert.ErrorIs(t, err, logstore.ErrNotFound)
}

func TestActorOverLocalSource(t *testing.T) {
	src := New(newStore(t), WithPageSize(2))
	seed(t, src, 5)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	model := loader.NewListModel[loader.Entry]()
	statuses := make(chan loader.Status, 8)
	a := loader.NewActor(ctx, testStream, src, model, loader.OnStatus(func(s loader.Status) { statuses <- s }))
	defer a.Dispose()

	require.NoError(t, a.Send(loader.LoadInitialRange{Anchor: time.UnixMilli(4000), Window: time.Second}))
	require.Equal(t, loader.StatusLoaded, (<-statuses).Kind)
	assert.Equal(t, []string{"msg-3", "msg-4"}, messages(model.Items()))

	require.NoError(t, a.Send(loader.LoadBackward{}))
	require.Equal(t, loader.StatusLoaded, (<-statuses).Kind)
	require.NoError(t, a.Send(loader.LoadForward{}))
	require.Equal(t, loader.StatusLoaded, (<-statuses).Kind)
	assert.Equal(t, []string{"msg-1", "msg-2", "msg-3", "msg-4", "msg-5"}, messages(model.Items()))

	require.NoError(t, a.Send(loader.LoadInitialFilter{Expression: `text == "msg-2"`}))
	require.Equal(t, loader.StatusLoaded, (<-statuses).Kind)
	assert.Equal(t, []string{"msg-2"}, messages(model.Items()))
	assert.True(t, a.IsActive())
}
