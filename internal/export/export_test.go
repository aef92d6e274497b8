package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/logpager/internal/loader"
)

// pagedFetcher serves entries two per page; tokens are indexes.
type pagedFetcher struct {
	mu      sync.Mutex
	entries []loader.Entry
	filter  bool
	stall   bool
	fail    error
	reqs    []loader.ForwardRequest
}

func (p *pagedFetcher) FetchForward(ctx context.Context, stream string, req loader.ForwardRequest) (loader.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reqs = append(p.reqs, req)
	if p.fail != nil {
		return loader.Page{}, p.fail
	}
	i := 0
	if !req.Token.IsZero() {
		i, _ = strconv.Atoi(string(req.Token))
	}
	if p.stall {
		return loader.Page{Entries: p.entries[:1], NextForward: "0"}, nil
	}
	end := i + 2
	if end > len(p.entries) {
		end = len(p.entries)
	}
	return loader.Page{Entries: p.entries[i:end], NextForward: loader.Token(strconv.Itoa(end))}, nil
}

func (p *pagedFetcher) FetchBackward(context.Context, string, loader.Token) (loader.Page, error) {
	return loader.Page{}, loader.ErrUnsupportedOperation
}

func (p *pagedFetcher) SupportsFilter() bool { return p.filter }

func entriesAt(n int) []loader.Entry {
	out := make([]loader.Entry, n)
	for i := range out {
		out[i] = loader.Entry{Timestamp: time.UnixMilli(int64(1000 * (i + 1))).UTC(), Message: "line-" + strconv.Itoa(i+1)}
	}
	return out
}

func lines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestStreamWritesAllPages(t *testing.T) {
	f := &pagedFetcher{entries: entriesAt(5)}
	var buf bytes.Buffer
	res, err := Stream(context.Background(), f, "app/web", &buf, Options{})
	require.NoError(t, err)

	got := lines(buf.String())
	require.Len(t, got, 5)
	assert.Equal(t, "1970-01-01T00:00:01Z line-1", got[0])
	assert.Equal(t, 5, res.Entries)
	assert.Equal(t, int64(buf.Len()), res.Bytes)
	assert.False(t, res.Truncated)
	require.NotNil(t, f.reqs[0].Range)
	assert.False(t, f.reqs[0].Range.End.IsZero(), "the end time is fixed up front")
}

func TestStreamStopsPastUntil(t *testing.T) {
	f := &pagedFetcher{entries: entriesAt(6)}
	var buf bytes.Buffer
	res, err := Stream(context.Background(), f, "s", &buf, Options{Until: time.UnixMilli(3000)})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Entries)
	assert.Equal(t, 2, res.Pages)
}

func TestStreamStopsWhenTokenDoesNotAdvance(t *testing.T) {
	f := &pagedFetcher{entries: entriesAt(3), stall: true}
	var buf bytes.Buffer
	res, err := Stream(context.Background(), f, "s", &buf, Options{Resume: "0"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, 1, res.Entries)
}

func TestStreamTruncatesAndResumes(t *testing.T) {
	f := &pagedFetcher{entries: entriesAt(5)}
	var first bytes.Buffer
	res, err := Stream(context.Background(), f, "s", &first, Options{MaxPages: 2})
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, loader.Token("4"), res.Resume)
	assert.Equal(t, 4, res.Entries)

	var rest bytes.Buffer
	res2, err := Stream(context.Background(), f, "s", &rest, Options{Resume: res.Resume})
	require.NoError(t, err)
	assert.False(t, res2.Truncated)
	assert.Equal(t, []string{"1970-01-01T00:00:05Z line-5"}, lines(rest.String()))
}

func TestResumeKeepsOriginalCutoff(t *testing.T) {
	f := &pagedFetcher{entries: entriesAt(4)}
	var first bytes.Buffer
	until := time.UnixMilli(4000)
	res, err := Stream(context.Background(), f, "s", &first, Options{MaxPages: 1, Until: until})
	require.NoError(t, err)
	require.True(t, res.Truncated)
	assert.True(t, res.Until.Equal(until))

	// events appended after the first run's cutoff
	f.mu.Lock()
	f.entries = append(f.entries, loader.Entry{Timestamp: time.UnixMilli(9000).UTC(), Message: "late"})
	f.mu.Unlock()

	var rest bytes.Buffer
	_, err = Stream(context.Background(), f, "s", &rest, Options{Resume: res.Resume, Until: res.Until})
	require.NoError(t, err)
	assert.Equal(t, []string{"1970-01-01T00:00:03Z line-3", "1970-01-01T00:00:04Z line-4"}, lines(rest.String()))
}

func TestResultReportsDefaultCutoff(t *testing.T) {
	before := time.Now()
	res, err := Stream(context.Background(), &pagedFetcher{entries: entriesAt(1)}, "s", io.Discard, Options{})
	require.NoError(t, err)
	assert.False(t, res.Until.Before(before))
	assert.False(t, res.Until.After(time.Now()))
}

func TestStreamHonoursCancellation(t *testing.T) {
	f := &pagedFetcher{entries: entriesAt(4)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	res, err := Stream(ctx, f, "s", &buf, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Pages)
	assert.Empty(t, f.reqs)
}

func TestStreamFetchFailure(t *testing.T) {
	boom := errors.New("boom")
	_, err := Stream(context.Background(), &pagedFetcher{fail: boom}, "s", io.Discard, Options{})
	assert.ErrorIs(t, err, loader.ErrFetchFailed)
	assert.ErrorIs(t, err, boom)
}

func TestStreamFilterRequiresSupport(t *testing.T) {
	_, err := Stream(context.Background(), &pagedFetcher{}, "s", io.Discard, Options{Filter: "true"})
	assert.ErrorIs(t, err, loader.ErrUnsupportedOperation)

	f := &pagedFetcher{entries: entriesAt(3), filter: true}
	_, err = Stream(context.Background(), f, "s", io.Discard, Options{Filter: "true"})
	require.NoError(t, err)
	for _, r := range f.reqs {
		assert.Equal(t, "true", r.Filter)
	}
}

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func TestManyExportsEveryTarget(t *testing.T) {
	f := &pagedFetcher{entries: entriesAt(3)}
	bufs := map[string]*bytes.Buffer{"a": {}, "b": {}, "c": {}}
	var targets []Target
	for name, b := range bufs {
		b := b
		targets = append(targets, Target{Stream: name, Open: func() (io.WriteCloser, error) { return nopCloser{b}, nil }})
	}
	res, err := Many(context.Background(), f, targets, 2, Options{})
	require.NoError(t, err)
	require.Len(t, res, 3)
	for name, b := range bufs {
		assert.Equal(t, 3, res[name].Entries)
		assert.Len(t, lines(b.String()), 3)
	}
}

func TestManyStopsOnOpenFailure(t *testing.T) {
	f := &pagedFetcher{entries: entriesAt(3)}
	bad := errors.New("disk full")
	_, err := Many(context.Background(), f, []Target{
		{Stream: "a", Open: func() (io.WriteCloser, error) { return nil, bad }},
	}, 0, Options{})
	assert.ErrorIs(t, err, bad)
}
