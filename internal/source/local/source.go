package local

import (
	"context"
	"fmt"
	"time"

	"github.com/rzbill/logpager/internal/api"
	"github.com/rzbill/logpager/internal/filter"
	"github.com/rzbill/logpager/internal/loader"
	"github.com/rzbill/logpager/internal/logstore"
	"github.com/rzbill/logpager/pkg/log"
)

const (
	defaultPageSize  = 100
	defaultScanBatch = 512
)

// Source implements loader.Fetcher and loader.FilterSupporter on top of a
// log store.
type Source struct {
	store     *logstore.Store
	pageSize  int
	scanBatch int
	logger    log.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithPageSize sets the number of entries per page.
func WithPageSize(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithScanBatch sets how many records a filtered fetch reads per batch.
func WithScanBatch(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.scanBatch = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Source reading from store.
func New(store *logstore.Store, opts ...Option) *Source {
	s := &Source{
		store:     store,
		pageSize:  defaultPageSize,
		scanBatch: defaultScanBatch,
		logger:    log.NewNopLogger(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.WithComponent("source.local")
	return s
}

// SupportsFilter reports true: filters are evaluated with CEL.
func (s *Source) SupportsFilter() bool { return true }

// PageSize returns the configured page size.
func (s *Source) PageSize() int { return s.pageSize }

func (s *Source) open(id string) (*logstore.Stream, error) {
	group, name, err := SplitStreamID(id)
	if err != nil {
		return nil, err
	}
	st, err := s.store.ExistingStream(group, name)
	if err != nil {
		return nil, fmt.Errorf("local: stream %q: %w", id, err)
	}
	return st, nil
}

// FetchForward reads the page starting at req.Token, or at req.Range.Start
// when no token is given, or at the head of the stream.
func (s *Source) FetchForward(ctx context.Context, id string, req loader.ForwardRequest) (loader.Page, error) {
	if err := ctx.Err(); err != nil {
		return loader.Page{}, err
	}
	st, err := s.open(id)
	if err != nil {
		return loader.Page{}, err
	}
	f, err := filter.Compile(req.Filter)
	if err != nil {
		return loader.Page{}, err
	}

	var from uint64
	var endMs int64
	switch {
	case !req.Token.IsZero():
		if from, err = DecodeToken(req.Token); err != nil {
			return loader.Page{}, err
		}
	case req.Range != nil && !req.Range.Start.IsZero():
		if from, _, err = st.FindAt(req.Range.Start.UnixMilli()); err != nil {
			return loader.Page{}, err
		}
	}
	if req.Range != nil && !req.Range.End.IsZero() {
		endMs = req.Range.End.UnixMilli()
	}

	batch := s.pageSize
	if f.Enabled() {
		batch = s.scanBatch
	}
	entries := make([]loader.Entry, 0, s.pageSize)
	var firstSeq, lastScanned uint64
	cursor := from
scan:
	for {
		if err := ctx.Err(); err != nil {
			return loader.Page{}, err
		}
		recs, err := st.Read(logstore.ReadOptions{From: cursor, Limit: batch})
		if err != nil {
			return loader.Page{}, fmt.Errorf("local: read %q: %w", id, err)
		}
		for _, rec := range recs {
			if endMs > 0 && rec.TimestampMs > endMs {
				break scan
			}
			lastScanned = rec.Seq
			if !f.Match(filter.Event{Seq: rec.Seq, TimestampMs: rec.TimestampMs, Source: rec.Source, Text: rec.Message}) {
				continue
			}
			if len(entries) == 0 {
				firstSeq = rec.Seq
			}
			entries = append(entries, toEntry(rec))
			if len(entries) == s.pageSize {
				break scan
			}
		}
		if len(recs) < batch {
			break
		}
		cursor = lastScanned + 1
	}

	page := loader.Page{Entries: entries}
	switch {
	case lastScanned > 0:
		page.NextForward = EncodeToken(lastScanned + 1)
	case from > 0:
		page.NextForward = EncodeToken(from)
	default:
		page.NextForward = EncodeToken(st.LastSeq() + 1)
	}
	switch {
	case firstSeq > 0:
		page.NextBackward = EncodeToken(firstSeq)
	case from > 0:
		page.NextBackward = EncodeToken(from)
	default:
		page.NextBackward = EncodeToken(1)
	}
	s.logger.Debug("forward page",
		log.Str("stream", id),
		log.Int("entries", len(entries)),
		log.Bool("filtered", f.Enabled()))
	return page, nil
}

// FetchBackward reads the page of records strictly older than token and
// returns them oldest first.
func (s *Source) FetchBackward(ctx context.Context, id string, token loader.Token) (loader.Page, error) {
	if err := ctx.Err(); err != nil {
		return loader.Page{}, err
	}
	if token.IsZero() {
		return loader.Page{}, fmt.Errorf("local: backward fetch: %w", loader.ErrNoCursor)
	}
	before, err := DecodeToken(token)
	if err != nil {
		return loader.Page{}, err
	}
	st, err := s.open(id)
	if err != nil {
		return loader.Page{}, err
	}
	page := loader.Page{NextBackward: token}
	if before <= 1 {
		return page, nil
	}
	recs, err := st.Read(logstore.ReadOptions{From: before, Limit: s.pageSize, Reverse: true})
	if err != nil {
		return loader.Page{}, fmt.Errorf("local: read %q: %w", id, err)
	}
	if len(recs) == 0 {
		return page, nil
	}
	page.Entries = make([]loader.Entry, len(recs))
	for i, rec := range recs {
		page.Entries[len(recs)-1-i] = toEntry(rec)
	}
	page.NextBackward = EncodeToken(recs[len(recs)-1].Seq)
	return page, nil
}

// FetchForwardWait behaves like FetchForward but, when the page is empty,
// waits up to wait for an append and fetches once more.
func (s *Source) FetchForwardWait(ctx context.Context, id string, req loader.ForwardRequest, wait time.Duration) (loader.Page, error) {
	page, err := s.FetchForward(ctx, id, req)
	if err != nil || len(page.Entries) > 0 || wait <= 0 {
		return page, err
	}
	st, err := s.open(id)
	if err != nil {
		return loader.Page{}, err
	}
	wctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := st.WaitForAppend(wctx); err != nil {
		if ctx.Err() != nil {
			return loader.Page{}, ctx.Err()
		}
		return page, nil
	}
	if req.Token.IsZero() {
		req.Token = page.NextForward
		req.Range = nil
	}
	return s.FetchForward(ctx, id, req)
}

// Append writes entries to the stream id, creating it when absent. Zero
// timestamps are replaced with the current time.
func (s *Source) Append(ctx context.Context, id string, entries []loader.Entry) ([]uint64, error) {
	group, name, err := SplitStreamID(id)
	if err != nil {
		return nil, err
	}
	st, err := s.store.Stream(group, name)
	if err != nil {
		return nil, err
	}
	recs := make([]logstore.AppendRecord, 0, len(entries))
	for _, e := range entries {
		var ms int64
		if !e.Timestamp.IsZero() {
			ms = e.Timestamp.UnixMilli()
		}
		recs = append(recs, logstore.AppendRecord{TimestampMs: ms, Source: e.Source, Message: e.Message})
	}
	return st.Append(ctx, recs)
}

// Groups enumerates log groups by name.
func (s *Source) Groups() loader.ListFetcher[api.Group] {
	return loader.ListFunc[api.Group](func(ctx context.Context, token loader.Token) (loader.ListPage[api.Group], error) {
		if err := ctx.Err(); err != nil {
			return loader.ListPage[api.Group]{}, err
		}
		metas, more, err := s.store.ListGroups(string(token), s.pageSize)
		if err != nil {
			return loader.ListPage[api.Group]{}, err
		}
		page := loader.ListPage[api.Group]{Items: make([]api.Group, 0, len(metas))}
		for _, m := range metas {
			page.Items = append(page.Items, api.Group{Name: m.Name, CreatedAtMs: m.CreatedAtMs})
		}
		if more && len(metas) > 0 {
			page.Next = loader.Token(metas[len(metas)-1].Name)
		}
		return page, nil
	})
}

// Streams enumerates the streams of group by name.
func (s *Source) Streams(group string) loader.ListFetcher[api.Stream] {
	return loader.ListFunc[api.Stream](func(ctx context.Context, token loader.Token) (loader.ListPage[api.Stream], error) {
		if err := ctx.Err(); err != nil {
			return loader.ListPage[api.Stream]{}, err
		}
		metas, more, err := s.store.ListStreams(group, string(token), s.pageSize)
		if err != nil {
			return loader.ListPage[api.Stream]{}, fmt.Errorf("local: group %q: %w", group, err)
		}
		page := loader.ListPage[api.Stream]{Items: make([]api.Stream, 0, len(metas))}
		for _, m := range metas {
			page.Items = append(page.Items, api.Stream{Group: m.Group, Name: m.Name, CreatedAtMs: m.CreatedAtMs, LastEventMs: m.LastEventMs})
		}
		if more && len(metas) > 0 {
			page.Next = loader.Token(metas[len(metas)-1].Name)
		}
		return page, nil
	})
}

func toEntry(rec logstore.Record) loader.Entry {
	return loader.Entry{Timestamp: time.UnixMilli(rec.TimestampMs), Message: rec.Message, Source: rec.Source}
}
