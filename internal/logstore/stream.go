package logstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	pebblestore "github.com/rzbill/logpager/internal/storage/pebble"
)

// AppendRecord is a single event to append. A zero TimestampMs is replaced
// with the current time.
type AppendRecord struct {
	TimestampMs int64
	Source      string
	Message     string
}

// Record is a stored event.
type Record struct {
	Seq         uint64
	TimestampMs int64
	Source      string
	Message     string
}

// Stream is an append-only sequence of records for one group/stream pair.
type Stream struct {
	store  *Store
	group  string
	name   string
	prefix []byte

	mu       sync.Mutex
	lastSeq  uint64
	meta     *StreamMeta
	notifyCh chan struct{}
}

func openStream(s *Store, group, name string) (*Stream, error) {
	st := &Stream{
		store:    s,
		group:    group,
		name:     name,
		prefix:   keyLogPrefix(group, name),
		notifyCh: make(chan struct{}),
	}
	meta, err := s.db.Get(keyLogMeta(group, name))
	switch {
	case err == nil && len(meta) >= 8:
		st.lastSeq = binary.BigEndian.Uint64(meta[:8])
	case err != nil && !errors.Is(err, pebblestore.ErrNotFound):
		return nil, err
	}
	return st, nil
}

// Group returns the owning group name.
func (st *Stream) Group() string { return st.group }

// Name returns the stream name.
func (st *Stream) Name() string { return st.name }

// LastSeq returns the highest sequence assigned so far (0 when empty).
func (st *Stream) LastSeq() uint64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lastSeq
}

// Meta loads the stream metadata, or ErrNotFound if nothing was appended yet.
func (st *Stream) Meta() (StreamMeta, error) {
	b, err := st.store.db.Get(keyStream(st.group, st.name))
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return StreamMeta{}, fmt.Errorf("%w: stream %s/%s", ErrNotFound, st.group, st.name)
		}
		return StreamMeta{}, err
	}
	var m StreamMeta
	if err := json.Unmarshal(b, &m); err != nil {
		return StreamMeta{}, err
	}
	return m, nil
}

// Append writes recs as one atomic batch and returns the assigned sequences.
// The group and stream records are created on first use.
func (st *Stream) Append(ctx context.Context, recs []AppendRecord) ([]uint64, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	if _, err := st.store.EnsureGroup(st.group); err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	meta := st.meta
	if meta == nil {
		m, err := st.Meta()
		switch {
		case err == nil:
		case errors.Is(err, ErrNotFound):
			m = StreamMeta{Group: st.group, Name: st.name, CreatedAtMs: time.Now().UnixMilli()}
		default:
			return nil, err
		}
		meta = &m
	}

	db := st.store.db
	b := db.NewBatch()
	defer b.Close()

	next := st.lastSeq
	nowMs := time.Now().UnixMilli()
	seqs := make([]uint64, len(recs))
	updated := *meta
	for i, r := range recs {
		next++
		ts := r.TimestampMs
		if ts == 0 {
			ts = nowMs
		}
		val := EncodeRecord(encodeHeader(ts, r.Source), []byte(r.Message))
		if err := b.Set(keyLogEntry(st.group, st.name, next), val, nil); err != nil {
			return nil, err
		}
		if ts > updated.LastEventMs {
			updated.LastEventMs = ts
		}
		seqs[i] = next
	}
	updated.LastSeq = next

	var seqMeta [8]byte
	binary.BigEndian.PutUint64(seqMeta[:], next)
	if err := b.Set(keyLogMeta(st.group, st.name), seqMeta[:], nil); err != nil {
		return nil, err
	}
	mb, err := json.Marshal(updated)
	if err != nil {
		return nil, err
	}
	if err := b.Set(keyStream(st.group, st.name), mb, nil); err != nil {
		return nil, err
	}

	if err := db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	st.lastSeq = next
	st.meta = &updated
	close(st.notifyCh)
	st.notifyCh = make(chan struct{})
	return seqs, nil
}
