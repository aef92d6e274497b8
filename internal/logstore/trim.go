package logstore

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/logpager/pkg/log"
)

// TrimOlderThan deletes the oldest records with a timestamp below cutoffMs,
// stopping at the first record at or after the cutoff. The expired prefix is
// removed with a single range delete and then compacted. It returns the
// number of records deleted.
func (st *Stream) TrimOlderThan(ctx context.Context, cutoffMs int64) (int, error) {
	iter, err := st.entryIter()
	if err != nil {
		return 0, err
	}
	var from, to []byte
	deleted := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		if deleted%1024 == 0 {
			if err := ctx.Err(); err != nil {
				iter.Close()
				return 0, err
			}
		}
		rec, good := decodeEntry(seqFromKey(iter.Key()), iter.Value())
		if good && rec.TimestampMs >= cutoffMs {
			to = append([]byte(nil), iter.Key()...)
			break
		}
		// corrupt records are dropped along with expired ones
		if from == nil {
			from = append([]byte(nil), iter.Key()...)
		}
		deleted++
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, nil
	}
	if to == nil {
		to = append(keyLogEntry(st.group, st.name, ^uint64(0)), 0x00)
	}
	if err := st.store.db.DeleteRange(ctx, from, to); err != nil {
		return 0, err
	}
	if err := st.store.db.CompactRange(from, to); err != nil {
		st.store.logger.Warn("compact after trim", log.Str("group", st.group), log.Str("stream", st.name), log.Err(err))
	}
	return deleted, nil
}

// TrimOlderThan applies Stream.TrimOlderThan to every stream of every group.
func (s *Store) TrimOlderThan(ctx context.Context, cutoffMs int64) (int, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: streamPrefix, UpperBound: prefixEnd(streamPrefix)})
	if err != nil {
		return 0, err
	}
	var metas []StreamMeta
	for ok := iter.First(); ok; ok = iter.Next() {
		var m StreamMeta
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			continue
		}
		metas = append(metas, m)
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}

	total := 0
	for _, m := range metas {
		st, err := s.Stream(m.Group, m.Name)
		if err != nil {
			s.logger.Warn("skip trim", log.Str("group", m.Group), log.Str("stream", m.Name), log.Err(err))
			continue
		}
		n, err := st.TrimOlderThan(ctx, cutoffMs)
		total += n
		if err != nil {
			return total, err
		}
		if n > 0 {
			s.logger.Info("trimmed stream", log.Str("group", m.Group), log.Str("stream", m.Name), log.Int("deleted", n))
		}
	}
	return total, nil
}
