package logstore

import (
	"github.com/cockroachdb/pebble"
)

// ReadOptions selects a window of records.
type ReadOptions struct {
	// From is the starting sequence. Forward reads include it; reverse reads
	// return only sequences strictly below it. Zero means the head (forward)
	// or the tail (reverse).
	From    uint64
	Limit   int
	Reverse bool
}

func (st *Stream) entryIter() (*pebble.Iterator, error) {
	low := keyLogEntry(st.group, st.name, 0)
	hi := keyLogEntry(st.group, st.name, ^uint64(0))
	return st.store.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
}

// Read returns up to Limit records (0 = unlimited). Reverse reads return
// records newest first. Corrupt records are skipped.
func (st *Stream) Read(opts ReadOptions) ([]Record, error) {
	iter, err := st.entryIter()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := make([]Record, 0, max(1, opts.Limit))
	full := func() bool { return opts.Limit > 0 && len(out) >= opts.Limit }

	var ok bool
	if opts.Reverse {
		if opts.From == 0 {
			ok = iter.Last()
		} else {
			// no fallback to Last: nothing precedes From
			ok = iter.SeekLT(keyLogEntry(st.group, st.name, opts.From))
		}
		for ; ok && !full(); ok = iter.Prev() {
			if rec, good := decodeEntry(seqFromKey(iter.Key()), iter.Value()); good {
				out = append(out, rec)
			}
		}
		return out, iter.Error()
	}

	if opts.From == 0 {
		ok = iter.First()
	} else {
		ok = iter.SeekGE(keyLogEntry(st.group, st.name, opts.From))
	}
	for ; ok && !full(); ok = iter.Next() {
		if rec, good := decodeEntry(seqFromKey(iter.Key()), iter.Value()); good {
			out = append(out, rec)
		}
	}
	return out, iter.Error()
}

// FindAt returns the sequence of the first record whose timestamp is at or
// after ms. found is false when every record is older; seq is then the next
// sequence to be assigned, so a forward read from it yields only new records.
func (st *Stream) FindAt(ms int64) (seq uint64, found bool, err error) {
	iter, err := st.entryIter()
	if err != nil {
		return 0, false, err
	}
	defer iter.Close()
	for ok := iter.First(); ok; ok = iter.Next() {
		rec, good := decodeEntry(seqFromKey(iter.Key()), iter.Value())
		if good && rec.TimestampMs >= ms {
			return rec.Seq, true, nil
		}
	}
	if err := iter.Error(); err != nil {
		return 0, false, err
	}
	return st.LastSeq() + 1, false, nil
}

// Stats summarises a stream's stored entries.
type Stats struct {
	FirstSeq uint64
	LastSeq  uint64
	Count    int
	Bytes    int64
}

// Stats scans the stream once.
func (st *Stream) Stats() (Stats, error) {
	iter, err := st.entryIter()
	if err != nil {
		return Stats{}, err
	}
	defer iter.Close()
	var s Stats
	for ok := iter.First(); ok; ok = iter.Next() {
		seq := seqFromKey(iter.Key())
		if s.Count == 0 {
			s.FirstSeq = seq
		}
		s.LastSeq = seq
		s.Count++
		s.Bytes += int64(len(iter.Value()))
	}
	return s, iter.Error()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
