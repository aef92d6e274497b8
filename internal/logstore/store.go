package logstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/rzbill/logpager/internal/storage/pebble"
	"github.com/rzbill/logpager/pkg/log"
)

var (
	// ErrNotFound is returned for unknown groups or streams.
	ErrNotFound = errors.New("logstore: not found")
	// ErrInvalidName is returned when a group or stream name fails validation.
	ErrInvalidName = errors.New("logstore: invalid name")
)

const defaultNamePattern = `^[A-Za-z0-9._\-]{1,256}$`

// GroupMeta describes a log group.
type GroupMeta struct {
	Name        string `json:"name"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

// StreamMeta describes a stream inside a group. LastEventMs and LastSeq are
// refreshed on every append.
type StreamMeta struct {
	Group       string `json:"group"`
	Name        string `json:"name"`
	CreatedAtMs int64  `json:"createdAtMs"`
	LastEventMs int64  `json:"lastEventMs"`
	LastSeq     uint64 `json:"lastSeq"`
}

// Options configures a Store.
type Options struct {
	// NameRegex validates group and stream names. '/' is always rejected.
	NameRegex string
	Logger    log.Logger
}

// Store is the log-group/stream catalogue on top of a Pebble database.
type Store struct {
	db     *pebblestore.DB
	names  *regexp.Regexp
	logger log.Logger

	mu      sync.Mutex
	streams map[string]*Stream
}

// Open wraps db. It does not take ownership of db.
func Open(db *pebblestore.DB, opts Options) (*Store, error) {
	if db == nil {
		return nil, errors.New("logstore: nil db")
	}
	pattern := opts.NameRegex
	if pattern == "" {
		pattern = defaultNamePattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("logstore: name regex: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Store{
		db:      db,
		names:   re,
		logger:  logger.WithComponent("logstore"),
		streams: make(map[string]*Stream),
	}, nil
}

// ValidateName reports whether name may be used for a group or stream.
func (s *Store) ValidateName(name string) error {
	if name == "" || !s.names.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for i := 0; i < len(name); i++ {
		if name[i] == sep {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}

// EnsureGroup creates the group record if absent and returns the stored meta.
func (s *Store) EnsureGroup(name string) (GroupMeta, error) {
	if err := s.ValidateName(name); err != nil {
		return GroupMeta{}, err
	}
	if m, err := s.Group(name); err == nil {
		return m, nil
	}
	m := GroupMeta{Name: name, CreatedAtMs: time.Now().UnixMilli()}
	b, err := json.Marshal(m)
	if err != nil {
		return GroupMeta{}, err
	}
	if err := s.db.Set(keyGroup(name), b); err != nil {
		return GroupMeta{}, err
	}
	s.logger.Info("group created", log.Str("group", name))
	return m, nil
}

// Group loads a group's metadata.
func (s *Store) Group(name string) (GroupMeta, error) {
	b, err := s.db.Get(keyGroup(name))
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return GroupMeta{}, fmt.Errorf("%w: group %q", ErrNotFound, name)
		}
		return GroupMeta{}, err
	}
	var m GroupMeta
	if err := json.Unmarshal(b, &m); err != nil {
		return GroupMeta{}, fmt.Errorf("logstore: group %q: %w", name, err)
	}
	return m, nil
}

// ListGroups returns up to limit groups with names strictly after `after`, in
// name order. more reports whether further groups exist.
func (s *Store) ListGroups(after string, limit int) (groups []GroupMeta, more bool, err error) {
	err = s.scanMeta(groupPrefix, after, limit, func(v []byte) error {
		var m GroupMeta
		if err := json.Unmarshal(v, &m); err != nil {
			return err
		}
		groups = append(groups, m)
		return nil
	}, &more)
	return groups, more, err
}

// ListStreams returns up to limit streams of group with names strictly after
// `after`. Unknown groups yield ErrNotFound.
func (s *Store) ListStreams(group, after string, limit int) (streams []StreamMeta, more bool, err error) {
	if _, err := s.Group(group); err != nil {
		return nil, false, err
	}
	err = s.scanMeta(keyStreamsOf(group), after, limit, func(v []byte) error {
		var m StreamMeta
		if err := json.Unmarshal(v, &m); err != nil {
			return err
		}
		streams = append(streams, m)
		return nil
	}, &more)
	return streams, more, err
}

func (s *Store) scanMeta(prefix []byte, after string, limit int, fn func([]byte) error, more *bool) error {
	if limit <= 0 {
		limit = 100
	}
	lower := prefix
	if after != "" {
		lower = append(append([]byte(nil), prefix...), after...)
		lower = append(lower, 0x00)
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return err
	}
	defer iter.Close()
	n := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		if n == limit {
			*more = true
			return nil
		}
		if err := fn(iter.Value()); err != nil {
			return fmt.Errorf("logstore: decode %q: %w", iter.Key(), err)
		}
		n++
	}
	return nil
}

// Stream returns the handle for group/stream. Handles are shared, so append
// notifications reach every waiter. The stream need not exist yet; it is
// created by its first Append.
func (s *Store) Stream(group, stream string) (*Stream, error) {
	if err := s.ValidateName(group); err != nil {
		return nil, err
	}
	if err := s.ValidateName(stream); err != nil {
		return nil, err
	}
	key := group + string(sep) + stream

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.streams[key]; ok {
		return st, nil
	}
	st, err := openStream(s, group, stream)
	if err != nil {
		return nil, err
	}
	s.streams[key] = st
	return st, nil
}

// ExistingStream is like Stream but fails with ErrNotFound when the stream
// has never been written.
func (s *Store) ExistingStream(group, stream string) (*Stream, error) {
	st, err := s.Stream(group, stream)
	if err != nil {
		return nil, err
	}
	if _, err := st.Meta(); err != nil {
		return nil, err
	}
	return st, nil
}
