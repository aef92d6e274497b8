package loader

import "time"

// Kind identifies a control message.
type Kind int

const (
	KindLoadInitial Kind = iota + 1
	KindLoadInitialRange
	KindLoadInitialFilter
	KindLoadForward
	KindLoadBackward
)

func (k Kind) String() string {
	switch k {
	case KindLoadInitial:
		return "load_initial"
	case KindLoadInitialRange:
		return "load_initial_range"
	case KindLoadInitialFilter:
		return "load_initial_filter"
	case KindLoadForward:
		return "load_forward"
	case KindLoadBackward:
		return "load_backward"
	default:
		return "unknown"
	}
}

// Message is a control message. The set is closed: only the types in this
// package implement it.
type Message interface {
	Kind() Kind
	isMessage()
}

// LoadInitial loads the first page from the head of the stream.
type LoadInitial struct{}

// LoadInitialRange loads the page starting at Anchor-Window and enables
// pagination in both directions from there.
type LoadInitialRange struct {
	Anchor time.Time
	Window time.Duration
}

// LoadInitialFilter loads the first page matching Expression.
type LoadInitialFilter struct {
	Expression string
}

// LoadForward appends the next page after the forward cursor.
type LoadForward struct{}

// LoadBackward prepends the page before the backward cursor.
type LoadBackward struct{}

func (LoadInitial) Kind() Kind       { return KindLoadInitial }
func (LoadInitialRange) Kind() Kind  { return KindLoadInitialRange }
func (LoadInitialFilter) Kind() Kind { return KindLoadInitialFilter }
func (LoadForward) Kind() Kind       { return KindLoadForward }
func (LoadBackward) Kind() Kind      { return KindLoadBackward }

func (LoadInitial) isMessage()       {}
func (LoadInitialRange) isMessage()  {}
func (LoadInitialFilter) isMessage() {}
func (LoadForward) isMessage()       {}
func (LoadBackward) isMessage()      {}
