package loader

import "time"

// Token is an opaque pagination cursor issued by a fetcher. The empty token
// means "no token".
type Token string

// IsZero reports whether t is the empty token.
func (t Token) IsZero() bool { return t == "" }

// Entry is one retrieved log line.
type Entry struct {
	Timestamp time.Time
	Message   string
	Source    string
}

// TimeRange bounds a forward fetch. A zero End means "up to now".
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// ForwardRequest carries the optional parameters of a forward fetch.
type ForwardRequest struct {
	Token  Token
	Range  *TimeRange
	Filter string
}

// Page is one fetch result. Entries are in chronological order for both
// directions, so backward pages can be prepended as they are.
type Page struct {
	Entries      []Entry
	NextForward  Token
	NextBackward Token
}

// ListPage is one page of a forward-only enumeration. An empty Next means the
// enumeration is exhausted.
type ListPage[T any] struct {
	Items []T
	Next  Token
}
