package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchFailed is wrapped by every *FetchError.
	ErrFetchFailed = errors.New("loader: fetch failed")
	// ErrInboxClosed is returned by Send after Dispose.
	ErrInboxClosed = errors.New("loader: inbox closed")
	// ErrUnsupportedOperation is reported for operations the actor or its
	// fetcher cannot perform, such as filtering on a non-filtering source.
	ErrUnsupportedOperation = errors.New("loader: unsupported operation")
	// ErrNoCursor is reported when paginating without a cursor for that
	// direction, typically before an initial load.
	ErrNoCursor = errors.New("loader: no cursor")
	// ErrInboxFull is returned by Send when a bounded inbox is at capacity.
	ErrInboxFull = errors.New("loader: inbox full")
)

// FetchError describes a failed fetch. errors.Is matches both ErrFetchFailed
// and the underlying error.
type FetchError struct {
	Op     string
	Stream string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Stream == "" {
		return fmt.Sprintf("loader: %s fetch failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("loader: %s fetch of %q failed: %v", e.Op, e.Stream, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{ErrFetchFailed, e.Err} }
