package logstore

import (
	"context"
)

// WaitForAppend blocks until the next append to this stream or until ctx is
// done, in which case ctx.Err() is returned.
func (st *Stream) WaitForAppend(ctx context.Context) error {
	st.mu.Lock()
	ch := st.notifyCh
	st.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
