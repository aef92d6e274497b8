package client

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rzbill/logpager/internal/loader"
)

// parseAt accepts unix milliseconds or RFC3339.
func parseAt(at string) (time.Time, error) {
	if ms, err := strconv.ParseInt(at, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q; expected ms or RFC3339", at)
}

// statusWaiter turns actor status reports into a channel the command can
// block on, one report per sent message.
type statusWaiter chan loader.Status

func newStatusWaiter() statusWaiter { return make(statusWaiter, 16) }

func (w statusWaiter) option() loader.Option {
	return loader.OnStatus(func(s loader.Status) { w <- s })
}

// sender is the part of Actor and ListActor the commands use.
type sender interface {
	Send(loader.Message) error
	Done() <-chan struct{}
}

// request sends msg and waits for its status report.
func (w statusWaiter) request(ctx context.Context, a sender, msg loader.Message) (loader.Status, error) {
	if err := a.Send(msg); err != nil {
		return loader.Status{}, err
	}
	select {
	case s := <-w:
		return s, nil
	case <-a.Done():
		// a self-disposing actor reports before exiting
		select {
		case s := <-w:
			return s, nil
		default:
			return loader.Status{}, loader.ErrInboxClosed
		}
	case <-ctx.Done():
		return loader.Status{}, ctx.Err()
	}
}
