package loader

import (
	"github.com/rzbill/logpager/pkg/log"
)

// DefaultEmptyText is shown by the model when a load yields no rows.
const DefaultEmptyText = "No events"

type options struct {
	logger     log.Logger
	metrics    *Metrics
	onStatus   func(Status)
	inboxSize  int
	emptyText  string
	exhaustive bool
}

// Option configures an Actor or ListActor.
type Option func(*options)

func defaultOptions() options {
	return options{
		logger:    log.NewNopLogger(),
		emptyText: DefaultEmptyText,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger. Actors add component, actor_id and stream fields.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records message outcomes and fetch latency into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// OnStatus registers an observer called from the actor goroutine once per
// handled message. It should return quickly.
func OnStatus(fn func(Status)) Option {
	return func(o *options) { o.onStatus = fn }
}

// WithInboxSize bounds the inbox. Zero or negative means unbounded.
func WithInboxSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.inboxSize = n
		}
	}
}

// WithEmptyText overrides DefaultEmptyText.
func WithEmptyText(text string) Option {
	return func(o *options) {
		if text != "" {
			o.emptyText = text
		}
	}
}

// WithExhaustive makes ListActor.LoadInitial follow continuation tokens until
// the enumeration is exhausted.
func WithExhaustive() Option {
	return func(o *options) { o.exhaustive = true }
}
