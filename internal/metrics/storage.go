// Package metrics exposes Prometheus collectors for the storage layer.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Storage implements pebblestore.MetricsHook.
type Storage struct {
	latency *prometheus.HistogramVec
	bytes   *prometheus.CounterVec
	ops     prometheus.Counter
}

// NewStorage registers storage collectors with reg. A nil reg leaves them
// unregistered, which is convenient in tests.
func NewStorage(reg prometheus.Registerer) *Storage {
	s := &Storage{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "logpager",
			Subsystem: "storage",
			Name:      "op_duration_seconds",
			Help:      "Latency of Pebble reads, writes and batch commits",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		}, []string{"op"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logpager",
			Subsystem: "storage",
			Name:      "bytes_total",
			Help:      "Bytes read, written and committed",
		}, []string{"op"}),
		ops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "logpager",
			Subsystem: "storage",
			Name:      "batch_ops_total",
			Help:      "Operations committed through batches",
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{s.latency, s.bytes, s.ops} {
			if err := reg.Register(c); err != nil {
				var are prometheus.AlreadyRegisteredError
				if !errors.As(err, &are) {
					panic(err)
				}
			}
		}
	}
	return s
}

func (s *Storage) ObserveWrite(elapsed time.Duration, bytes int) {
	s.observe("write", elapsed, bytes)
}

func (s *Storage) ObserveRead(elapsed time.Duration, bytes int) {
	s.observe("read", elapsed, bytes)
}

func (s *Storage) ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int) {
	s.observe("commit", elapsed, bytes)
	s.ops.Add(float64(numOps))
}

func (s *Storage) observe(op string, elapsed time.Duration, bytes int) {
	s.latency.WithLabelValues(op).Observe(elapsed.Seconds())
	s.bytes.WithLabelValues(op).Add(float64(bytes))
}
