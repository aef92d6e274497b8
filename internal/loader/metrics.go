package loader

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the loader collectors. A nil *Metrics records nothing.
type Metrics struct {
	messages      *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	active        *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg. Collectors
// already registered by an earlier call are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logpager",
			Subsystem: "loader",
			Name:      "messages_total",
			Help:      "Handled control messages by kind and outcome",
		}, []string{"kind", "status"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "logpager",
			Subsystem: "loader",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of fetches issued by loader actors",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"op"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "logpager",
			Subsystem: "loader",
			Name:      "active_actors",
			Help:      "Actors that have not been disposed",
		}, []string{"type"}),
	}
	if reg != nil {
		m.messages = register(reg, m.messages)
		m.fetchDuration = register(reg, m.fetchDuration)
		m.active = register(reg, m.active)
	}
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) observeStatus(msg Kind, kind StatusKind) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(msg.String(), kind.String()).Inc()
}

func (m *Metrics) observeFetch(op string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) actorStarted(typ string) {
	if m == nil {
		return
	}
	m.active.WithLabelValues(typ).Inc()
}

func (m *Metrics) actorStopped(typ string) {
	if m == nil {
		return
	}
	m.active.WithLabelValues(typ).Dec()
}
