package watcher

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "subscription"

// Metrics exposes Subscription contract activity as Prometheus metrics.
type Metrics struct {
	events       *prometheus.CounterVec
	replayed     prometheus.Counter
	decodeErrors prometheus.Counter
	active       prometheus.Gauge
	overdue      prometheus.Gauge
}

// NewMetrics creates Metrics and registers them in reg. Collectors already
// registered under the same names are reused.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	var (
		m   Metrics
		err error
	)

	m.events, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "events_total",
		Help:      "Number of processed contract notifications by name.",
	}, []string{"event"}))
	if err != nil {
		return nil, err
	}

	m.replayed, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "replayed_events_total",
		Help:      "Number of received notifications that were already stored.",
	}))
	if err != nil {
		return nil, err
	}

	m.decodeErrors, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "decode_errors_total",
		Help:      "Number of contract notifications that could not be decoded.",
	}))
	if err != nil {
		return nil, err
	}

	m.active, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_subscribers",
		Help:      "Number of active subscribers.",
	}))
	if err != nil {
		return nil, err
	}

	m.overdue, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "overdue_subscribers",
		Help:      "Number of active subscribers whose payment is due.",
	}))
	if err != nil {
		return nil, err
	}

	return &m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

func (m *Metrics) observeEvent(k Kind) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(string(k)).Inc()
}

func (m *Metrics) observeReplay() {
	if m == nil {
		return
	}
	m.replayed.Inc()
}

func (m *Metrics) observeDecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

func (m *Metrics) setSubscribers(active, overdue int) {
	if m == nil {
		return
	}
	m.active.Set(float64(active))
	m.overdue.Set(float64(overdue))
}
