package fetch

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Query outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// Metrics are the fetcher's prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	queries       *prometheus.CounterVec
	items         *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	invalidations *prometheus.CounterVec
	discarded     *prometheus.CounterVec
}

// NewMetrics creates the collectors, call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaychat",
			Subsystem: "fetch",
			Name:      "queries_total",
			Help:      "Page queries issued by collection and outcome",
		}, []string{"collection", "outcome"}),

		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaychat",
			Subsystem: "fetch",
			Name:      "items_total",
			Help:      "Validated items returned in pages by collection",
		}, []string{"collection"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "relaychat",
			Subsystem: "fetch",
			Name:      "query_duration_seconds",
			Help:      "Page query latency by collection",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 3, 5},
		}, []string{"collection"}),

		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaychat",
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Cached collection results dropped by collection",
		}, []string{"collection"}),

		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaychat",
			Subsystem: "cache",
			Name:      "discarded_total",
			Help:      "Fetch results discarded because their key went stale in flight",
		}, []string{"collection"}),
	}
}

// Register adds every collector to reg. Collectors that are already registered
// are not an error.
func (m *Metrics) Register(reg prometheus.Registerer) (err error) {
	for _, c := range []prometheus.Collector{
		m.queries, m.items, m.duration, m.invalidations, m.discarded,
	} {
		if err = reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return
		}
	}
	return nil
}

func (m *Metrics) query(collection, outcome string, took time.Duration, items int) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(collection, outcome).Inc()
	m.duration.WithLabelValues(collection).Observe(took.Seconds())
	m.items.WithLabelValues(collection).Add(float64(items))
}

func (m *Metrics) invalidated(collection string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(collection).Inc()
}

func (m *Metrics) stale(collection string) {
	if m == nil {
		return
	}
	m.discarded.WithLabelValues(collection).Inc()
}
