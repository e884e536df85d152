package pool

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus instruments for a pool. One Metrics value can
// be shared by successive batches.
type Metrics struct {
	processed prometheus.Counter
	failures  prometheus.Counter
	inflight  prometheus.Gauge
	duration  prometheus.Histogram
}

// NewMetrics creates and registers the pool instruments under the given
// namespace and subsystem.
func NewMetrics(namespace, subsystem string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "items_processed_total",
			Help:      "Number of work items claimed and processed.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "item_failures_total",
			Help:      "Number of work items whose processing returned an error.",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "items_in_flight",
			Help:      "Number of work items currently being processed.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "item_duration_seconds",
			Help:      "Wall-clock time spent processing a single work item.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.processed, m.failures, m.inflight, m.duration)
	}
	return m
}
