// Package metrics exposes the storage engine's Prometheus
// instrumentation: transaction commit/abort/conflict counts and
// durations, and pattern-lookup latency.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector holds every metric this engine emits. Construct one with
// NewCollector and register it with a prometheus.Registerer (or leave it
// unregistered in tests).
type Collector struct {
	CommitDuration   prometheus.Histogram
	AbortTotal       prometheus.Counter
	LookupDuration   prometheus.Histogram
	TxnConflictTotal prometheus.Counter
	QuadsTotal       prometheus.Gauge
}

// NewCollector builds a Collector with the engine's standard metric
// names and buckets, all under the "lsup" namespace.
func NewCollector() *Collector {
	return &Collector{
		CommitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lsup",
			Subsystem: "txn",
			Name:      "commit_duration_seconds",
			Help:      "Time spent flushing and committing a write transaction.",
			Buckets:   prometheus.DefBuckets,
		}),
		AbortTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lsup",
			Subsystem: "txn",
			Name:      "abort_total",
			Help:      "Number of write transactions aborted.",
		}),
		LookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lsup",
			Subsystem: "store",
			Name:      "lookup_duration_seconds",
			Help:      "Time spent selecting an index and materializing a pattern lookup's matches.",
			Buckets:   prometheus.DefBuckets,
		}),
		TxnConflictTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lsup",
			Subsystem: "txn",
			Name:      "conflict_total",
			Help:      "Number of non-blocking write-transaction acquisitions that found another writer active.",
		}),
		QuadsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lsup",
			Subsystem: "store",
			Name:      "quads_total",
			Help:      "Total number of quads currently stored, as of the last Stats call.",
		}),
	}
}

// Register adds every metric in c to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{
		c.CommitDuration, c.AbortTotal, c.LookupDuration, c.TxnConflictTotal, c.QuadsTotal,
	} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}
