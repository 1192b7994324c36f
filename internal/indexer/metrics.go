package indexer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the rebuild collectors, labelled by index. A nil *Metrics
// records nothing.
type Metrics struct {
	documents *prometheus.CounterVec
	flushes   *prometheus.CounterVec
	flushTime *prometheus.HistogramVec
	failures  *prometheus.CounterVec
}

// NewMetrics creates the rebuild collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "search_rebuild_documents_total",
			Help: "Documents written by index rebuilds",
		}, []string{"index"}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "search_rebuild_flushes_total",
			Help: "Bulk requests sent by index rebuilds",
		}, []string{"index"}),
		flushTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "search_rebuild_flush_duration_seconds",
			Help:    "Duration of rebuild bulk requests in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"index"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "search_rebuild_failures_total",
			Help: "Index rebuilds that aborted with an error",
		}, []string{"index"}),
	}
	reg.MustRegister(m.documents, m.flushes, m.flushTime, m.failures)
	return m
}

func (m *Metrics) flushed(index string, docs int, d time.Duration) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(index).Add(float64(docs))
	m.flushes.WithLabelValues(index).Inc()
	m.flushTime.WithLabelValues(index).Observe(d.Seconds())
}

func (m *Metrics) failed(index string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(index).Inc()
}
