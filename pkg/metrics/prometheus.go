package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	mutations   *prometheus.CounterVec
	persists    *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	persistDur  prometheus.Histogram
	latency     *prometheus.HistogramVec
}

var (
	defaultOnce     sync.Once
	defaultRecorder *Recorder
)

// New returns the process-wide Prometheus recorder. Collectors are registered
// once with the default registry, so repeated calls share them.
func New() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewWithRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRecorder
}

// NewWithRegistry creates a recorder registered against reg (tests use a fresh registry).
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradeinfo_store_mutations_total",
				Help: "Total number of watchlist store mutations by operation",
			},
			[]string{"op", "changed"},
		),
		persists: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradeinfo_persist_writes_total",
				Help: "Document writes to the key-value store by result",
			},
			[]string{"result"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradeinfo_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		persistDur: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tradeinfo_persist_duration_seconds",
				Help:    "Duration of document writes in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradeinfo_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordMutation records one store mutation; changed is false for no-ops.
func (r *Recorder) RecordMutation(op string, changed bool) {
	c := "false"
	if changed {
		c = "true"
	}
	r.mutations.WithLabelValues(op, c).Inc()
}

// RecordPersist records a document write and its duration.
func (r *Recorder) RecordPersist(result string, seconds float64) {
	r.persists.WithLabelValues(result).Inc()
	r.persistDur.Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
