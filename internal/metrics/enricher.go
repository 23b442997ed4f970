package metrics

import (
	"time"

	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	enricherResolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "enricher",
		Name:      "resolve_total",
		Help:      "Count of resolved keys by outcome.",
	}, []string{"backend", "outcome"})

	enricherResolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "enricher",
		Name:      "resolve_duration_seconds",
		Help:      "Duration of resolving a key, retries included.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"backend", "outcome"})

	enricherCheckpointTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "enricher",
		Name:      "checkpoint_total",
		Help:      "Count of checkpoint flushes to the progress store.",
	}, []string{"backend", "status"})

	enricherCheckpointSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "enricher",
		Name:      "checkpoint_size",
		Help:      "Number of rows per checkpoint flush.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1..2048
	}, []string{"backend"})

	enricherSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "enricher",
		Name:      "skipped_total",
		Help:      "Count of keys skipped because the progress store already had them.",
	}, []string{"backend"})
)

// Enricher tracks metrics for the batch engine.
type Enricher struct {
	backend model.Backend
}

// NewEnricher constructs an Enricher collector for backend.
func NewEnricher(backend model.Backend) *Enricher {
	if backend == "" {
		backend = "unknown"
	}
	return &Enricher{backend: backend}
}

// ObserveResolve records the outcome of one key.
func (m Enricher) ObserveResolve(result model.Result, started time.Time) {
	outcome := Outcome(result)
	enricherResolveTotal.WithLabelValues(string(m.backend), outcome).Inc()
	enricherResolveDuration.WithLabelValues(string(m.backend), outcome).Observe(time.Since(started).Seconds())
}

// ObserveCheckpoint records a flush of rows to the progress store.
func (m Enricher) ObserveCheckpoint(err error, rows int) {
	status := "success"
	if err != nil {
		status = "error"
	}
	enricherCheckpointTotal.WithLabelValues(string(m.backend), status).Inc()
	enricherCheckpointSize.WithLabelValues(string(m.backend)).Observe(float64(rows))
}

// ObserveSkipped records keys answered by an earlier run.
func (m Enricher) ObserveSkipped(n int) {
	enricherSkippedTotal.WithLabelValues(string(m.backend)).Add(float64(n))
}

// Outcome labels a result as confirmed, unconfirmed or failed.
func Outcome(result model.Result) string {
	switch {
	case result.Error != "":
		return "failed"
	case result.Confirmed():
		return "confirmed"
	default:
		return "unconfirmed"
	}
}
