// Package metrics exposes application metrics collectors.
package metrics

import (
	"errors"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "txlookup"

var (
	lookupRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lookup_client",
		Name:      "requests_total",
		Help:      "Count of lookup round trips by outcome.",
	}, []string{"operation", "backend", "status"})
	lookupRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "lookup_client",
		Name:      "request_duration_seconds",
		Help:      "Duration of lookup round trips.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30},
	}, []string{"operation", "backend", "status"})
)

// LookupClient tracks metrics for calls to a lookup backend.
type LookupClient struct {
	backend model.Backend
}

// NewLookupClient constructs a metrics collector for backend.
func NewLookupClient(backend model.Backend) *LookupClient {
	if backend == "" {
		backend = "unknown"
	}
	return &LookupClient{backend: backend}
}

// Observe records a single round trip. Failures are labeled with their kind.
func (m LookupClient) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
		var failure *model.Failure
		if errors.As(err, &failure) {
			status = failure.Kind.String()
		}
	}

	lookupRequestsTotal.WithLabelValues(operation, string(m.backend), status).Inc()
	lookupRequestDuration.WithLabelValues(operation, string(m.backend), status).Observe(time.Since(started).Seconds())
}
