// Package metrics provides Prometheus metrics for registry lookups and pipeline runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline run results
const (
	ResultDocument = "document"
	ResultRegistry = "registry"
	ResultFailed   = "failed"
)

// Metrics contains the mapper's collectors
type Metrics struct {
	RegistryLookupsTotal          *prometheus.CounterVec   // Lookups by strategy and outcome
	RegistryFailuresTotal         *prometheus.CounterVec   // Failed lookups by error category
	RegistryLookupDurationSeconds *prometheus.HistogramVec // Lookup latency by strategy

	PipelineRunsTotal *prometheus.CounterVec // Runs by result (document, registry, failed)
}

// New creates a Metrics instance registered on reg. A nil reg uses the
// default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RegistryLookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pdfexcel_registry_lookups_total",
			Help: "Total number of company registry lookups by strategy and outcome",
		}, []string{"strategy", "outcome"}),

		RegistryFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pdfexcel_registry_failures_total",
			Help: "Total number of failed company registry lookups by error category",
		}, []string{"category"}),

		RegistryLookupDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pdfexcel_registry_lookup_duration_seconds",
			Help:    "Duration of company registry lookups by strategy",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"strategy"}),

		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pdfexcel_pipeline_runs_total",
			Help: "Total number of pipeline runs by result",
		}, []string{"result"}),
	}
}

// ObserveLookup records one registry strategy attempt.
func (m *Metrics) ObserveLookup(strategy, status, category string, elapsed time.Duration) {
	m.RegistryLookupsTotal.WithLabelValues(strategy, status).Inc()
	m.RegistryLookupDurationSeconds.WithLabelValues(strategy).Observe(elapsed.Seconds())
	if category != "" {
		m.RegistryFailuresTotal.WithLabelValues(category).Inc()
	}
}

// ObserveRun records a finished pipeline run.
func (m *Metrics) ObserveRun(result string) {
	m.PipelineRunsTotal.WithLabelValues(result).Inc()
}
