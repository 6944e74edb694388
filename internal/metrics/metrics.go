// Package metrics provides Prometheus metrics for the publish pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	validations      *prometheus.CounterVec
	dispatches       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	sideSyncFailures prometheus.Counter
	registryLookups  *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		validations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "publishgate",
				Name:      "validations_total",
				Help:      "Total number of pre-publish validations",
			},
			[]string{"outcome"},
		),
		dispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "publishgate",
				Name:      "dispatch_total",
				Help:      "Total number of publish dispatch flows",
			},
			[]string{"environment", "outcome"},
		),
		dispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "publishgate",
				Name:      "dispatch_duration_seconds",
				Help:      "Duration of outbound publish calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"environment"},
		),
		sideSyncFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "publishgate",
				Name:      "side_sync_failures_total",
				Help:      "Total number of failed best-effort side tasks",
			},
		),
		registryLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "publishgate",
				Name:      "registry_lookups_total",
				Help:      "Identifier registry lookups by result",
			},
			[]string{"result"},
		),
	}
}

// RecordValidation counts one verdict.
func (m *Metrics) RecordValidation(canPublish bool) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if canPublish {
		outcome = "passed"
	}
	m.validations.WithLabelValues(outcome).Inc()
}

// RecordDispatch counts one dispatch flow outcome (published, rejected, failed).
func (m *Metrics) RecordDispatch(environment, outcome string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(environment, outcome).Inc()
}

// ObserveDispatchDuration records the duration of one outbound call.
func (m *Metrics) ObserveDispatchDuration(environment string, d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchDuration.WithLabelValues(environment).Observe(d.Seconds())
}

// RecordSideSyncFailure counts a failed detached task.
func (m *Metrics) RecordSideSyncFailure() {
	if m == nil {
		return
	}
	m.sideSyncFailures.Inc()
}

// RecordRegistryLookup counts a registry lookup by result (hit, miss, cache_error, error).
func (m *Metrics) RecordRegistryLookup(result string) {
	if m == nil {
		return
	}
	m.registryLookups.WithLabelValues(result).Inc()
}
