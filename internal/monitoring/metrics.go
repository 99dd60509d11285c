// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instrumentation for the campaign tracking
// pipeline. All methods are nil-safe so callers can wire metrics optionally.
type Metrics struct {
	pagesScanned         *prometheus.CounterVec
	fetchErrors          prometheus.Counter
	candidatesExtracted  prometheus.Counter
	runsTotal            *prometheus.CounterVec
	campaignsNew         prometheus.Counter
	campaignsUpdated     prometheus.Counter
	campaignsDeactivated prometheus.Counter
	runDuration          prometheus.Histogram

	registry *prometheus.Registry
}

// MetricsConfig configures the metric namespace.
type MetricsConfig struct {
	Namespace string `json:"namespace" yaml:"namespace"`
}

// NewMetrics creates and registers the pipeline metrics on a dedicated
// registry, keeping tests free of duplicate-registration panics.
func NewMetrics(config MetricsConfig) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "promoscout"
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		pagesScanned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "pages_scanned_total",
				Help:      "Pages fetched and scanned for campaign candidates",
			},
			[]string{"role"},
		),
		fetchErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "fetch_errors_total",
				Help:      "Source pages that could not be fetched",
			},
		),
		candidatesExtracted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "candidates_extracted_total",
				Help:      "Campaign candidates extracted across all scans",
			},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "runs_total",
				Help:      "Reconciliation runs by outcome",
			},
			[]string{"status"},
		),
		campaignsNew: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "campaigns_new_total",
				Help:      "Campaigns created by reconciliation",
			},
		),
		campaignsUpdated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "campaigns_updated_total",
				Help:      "Campaigns refreshed by reconciliation",
			},
		),
		campaignsDeactivated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "campaigns_deactivated_total",
				Help:      "Campaigns marked inactive by the staleness sweep",
			},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Name:      "run_duration_seconds",
				Help:      "End-to-end duration of a reconciliation run",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

// PageScanned records one fetched-and-scanned page for the given role.
func (m *Metrics) PageScanned(role string) {
	if m == nil {
		return
	}
	m.pagesScanned.WithLabelValues(role).Inc()
}

// FetchError records a page that could not be fetched.
func (m *Metrics) FetchError() {
	if m == nil {
		return
	}
	m.fetchErrors.Inc()
}

// CandidatesExtracted records n extracted candidates.
func (m *Metrics) CandidatesExtracted(n int) {
	if m == nil {
		return
	}
	m.candidatesExtracted.Add(float64(n))
}

// RunCompleted records a run outcome with its counters and duration.
func (m *Metrics) RunCompleted(status string, created, updated, deactivated int, seconds float64) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.campaignsNew.Add(float64(created))
	m.campaignsUpdated.Add(float64(updated))
	m.campaignsDeactivated.Add(float64(deactivated))
	m.runDuration.Observe(seconds)
}

// Handler returns the HTTP handler exposing the metrics registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
