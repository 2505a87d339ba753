// Package metrics provides Prometheus metrics for imports, scoring and
// artifact uploads.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "matchmaker"

// Import row outcomes.
const (
	OutcomeImported            = "imported"
	OutcomeSkippedEmail        = "skipped_missing_email"
	OutcomeSkippedProvisioning = "skipped_provisioning"
	OutcomeFatal               = "fatal"
)

// Recorder holds the application metrics on a private registry. A nil
// Recorder discards every observation.
type Recorder struct {
	registry *prometheus.Registry

	importRows     *prometheus.CounterVec
	matchScore     prometheus.Histogram
	circuitChanges *prometheus.CounterVec
	uploads        *prometheus.CounterVec
}

// New creates a Recorder with Go runtime and process collectors attached.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	auto := promauto.With(reg)

	return &Recorder{
		registry: reg,
		importRows: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "Spreadsheet rows processed by the bulk importer, by outcome.",
		}, []string{"target", "outcome"}),
		matchScore: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_score",
			Help:      "Distribution of computed match scores (percent).",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		circuitChanges: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_transitions_total",
			Help:      "Circuit breaker state transitions.",
		}, []string{"to"}),
		uploads: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_uploads_total",
			Help:      "Classified spreadsheet uploads, by backend and result.",
		}, []string{"backend", "result"}),
	}
}

// ImportRow counts one processed row.
func (r *Recorder) ImportRow(target, outcome string) {
	if r == nil {
		return
	}
	r.importRows.WithLabelValues(target, outcome).Inc()
}

// ObserveScore records a computed match score.
func (r *Recorder) ObserveScore(score float64) {
	if r == nil {
		return
	}
	r.matchScore.Observe(score)
}

// CircuitTransition counts a breaker state change.
func (r *Recorder) CircuitTransition(to string) {
	if r == nil {
		return
	}
	r.circuitChanges.WithLabelValues(to).Inc()
}

// Upload counts an artifact upload attempt outcome.
func (r *Recorder) Upload(backend string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.uploads.WithLabelValues(backend, result).Inc()
}

// Registry exposes the underlying registry for tests and custom collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
