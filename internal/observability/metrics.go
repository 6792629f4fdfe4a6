package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds all Prometheus metrics for kassabok.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	Registry *prometheus.Registry

	filesImported     *prometheus.CounterVec
	verifications     *prometheus.CounterVec
	recordErrors      *prometheus.CounterVec
	unbalanced        prometheus.Counter
	dedupResults      *prometheus.CounterVec
	negativeAssets    prometheus.Counter
	operationDuration *prometheus.HistogramVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. A private registry keeps repeated construction
// in tests from panicking on duplicate collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		filesImported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kassabok_files_imported_total",
				Help: "Interchange files imported, by format and encoding.",
			},
			[]string{"format", "encoding"},
		),
		verifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kassabok_verifications_parsed_total",
				Help: "Journal entries recovered from imported files.",
			},
			[]string{"format"},
		),
		recordErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kassabok_record_errors_total",
				Help: "Skipped lines and dropped entries, by severity.",
			},
			[]string{"format", "severity"},
		),
		unbalanced: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kassabok_unbalanced_entries_total",
				Help: "Journal entries whose debit and credit differ by more than 0.01.",
			},
		),
		dedupResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kassabok_dedup_candidates_total",
				Help: "Dedup candidates by classification.",
			},
			[]string{"status"},
		),
		negativeAssets: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kassabok_negative_asset_fields_total",
				Help: "Asset fields derived with a negative value.",
			},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kassabok_operation_duration_seconds",
				Help:    "Duration of import, dedup and report operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordImport counts one imported file and what was recovered from it.
func (m *Metrics) RecordImport(format, encoding string, verifications, errors, warnings, unbalanced int) {
	m.filesImported.WithLabelValues(format, encoding).Inc()
	m.verifications.WithLabelValues(format).Add(float64(verifications))
	m.recordErrors.WithLabelValues(format, "error").Add(float64(errors))
	m.recordErrors.WithLabelValues(format, "warning").Add(float64(warnings))
	m.unbalanced.Add(float64(unbalanced))
}

// IncrDedup increments the dedup counter for a classification status.
func (m *Metrics) IncrDedup(status string) {
	m.dedupResults.WithLabelValues(status).Inc()
}

// AddNegativeAssets counts asset fields flagged negative by a derivation.
func (m *Metrics) AddNegativeAssets(n int) {
	m.negativeAssets.Add(float64(n))
}

// RecordDuration records the duration of an operation.
func (m *Metrics) RecordDuration(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// Push sends the registry to a Prometheus Pushgateway under job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics: %w", err)
	}

	return nil
}
