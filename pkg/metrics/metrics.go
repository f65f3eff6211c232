// Package metrics exposes Prometheus counters for stream operations. Runs
// are short-lived, so the registry is exported through the textfile format
// rather than scraped.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OpEncode  = "encode"
	OpDecode  = "decode"
	OpInspect = "inspect"

	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for stream operations
type Metrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	recordsTotal      *prometheus.CounterVec
	bytesTotal        *prometheus.CounterVec
	failuresTotal     *prometheus.CounterVec
}

// NewMetrics creates all metrics on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intblob_operations_total",
				Help: "Total number of stream operations",
			},
			[]string{"operation", "status"},
		),

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intblob_operation_duration_seconds",
				Help:    "Stream operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		recordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intblob_records_total",
				Help: "Total number of records encoded or decoded",
			},
			[]string{"operation"},
		),

		bytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intblob_bytes_total",
				Help: "Total number of blob bytes written or read",
			},
			[]string{"operation"},
		),

		failuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intblob_failures_total",
				Help: "Total number of failed operations by failure kind",
			},
			[]string{"operation", "kind"},
		),
	}
}

// RecordSuccess records a completed operation
func (m *Metrics) RecordSuccess(op string, records, bytes int64, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(op, statusSuccess).Inc()
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
	m.recordsTotal.WithLabelValues(op).Add(float64(records))
	m.bytesTotal.WithLabelValues(op).Add(float64(bytes))
}

// RecordFailure records a failed operation. Records decoded before the
// failure still count towards the record total.
func (m *Metrics) RecordFailure(op, kind string, records int64, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(op, statusError).Inc()
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
	m.failuresTotal.WithLabelValues(op, kind).Inc()
	if records > 0 {
		m.recordsTotal.WithLabelValues(op).Add(float64(records))
	}
}

// Registry returns the registry holding all metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current values in the Prometheus text format,
// suitable for the node_exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
