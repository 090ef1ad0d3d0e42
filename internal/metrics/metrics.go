// Package metrics exposes upload pipeline activity to Prometheus.
package metrics

import (
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/breaker"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/prometheus/client_golang/prometheus"
)

type PrometheusMetrics struct {
	uploadsTotal    *prometheus.CounterVec
	uploadDuration  *prometheus.HistogramVec
	uploadSizeBytes *prometheus.HistogramVec
	inProgress      prometheus.Gauge
	breakerState    prometheus.Gauge
}

// compile-time check
var _ port.PipelineMetrics = (*PrometheusMetrics)(nil)

// New builds the pipeline collectors under namespace and registers them with reg.
// It panics when a collector is already registered.
func New(namespace string, reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		uploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Upload attempts by media kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		uploadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_duration_seconds",
				Help:      "Duration of one upload attempt, fetch included.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		uploadSizeBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_size_bytes",
				Help:      "Size of stored objects.",
				// 1KB to 100MB
				Buckets: prometheus.ExponentialBuckets(1024, 10, 6),
			},
			[]string{"kind"},
		),
		inProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uploads_in_progress",
			Help:      "Upload attempts currently running.",
		}),
		breakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Object store circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}),
	}

	reg.MustRegister(m.uploadsTotal, m.uploadDuration, m.uploadSizeBytes, m.inProgress, m.breakerState)
	return m
}

func (m *PrometheusMetrics) RecordUpload(kind, outcome string, duration time.Duration, sizeBytes int64) {
	m.uploadsTotal.WithLabelValues(kind, outcome).Inc()
	m.uploadDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if outcome == port.OutcomeCompleted && sizeBytes > 0 {
		m.uploadSizeBytes.WithLabelValues(kind).Observe(float64(sizeBytes))
	}
}

func (m *PrometheusMetrics) IncInProgress() { m.inProgress.Inc() }
func (m *PrometheusMetrics) DecInProgress() { m.inProgress.Dec() }

func (m *PrometheusMetrics) SetBreakerState(state breaker.State) {
	m.breakerState.Set(float64(state))
}

// Noop discards everything. Used when metrics are disabled and in tests.
type Noop struct{}

var _ port.PipelineMetrics = Noop{}

func (Noop) RecordUpload(string, string, time.Duration, int64) {}
func (Noop) IncInProgress()                                     {}
func (Noop) DecInProgress()                                     {}
func (Noop) SetBreakerState(breaker.State)                      {}
