// Package metrics provides Prometheus instrumentation shared across
// the service: business-level counters for the analysis pipeline and
// gauges mirroring database/sql pool statistics.
package metrics

import (
	"context"
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/trace"
)

// BusinessMetrics tracks what the pipeline actually does, as opposed
// to how the process is doing.
type BusinessMetrics struct {
	AnalysesTotal           *prometheus.CounterVec
	AnalysisDuration        *prometheus.HistogramVec
	SimplificationFallbacks prometheus.Counter
	TermsSurfacedTotal      prometheus.Counter
	ProfileUpdatesTotal     prometheus.Counter
}

// NewBusinessMetrics registers and returns the pipeline metrics for
// the given service namespace.
func NewBusinessMetrics(service string) *BusinessMetrics {
	return &BusinessMetrics{
		AnalysesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "analyses_total",
			Help:      "Completed analyses by method and status",
		}, []string{"method", "status"}),
		AnalysisDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end analysis latency",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"status"}),
		SimplificationFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: service,
			Name:      "simplification_fallbacks_total",
			Help:      "Simplifications that fell back to the rule-based path",
		}),
		TermsSurfacedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: service,
			Name:      "terms_surfaced_total",
			Help:      "Lexicon terms surfaced to users across all analyses",
		}),
		ProfileUpdatesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: service,
			Name:      "profile_updates_total",
			Help:      "Committed user profile updates",
		}),
	}
}

// ObserveDurationWithExemplar records a duration observation, attaching
// the current trace id as an exemplar when the context carries a
// sampled span.
func (m *BusinessMetrics) ObserveDurationWithExemplar(ctx context.Context, vec *prometheus.HistogramVec, seconds float64, status string) {
	obs := vec.WithLabelValues(status)
	sc := trace.SpanContextFromContext(ctx)
	if eo, ok := obs.(prometheus.ExemplarObserver); ok && sc.IsSampled() {
		eo.ObserveWithExemplar(seconds, prometheus.Labels{"trace_id": sc.TraceID().String()})
		return
	}
	obs.Observe(seconds)
}

// DatabaseMetrics mirrors sql.DBStats into Prometheus gauges.
type DatabaseMetrics struct {
	OpenConnections prometheus.Gauge
	InUse           prometheus.Gauge
	Idle            prometheus.Gauge
	WaitCount       prometheus.Gauge
	WaitDuration    prometheus.Gauge
}

// NewDatabaseMetrics registers the connection pool gauges for the
// given service namespace.
func NewDatabaseMetrics(service string) *DatabaseMetrics {
	return &DatabaseMetrics{
		OpenConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "db_open_connections",
			Help:      "Open connections in the pool",
		}),
		InUse: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "db_in_use_connections",
			Help:      "Connections currently in use",
		}),
		Idle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "db_idle_connections",
			Help:      "Idle connections in the pool",
		}),
		WaitCount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "db_wait_count_total",
			Help:      "Total connections waited for",
		}),
		WaitDuration: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "db_wait_duration_seconds_total",
			Help:      "Total time blocked waiting for a connection",
		}),
	}
}

// UpdateDBStats refreshes the gauges from the live pool.
func (m *DatabaseMetrics) UpdateDBStats(db *sql.DB) {
	stats := db.Stats()
	m.OpenConnections.Set(float64(stats.OpenConnections))
	m.InUse.Set(float64(stats.InUse))
	m.Idle.Set(float64(stats.Idle))
	m.WaitCount.Set(float64(stats.WaitCount))
	m.WaitDuration.Set(stats.WaitDuration.Seconds())
}
