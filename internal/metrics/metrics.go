package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"finbook/internal/schema"
)

// Metrics holds every Prometheus collector the service exposes. All
// collectors live in a private registry so tests can create throwaway
// instances without colliding on the default registry.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SchemaChangesTotal  *prometheus.CounterVec
	MigrationReplays    *prometheus.CounterVec

	registry *prometheus.Registry
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finbook_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finbook_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SchemaChangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finbook_schema_changes_total",
				Help: "Structural changes applied by schema sync",
			},
			[]string{"change"},
		),
		MigrationReplays: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finbook_migration_replays_total",
				Help: "Migration group replays by direction and outcome",
			},
			[]string{"direction", "outcome"},
		),
		registry: reg,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSync folds a finished sync pass into the change counters.
func (m *Metrics) RecordSync(sum schema.Summary) {
	m.SchemaChangesTotal.WithLabelValues("table_created").Add(float64(sum.TablesCreated))
	m.SchemaChangesTotal.WithLabelValues("column_added").Add(float64(sum.ColumnsAdded))
	m.SchemaChangesTotal.WithLabelValues("column_updated").Add(float64(sum.ColumnsUpdated))
	m.SchemaChangesTotal.WithLabelValues("column_removed").Add(float64(sum.ColumnsRemoved))
}

// RecordReplay counts one migration replay attempt.
func (m *Metrics) RecordReplay(direction string, succeeded bool) {
	outcome := "success"
	if !succeeded {
		outcome = "failure"
	}
	m.MigrationReplays.WithLabelValues(direction, outcome).Inc()
}
