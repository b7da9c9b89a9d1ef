// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector of the service in a private registry, so
// building it twice (tests) never panics on duplicate registration. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	httpDuration  *prometheus.HistogramVec
	visitOutcomes *prometheus.CounterVec
	callOutcomes  *prometheus.CounterVec
	importRows    *prometheus.CounterVec
	routesCreated *prometheus.CounterVec
	wsClients     prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "routedesk_http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		visitOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routedesk_visit_outcomes_total",
				Help: "Visit outcomes recorded, by resulting status.",
			},
			[]string{"status"},
		),
		callOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routedesk_call_outcomes_total",
				Help: "Calls logged, by result.",
			},
			[]string{"result"},
		),
		importRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routedesk_import_rows_total",
				Help: "CSV rows handled by the importer.",
			},
			[]string{"outcome"},
		),
		routesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routedesk_routes_created_total",
				Help: "Routes created, by kind.",
			},
			[]string{"kind"},
		),
		wsClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "routedesk_websocket_clients",
				Help: "Connected websocket clients.",
			},
		),
	}
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

func (m *Metrics) IncVisitOutcome(status string) {
	if m == nil {
		return
	}
	m.visitOutcomes.WithLabelValues(status).Inc()
}

func (m *Metrics) IncCallOutcome(result string) {
	if m == nil {
		return
	}
	m.callOutcomes.WithLabelValues(result).Inc()
}

// AddImportRows counts rows by outcome: created, existing or skipped.
func (m *Metrics) AddImportRows(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.importRows.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) IncRouteCreated(kind string) {
	if m == nil {
		return
	}
	m.routesCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetWebsocketClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}
