package observability

import (
	"context"
	"net/http"

	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "orchestra"

// Outcome label values of agent runs.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics records agent, routing and stream activity.
type Metrics struct {
	registry *prometheus.Registry

	agentRuns     *prometheus.CounterVec
	agentDuration *prometheus.HistogramVec
	routes        *prometheus.CounterVec
	activeStreams prometheus.Gauge
	requests      *prometheus.CounterVec
}

// NewMetrics creates the collectors on a dedicated registry, together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		agentRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_runs_total",
				Help:      "Total number of agent executions",
			},
			[]string{"agent", "outcome"},
		),
		agentDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "agent_duration_seconds",
				Help:      "Duration of agent executions",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"agent"},
		),
		routes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "routes_total",
				Help:      "Total number of edges taken",
			},
			[]string{"from", "to"},
		),
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Number of streaming responses in flight",
		}),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
	}
	m.registry.MustRegister(
		m.agentRuns,
		m.agentDuration,
		m.routes,
		m.activeStreams,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Hooks returns lifecycle hooks feeding the metrics.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			outcome := OutcomeOK
			if e.Err != "" {
				outcome = OutcomeError
			}
			m.agentRuns.WithLabelValues(string(e.AgentID), outcome).Inc()
			m.agentDuration.WithLabelValues(string(e.AgentID)).Observe(e.Duration.Seconds())
		},
		OnRoute: func(_ context.Context, e *domain.RouteEvent) {
			m.routes.WithLabelValues(string(e.From), string(e.To)).Inc()
		},
	}
}

// StreamStarted marks a stream in flight. Call the returned function when it ends.
func (m *Metrics) StreamStarted() func() {
	m.activeStreams.Inc()
	return m.activeStreams.Dec
}

// ObserveRequest counts an HTTP request by route pattern and status code.
func (m *Metrics) ObserveRequest(route, status string) {
	m.requests.WithLabelValues(route, status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
