package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "diarist"

// Metrics holds the application's Prometheus collectors on a private registry,
// so several instances (tests) never collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	turnsTotal           *prometheus.CounterVec
	turnDuration         *prometheus.HistogramVec
	toolCallsTotal       *prometheus.CounterVec
	recordsPersisted     *prometheus.CounterVec
	storeWriteFailures   *prometheus.CounterVec
	malformedReplayTotal prometheus.Counter
	activeStreams        prometheus.Gauge
}

// NewMetrics registers every collector plus the Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Model turns by provider and outcome.",
		}, []string{"provider", "outcome"}),
		turnDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time from the first model request to the end of the stream.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"provider"}),
		toolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool executions by tool and result.",
		}, []string{"tool", "result"}),
		recordsPersisted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_persisted_total",
			Help:      "Message records written, by content type.",
		}, []string{"type"}),
		storeWriteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_write_failures_total",
			Help:      "Message records that could not be written, by content type.",
		}, []string{"type"}),
		malformedReplayTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replay_malformed_records_total",
			Help:      "Stored records replayed as a placeholder because they could not be decoded.",
		}),
		activeStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Chat streams currently open.",
		}),
	}
}

// Registry exposes the registry for HTTP middleware recorders.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format. Mount it at the configured metrics path.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// StreamOpened / StreamClosed track open SSE and websocket turns.
func (m *Metrics) StreamOpened() { m.activeStreams.Inc() }
func (m *Metrics) StreamClosed() { m.activeStreams.Dec() }
