package flow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus-compatible metrics for executor monitoring.
//
// Metrics exposed (all namespaced with "flowgraph_"):
//
//   - inflight_firings (gauge): node firings currently dispatched to the pool
//   - queue_depth (gauge): values waiting in port queues
//   - firing_latency_ms (histogram, labels: node_id, status): firing duration
//   - firings_total (counter, labels: node_id, status): completed firings
//   - deadlocks_total (counter): runs that ended in soft deadlock
//
// Create one Metrics per registry and share it across executors:
//
//	registry := prometheus.NewRegistry()
//	metrics := flow.NewMetrics(registry)
//	exec := flow.NewExecutor(graph, flow.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type Metrics struct {
	inflight      prometheus.Gauge
	queueDepth    prometheus.Gauge
	firingLatency *prometheus.HistogramVec
	firings       *prometheus.CounterVec
	deadlocks     prometheus.Counter
}

// NewMetrics creates and registers the executor metrics with the given
// registry. Pass prometheus.DefaultRegisterer (or nil) for the global
// registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowgraph",
			Name:      "inflight_firings",
			Help:      "Number of node firings currently dispatched to the worker pool",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowgraph",
			Name:      "queue_depth",
			Help:      "Total number of values waiting in port queues",
		}),
		firingLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowgraph",
			Name:      "firing_latency_ms",
			Help:      "Node firing duration in milliseconds, from the start of Execute to its return",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"node_id", "status"}),
		firings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowgraph",
			Name:      "firings_total",
			Help:      "Completed node firings by outcome",
		}, []string{"node_id", "status"}),
		deadlocks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "flowgraph",
			Name:      "deadlocks_total",
			Help:      "Runs that terminated via idle-with-pending-data deadlock detection",
		}),
	}
}

func (m *Metrics) observeFiring(nodeID string, latency time.Duration, status Status) {
	if m == nil {
		return
	}
	m.firingLatency.WithLabelValues(nodeID, string(status)).
		Observe(float64(latency.Milliseconds()))
	m.firings.WithLabelValues(nodeID, string(status)).Inc()
}

func (m *Metrics) updateGauges(inflight, queueDepth int) {
	if m == nil {
		return
	}
	m.inflight.Set(float64(inflight))
	m.queueDepth.Set(float64(queueDepth))
}

func (m *Metrics) recordDeadlock() {
	if m == nil {
		return
	}
	m.deadlocks.Inc()
}
