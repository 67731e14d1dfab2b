package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "hauntsim"

// PrometheusMetrics maps Add onto a counter family and Store onto a gauge
// family, both labelled by key.
type PrometheusMetrics struct {
	registry *prometheus.Registry
	counters *prometheus.CounterVec
	gauges   *prometheus.GaugeVec

	mu     sync.Mutex
	totals map[string]uint64
}

// NewPrometheusMetrics registers the simulation metric families on a
// private registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	counters := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "events_total",
		Help:      "Simulation events by key.",
	}, []string{"key"})
	gauges := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "state",
		Help:      "Current simulation state values by key.",
	}, []string{"key"})
	registry.MustRegister(counters, gauges)
	return &PrometheusMetrics{
		registry: registry,
		counters: counters,
		gauges:   gauges,
		totals:   make(map[string]uint64),
	}
}

// Add implements Metrics.
func (m *PrometheusMetrics) Add(key string, delta uint64) {
	if m == nil || key == "" {
		return
	}
	m.counters.WithLabelValues(key).Add(float64(delta))
	m.mu.Lock()
	m.totals[key] += delta
	m.mu.Unlock()
}

// Store implements Metrics.
func (m *PrometheusMetrics) Store(key string, value uint64) {
	if m == nil || key == "" {
		return
	}
	m.gauges.WithLabelValues(key).Set(float64(value))
	m.mu.Lock()
	m.totals[key] = value
	m.mu.Unlock()
}

// Snapshot returns the latest value recorded for every key.
func (m *PrometheusMetrics) Snapshot() map[string]uint64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.totals))
	for k, v := range m.totals {
		out[k] = v
	}
	return out
}

// Registry exposes the underlying registry.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *PrometheusMetrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
