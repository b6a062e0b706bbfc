package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds per-engine step metrics in a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry
	steps    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics returns Metrics registered in a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aksgraph",
				Subsystem: "engine",
				Name:      "steps_total",
				Help:      "Total number of executed steps by operation, type and result",
			},
			[]string{"op", "type", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "aksgraph",
				Subsystem: "engine",
				Name:      "step_duration_seconds",
				Help:      "Duration of executed steps in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~27min
			},
			[]string{"op", "type"},
		),
	}
	m.registry.MustRegister(m.steps, m.duration)
	return m
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteToTextfile writes the metrics in text exposition format to path.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) record(op Op, typ string, err error, elapsed time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.steps.WithLabelValues(string(op), typ, result).Inc()
	m.duration.WithLabelValues(string(op), typ).Observe(elapsed.Seconds())
}
