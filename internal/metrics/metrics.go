// Package metrics exposes Prometheus instrumentation for consultations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aidoctor"

// Metrics groups the consultation collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	inFlight  prometheus.Gauge
	stages    *prometheus.HistogramVec
	fallbacks *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consultations_total",
			Help:      "Consultations processed, by result.",
		}, []string{"result"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consultations_in_flight",
			Help:      "Consultations currently being processed.",
		}),
		stages: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage", "outcome"}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Times a stage substituted its fallback value.",
		}, []string{"stage"}),
	}
}

// Begin marks a consultation in flight and returns a func that records its
// result.
func (m *Metrics) Begin() func(result string) {
	if m == nil {
		return func(string) {}
	}
	m.inFlight.Inc()
	return func(result string) {
		m.inFlight.Dec()
		m.requests.WithLabelValues(result).Inc()
	}
}

// ObserveStage records how long a stage took and whether it succeeded.
func (m *Metrics) ObserveStage(stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.stages.WithLabelValues(stage, outcome).Observe(d.Seconds())
}

// Fallback counts a fallback substitution for stage.
func (m *Metrics) Fallback(stage string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(stage).Inc()
}
