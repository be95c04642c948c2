// Package metrics exposes Prometheus instrumentation for acquisition and classification.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics implements the acquisition engine's recorder and the classification hooks.
type Metrics struct {
	linesRead       prometheus.Counter
	samplesAccepted prometheus.Counter
	linesDropped    prometheus.Counter
	activeRuns      prometheus.Gauge
	runs            *prometheus.CounterVec
	runDuration     prometheus.Histogram
	classifications *prometheus.CounterVec
	classifyLatency prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		linesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mindtv_lines_read_total",
			Help: "Non-empty lines received from the device.",
		}),
		samplesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mindtv_samples_accepted_total",
			Help: "Lines that parsed into a sample and were buffered.",
		}),
		linesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mindtv_lines_dropped_total",
			Help: "Lines dropped because they failed validation.",
		}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mindtv_acquisition_active",
			Help: "Acquisition runs currently reading from a device.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mindtv_acquisition_runs_total",
			Help: "Finished acquisition runs by terminal state.",
		}, []string{"state"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mindtv_acquisition_duration_seconds",
			Help:    "Wall time of finished acquisition runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 180, 240, 300, 600},
		}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mindtv_classifications_total",
			Help: "Classification calls by result.",
		}, []string{"result"}),
		classifyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mindtv_classification_latency_seconds",
			Help:    "Time spent classifying one batch.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}

	reg.MustRegister(
		m.linesRead,
		m.samplesAccepted,
		m.linesDropped,
		m.activeRuns,
		m.runs,
		m.runDuration,
		m.classifications,
		m.classifyLatency,
	)
	return m
}

func (m *Metrics) LineRead() { m.linesRead.Inc() }
func (m *Metrics) SampleAccepted() { m.samplesAccepted.Inc() }
func (m *Metrics) LineDropped() { m.linesDropped.Inc() }
func (m *Metrics) RunStarted() { m.activeRuns.Inc() }

// RunFinished records a terminal state ("completed", "cancelled", "failed").
func (m *Metrics) RunFinished(state string, seconds float64) {
	m.activeRuns.Dec()
	m.runs.WithLabelValues(state).Inc()
	m.runDuration.Observe(seconds)
}

// Classified records one classification call.
func (m *Metrics) Classified(err error, seconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.classifications.WithLabelValues(result).Inc()
	m.classifyLatency.Observe(seconds)
}
