// Package metrics instruments the question pipeline with Prometheus.
// All methods are safe on a nil *PipelineMetrics, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ekaya_ask"

// LLM call labels.
const (
	CallTranslate = "translate"
	CallNarrate   = "narrate"
)

// Query result labels.
const (
	QuerySuccess  = "success"
	QueryEmpty    = "empty"
	QueryFailed   = "failed"
	QueryRejected = "rejected"
)

// Snapshot build labels.
const (
	SnapshotSuccess = "success"
	SnapshotEmpty   = "empty"
	SnapshotError   = "error"
)

// PipelineMetrics holds the pipeline's collectors.
type PipelineMetrics struct {
	questions      *prometheus.CounterVec
	llmDuration    *prometheus.HistogramVec
	queryDuration  *prometheus.HistogramVec
	snapshotBuilds *prometheus.CounterVec
	inFlight       prometheus.Gauge
}

// NewPipelineMetrics creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer in the server and a fresh registry in tests.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		questions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "questions_total",
				Help:      "Questions answered, by outcome",
			},
			[]string{"outcome"},
		),
		llmDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "Duration of text-generation calls in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
			},
			[]string{"call"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Duration of generated statement execution in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"result"},
		),
		snapshotBuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_builds_total",
				Help:      "Schema snapshot builds, by result",
			},
			[]string{"result"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "questions_in_flight",
				Help:      "Questions currently being processed",
			},
		),
	}

	reg.MustRegister(
		m.questions,
		m.llmDuration,
		m.queryDuration,
		m.snapshotBuilds,
		m.inFlight,
	)
	return m
}

// QuestionStarted marks a question in flight and returns the func that ends it.
func (m *PipelineMetrics) QuestionStarted() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}

// ObserveQuestion counts one answered question.
func (m *PipelineMetrics) ObserveQuestion(outcome string) {
	if m == nil {
		return
	}
	m.questions.WithLabelValues(outcome).Inc()
}

// ObserveLLMCall records how long a translate or narrate call took.
func (m *PipelineMetrics) ObserveLLMCall(call string, d time.Duration) {
	if m == nil {
		return
	}
	m.llmDuration.WithLabelValues(call).Observe(d.Seconds())
}

// ObserveQuery records a statement execution.
func (m *PipelineMetrics) ObserveQuery(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveSnapshotBuild counts one catalog build.
func (m *PipelineMetrics) ObserveSnapshotBuild(result string) {
	if m == nil {
		return
	}
	m.snapshotBuilds.WithLabelValues(result).Inc()
}
