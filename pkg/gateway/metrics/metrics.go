package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxgate-io/voxgate/pkg/core"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	registry *prometheus.Registry

	// Turn metrics
	TurnsTotal   *prometheus.CounterVec
	TurnDuration prometheus.Histogram

	// Stage metrics
	StageErrorsTotal *prometheus.CounterVec
	FallbacksTotal   *prometheus.CounterVec

	// Synthesis metrics
	SynthesisCharsTotal prometheus.Counter
}

// NewMetrics creates a Metrics instance with its own registry. sessionTotals
// feeds the session gauges and may be nil in tests.
func NewMetrics(namespace string, sessionTotals func() (sessions, messages int)) *Metrics {
	if namespace == "" {
		namespace = "voxgate"
	}

	registry := prometheus.NewRegistry()

	turnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of conversational turns",
		},
		[]string{"outcome"},
	)

	turnDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "End-to-end turn duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	stageErrorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Total number of pipeline stage failures",
		},
		[]string{"error_type"},
	)

	fallbacksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Total number of turns answered with a fallback message",
		},
		[]string{"error_type"},
	)

	synthesisCharsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_chars_total",
			Help:      "Total characters sent to speech synthesis",
		},
	)

	registry.MustRegister(
		turnsTotal,
		turnDuration,
		stageErrorsTotal,
		fallbacksTotal,
		synthesisCharsTotal,
	)

	if sessionTotals != nil {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Namespace: namespace,
					Name:      "sessions_active",
					Help:      "Number of sessions with at least one message",
				},
				func() float64 {
					sessions, _ := sessionTotals()
					return float64(sessions)
				},
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Namespace: namespace,
					Name:      "messages_stored",
					Help:      "Total messages held across all sessions",
				},
				func() float64 {
					_, messages := sessionTotals()
					return float64(messages)
				},
			),
		)
	}

	return &Metrics{
		registry:            registry,
		TurnsTotal:          turnsTotal,
		TurnDuration:        turnDuration,
		StageErrorsTotal:    stageErrorsTotal,
		FallbacksTotal:      fallbacksTotal,
		SynthesisCharsTotal: synthesisCharsTotal,
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTurn records a completed turn.
func (m *Metrics) RecordTurn(success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.TurnsTotal.WithLabelValues(outcome).Inc()
	m.TurnDuration.Observe(duration.Seconds())
}

// RecordStageError records a pipeline stage failure.
func (m *Metrics) RecordStageError(kind core.ErrorKind) {
	m.StageErrorsTotal.WithLabelValues(string(kind)).Inc()
}

// RecordFallback records a turn answered with a fallback message.
func (m *Metrics) RecordFallback(kind core.ErrorKind) {
	m.FallbacksTotal.WithLabelValues(string(kind)).Inc()
}

// RecordSynthesis records characters sent to the synthesizer.
func (m *Metrics) RecordSynthesis(chars int) {
	if chars > 0 {
		m.SynthesisCharsTotal.Add(float64(chars))
	}
}
