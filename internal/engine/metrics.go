package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus instruments.
type Metrics struct {
	scoresTotal   *prometheus.CounterVec
	scoreErrors   *prometheus.CounterVec
	scoreDuration prometheus.Histogram
}

// NewMetrics registers the engine metrics on reg. Pass
// prometheus.DefaultRegisterer outside of tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		scoresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safepay_scores_total",
			Help: "Scoring decisions by verdict.",
		}, []string{"verdict"}),
		scoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safepay_score_errors_total",
			Help: "Scoring failures by pipeline stage.",
		}, []string{"stage"}),
		scoreDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "safepay_score_duration_seconds",
			Help:    "End-to-end scoring latency.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
}

func (m *Metrics) observeScore(isFraud bool, seconds float64) {
	if m == nil {
		return
	}
	verdict := "legitimate"
	if isFraud {
		verdict = "fraud"
	}
	m.scoresTotal.WithLabelValues(verdict).Inc()
	m.scoreDuration.Observe(seconds)
}

func (m *Metrics) observeError(stage string) {
	if m == nil {
		return
	}
	m.scoreErrors.WithLabelValues(stage).Inc()
}
