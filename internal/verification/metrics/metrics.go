package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module.
type Metrics struct {
	// Gate decisions by source and result
	GateOutcome *prometheus.CounterVec

	// Submissions by path (fast, slow) and result
	SubmitOutcome *prometheus.CounterVec

	SubmitLatency *prometheus.HistogramVec

	FaceScore prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		GateOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idintake_verification_gate_outcomes_total",
			Help: "Server re-validation gate decisions by source and result",
		}, []string{"source", "result"}),
		SubmitOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idintake_verification_submissions_total",
			Help: "Verification submissions by path and result",
		}, []string{"path", "result"}),
		SubmitLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idintake_verification_submit_duration_seconds",
			Help:    "Duration of verification submissions by path",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"path"}),
		FaceScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "idintake_verification_face_similarity",
			Help:    "Face similarity scores seen at the gate",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}
}

func (m *Metrics) IncrementGate(source, result string) {
	if m != nil {
		m.GateOutcome.WithLabelValues(source, result).Inc()
	}
}

func (m *Metrics) IncrementSubmit(path, result string) {
	if m != nil {
		m.SubmitOutcome.WithLabelValues(path, result).Inc()
	}
}

func (m *Metrics) ObserveSubmit(path string, d time.Duration) {
	if m != nil {
		m.SubmitLatency.WithLabelValues(path).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveFaceScore(score float64) {
	if m != nil {
		m.FaceScore.Observe(score)
	}
}
