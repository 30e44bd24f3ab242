package rectify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for rectification.
type Metrics struct {
	Duration prometheus.Histogram
	Outcome  *prometheus.CounterVec
}

// NewMetrics registers the rectifier metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "idintake_rectify_duration_seconds",
			Help:    "Duration of document rectification",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Outcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idintake_rectify_outcomes_total",
			Help: "Rectification stage outcomes: quad_found, no_quad, deskew_skipped, timeout, decode_fallback",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveDuration(d time.Duration) {
	if m != nil {
		m.Duration.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.Outcome.WithLabelValues(outcome).Inc()
	}
}
