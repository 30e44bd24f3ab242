package pipeline

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for pipeline runs.
type Metrics struct {
	StageLatency *prometheus.HistogramVec
	Verdicts     *prometheus.CounterVec
	Failures     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idintake_pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		Verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idintake_pipeline_verdicts_total",
			Help: "Policy verdicts produced by server-side pipeline runs",
		}, []string{"valid"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idintake_pipeline_stage_failures_total",
			Help: "Stage failures, including degraded stages",
		}, []string{"stage"}),
	}
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementVerdict(valid bool) {
	if m != nil {
		m.Verdicts.WithLabelValues(strconv.FormatBool(valid)).Inc()
	}
}

func (m *Metrics) IncrementFailure(stage string) {
	if m != nil {
		m.Failures.WithLabelValues(stage).Inc()
	}
}
