package ocr

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the OCR engine.
type Metrics struct {
	RecognitionLatency *prometheus.HistogramVec
	WorkerWait         prometheus.Histogram
	IdleWorkers        prometheus.Gauge
	FieldOutcome       *prometheus.CounterVec
}

// NewMetrics registers the OCR metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RecognitionLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idintake_ocr_recognition_duration_seconds",
			Help:    "Duration of single Tesseract recognitions by profile and outcome",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"profile", "outcome"}),
		WorkerWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "idintake_ocr_worker_wait_seconds",
			Help:    "Time spent waiting for an idle OCR worker",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
		}),
		IdleWorkers: f.NewGauge(prometheus.GaugeOpts{
			Name: "idintake_ocr_idle_workers",
			Help: "OCR workers currently idle",
		}),
		FieldOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idintake_ocr_field_outcomes_total",
			Help: "Field OCR outcomes by field: recognized, empty or failed",
		}, []string{"field", "outcome"}),
	}
}

func (m *Metrics) ObserveRecognition(profile, outcome string, d time.Duration) {
	if m != nil {
		m.RecognitionLatency.WithLabelValues(profile, outcome).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveWait(d time.Duration) {
	if m != nil {
		m.WorkerWait.Observe(d.Seconds())
	}
}

func (m *Metrics) SetIdleWorkers(n int) {
	if m != nil {
		m.IdleWorkers.Set(float64(n))
	}
}

func (m *Metrics) IncrementFieldOutcome(field, outcome string) {
	if m != nil {
		m.FieldOutcome.WithLabelValues(field, outcome).Inc()
	}
}
