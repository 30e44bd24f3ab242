package credential

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts registration ceremonies.
type Metrics struct {
	Ceremonies *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Ceremonies: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "idintake_credential_ceremonies_total",
			Help: "Credential registration ceremony steps by stage and outcome",
		}, []string{"stage", "outcome"}),
	}
}

func (m *Metrics) IncrementCeremony(stage, outcome string) {
	if m != nil {
		m.Ceremonies.WithLabelValues(stage, outcome).Inc()
	}
}
