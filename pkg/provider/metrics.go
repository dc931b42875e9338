package provider

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts factory and handle lifecycle events. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	factoriesOpened *prometheus.CounterVec
	openFailures    *prometheus.CounterVec
	handlesCreated  *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		factoriesOpened: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlunit_factories_opened_total",
				Help: "Number of persistence unit factories opened",
			},
			[]string{"provider"},
		),
		openFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlunit_factory_open_failures_total",
				Help: "Number of failed attempts to open a persistence unit",
			},
			[]string{"unit"},
		),
		handlesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlunit_handles_created_total",
				Help: "Number of handles created from persistence unit factories",
			},
			[]string{"provider"},
		),
	}

	reg.MustRegister(m.factoriesOpened, m.openFailures, m.handlesCreated)
	return m
}

func (m *Metrics) factoryOpened(providerID string) {
	if m == nil {
		return
	}
	m.factoriesOpened.WithLabelValues(providerID).Inc()
}

func (m *Metrics) openFailed(unitName string) {
	if m == nil {
		return
	}
	m.openFailures.WithLabelValues(unitName).Inc()
}

func (m *Metrics) handleCreated(providerID string) {
	if m == nil {
		return
	}
	m.handlesCreated.WithLabelValues(providerID).Inc()
}
