// SPDX-License-Identifier: MPL-2.0

package lifecycle

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the lifecycle collectors. A nil *Metrics records nothing.
type Metrics struct {
	Active      prometheus.Gauge
	Outcomes    *prometheus.CounterVec
	PhaseErrors *prometheus.CounterVec
	Unloads     prometheus.Counter
	Faults      prometheus.Counter
}

// NewMetrics creates the lifecycle collectors and registers them with reg
// (skipped when reg is nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "modhost",
			Name:      "units_active",
			Help:      "Units currently active.",
		}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modhost",
			Name:      "unit_load_outcomes_total",
			Help:      "Final load status of every unit submitted in a batch.",
		}, []string{"status"}),
		PhaseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modhost",
			Name:      "unit_phase_errors_total",
			Help:      "Lifecycle hooks that returned an error or panicked, by phase.",
		}, []string{"phase"}),
		Unloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modhost",
			Name:      "unit_unloads_total",
			Help:      "Units torn down.",
		}),
		Faults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modhost",
			Name:      "transformation_faults_total",
			Help:      "Batches aborted by a transformation fault.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Active, m.Outcomes, m.PhaseErrors, m.Unloads, m.Faults)
	}
	return m
}

func (m *Metrics) setActive(n int) {
	if m != nil {
		m.Active.Set(float64(n))
	}
}

func (m *Metrics) outcome(status string) {
	if m != nil {
		m.Outcomes.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) phaseError(p Phase) {
	if m != nil {
		m.PhaseErrors.WithLabelValues(string(p)).Inc()
	}
}

func (m *Metrics) unloaded() {
	if m != nil {
		m.Unloads.Inc()
	}
}

func (m *Metrics) fault() {
	if m != nil {
		m.Faults.Inc()
	}
}
