// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Apply outcomes used as the "outcome" label.
const (
	OutcomeSkipped   = "skipped"
	OutcomeUnchanged = "unchanged"
	OutcomeModified  = "modified"
	OutcomeFault     = "fault"
)

// Metrics are the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	Applies  *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Entries  prometheus.Gauge
	Expired  prometheus.Counter
}

// NewMetrics creates the pipeline collectors and registers them with reg
// (skipped when reg is nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Applies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modhost",
			Subsystem: "pipeline",
			Name:      "applies_total",
			Help:      "Classes passed through the transformation pipeline, by outcome.",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "modhost",
			Subsystem: "pipeline",
			Name:      "apply_duration_seconds",
			Help:      "Time spent transforming one class, by outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}, []string{"outcome"}),
		Entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "modhost",
			Subsystem: "pipeline",
			Name:      "entries",
			Help:      "Transformer entries currently registered.",
		}),
		Expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modhost",
			Subsystem: "pipeline",
			Name:      "entries_expired_total",
			Help:      "Entries removed after reporting themselves invalid.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Applies, m.Duration, m.Entries, m.Expired)
	}
	return m
}

func (m *Metrics) observe(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Applies.WithLabelValues(outcome).Inc()
	m.Duration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func (m *Metrics) setEntries(n int) {
	if m == nil {
		return
	}
	m.Entries.Set(float64(n))
}

func (m *Metrics) expired() {
	if m == nil {
		return
	}
	m.Expired.Inc()
}
