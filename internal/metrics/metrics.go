// Package metrics holds the Prometheus collectors for attempt processing.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	actions   *prometheus.CounterVec
	finished  *prometheus.CounterVec
	fractions prometheus.Histogram
	qtVars    prometheus.Counter
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew registers the collectors with reg and panics on a duplicate registration.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qtdeferred",
			Subsystem: "attempt",
			Name:      "actions_total",
			Help:      "Processed attempt actions by behaviour, action and outcome.",
		}, []string{"behaviour", "action", "outcome"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qtdeferred",
			Subsystem: "attempt",
			Name:      "finished_total",
			Help:      "Attempts finished, by resulting state.",
		}, []string{"state"}),
		fractions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "qtdeferred",
			Subsystem: "attempt",
			Name:      "fraction",
			Help:      "Fractions awarded when finishing attempts.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		qtVars: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qtdeferred",
			Subsystem: "attempt",
			Name:      "qt_vars_total",
			Help:      "Extra qt vars stored from grading results.",
		}),
	}
	reg.MustRegister(m.actions, m.finished, m.fractions, m.qtVars)
	return m
}

func (m *Metrics) ObserveAction(behaviour, action, outcome string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(behaviour, action, outcome).Inc()
}

// ObserveFinish records a kept finishing step.
func (m *Metrics) ObserveFinish(state string, fraction *float64, qtVars int) {
	if m == nil {
		return
	}
	m.finished.WithLabelValues(state).Inc()
	if fraction != nil {
		m.fractions.Observe(*fraction)
	}
	m.qtVars.Add(float64(qtVars))
}
