// Package metrics exposes Prometheus collectors for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Cycle outcome label values.
const (
	OutcomeSkipped = "skipped"
	OutcomePosted  = "posted"
	OutcomeFailed  = "failed"
)

// Metrics holds all engine collectors.
type Metrics struct {
	CyclesTotal     *prometheus.CounterVec
	PublishAttempts *prometheus.CounterVec
	RenderDuration  prometheus.Histogram
	EligibleDeals   prometheus.Histogram
}

// New creates and registers the engine collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "social_engine",
			Name:      "cycles_total",
			Help:      "Completed cycles by outcome.",
		}, []string{"outcome"}),
		PublishAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "social_engine",
			Name:      "publish_attempts_total",
			Help:      "Per-platform publish attempts by result.",
		}, []string{"platform", "result"}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "social_engine",
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering flyers and captions.",
			Buckets:   prometheus.DefBuckets,
		}),
		EligibleDeals: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "social_engine",
			Name:      "eligible_deals",
			Help:      "Eligible candidate count per selecting cycle.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		}),
	}

	reg.MustRegister(m.CyclesTotal, m.PublishAttempts, m.RenderDuration, m.EligibleDeals)
	return m
}

// NewNop returns collectors registered on a throwaway registry. Useful for
// tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
