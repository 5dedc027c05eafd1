package collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts collector outcomes
type Metrics struct {
	Instruments *prometheus.CounterVec
	Rows        *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
}

// NewMetrics registers the collector metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Instruments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "valuepool",
			Subsystem: "collector",
			Name:      "instruments_total",
			Help:      "Instruments processed by the collector, by job kind and outcome.",
		}, []string{"kind", "state"}),
		Rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "valuepool",
			Subsystem: "collector",
			Name:      "rows_saved_total",
			Help:      "Daily bars written, including filled calendar days.",
		}, []string{"kind"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "valuepool",
			Subsystem: "collector",
			Name:      "fetch_duration_seconds",
			Help:      "Time to fetch and store one instrument.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.Instruments, m.Rows, m.Duration)
	}
	return m
}
