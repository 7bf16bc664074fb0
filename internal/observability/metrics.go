// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "perpscanner"

// Metrics holds the scanner's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Scan loop
	CyclesTotal    *prometheus.CounterVec
	CycleDuration  prometheus.Histogram
	SymbolFailures *prometheus.CounterVec
	TrackedSymbols prometheus.Gauge
	EngineState    prometheus.Gauge

	// Alerts
	AlertsGenerated *prometheus.CounterVec
	Deliveries      *prometheus.CounterVec
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycles_total",
			Help:      "Total number of scan cycles by outcome",
		}, []string{"outcome"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock duration of a scan cycle including dispatch",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		SymbolFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "symbol_failures_total",
			Help:      "Per-symbol processing failures by reason",
		}, []string{"reason"}),
		TrackedSymbols: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tracked_symbols",
			Help:      "Number of symbols held in the state store",
		}),
		EngineState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "state",
			Help:      "Engine state: 0 idle, 1 running, 2 sleeping, 3 stopped",
		}),

		AlertsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "generated_total",
			Help:      "Alerts produced by the detectors by kind",
		}, []string{"kind"}),
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "deliveries_total",
			Help:      "Message deliveries by destination kind and outcome",
		}, []string{"destination", "outcome"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordCycle records a finished cycle.
func (m *Metrics) RecordCycle(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(outcome).Inc()
	m.CycleDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordSymbolFailure(reason string) {
	if m == nil {
		return
	}
	m.SymbolFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordAlert(kind string) {
	if m == nil {
		return
	}
	m.AlertsGenerated.WithLabelValues(kind).Inc()
}

// RecordDelivery counts one send attempt. destination is "broadcast" or "subscriber".
func (m *Metrics) RecordDelivery(destination string, ok bool) {
	if m == nil {
		return
	}
	outcome := "delivered"
	if !ok {
		outcome = "failed"
	}
	m.Deliveries.WithLabelValues(destination, outcome).Inc()
}

func (m *Metrics) SetTrackedSymbols(n int) {
	if m == nil {
		return
	}
	m.TrackedSymbols.Set(float64(n))
}

func (m *Metrics) SetEngineState(state int) {
	if m == nil {
		return
	}
	m.EngineState.Set(float64(state))
}
