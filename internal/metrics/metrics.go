// Package metrics holds the service's prometheus collectors.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CompletionCalls    *prometheus.CounterVec
	CompletionDuration *prometheus.HistogramVec
	CompletionRetries  *prometheus.CounterVec
	ChainRuns          *prometheus.CounterVec
	ChainsActive       *prometheus.GaugeVec
	Superseded         *prometheus.CounterVec
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CompletionCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autosocio_completion_calls_total",
				Help: "Total number of completion calls by call name and outcome",
			},
			[]string{"call", "outcome"},
		),
		CompletionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autosocio_completion_duration_seconds",
				Help:    "Duration of completion calls in seconds",
				Buckets: []float64{.25, .5, 1, 2, 4, 8, 16, 32},
			},
			[]string{"call"},
		),
		CompletionRetries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autosocio_completion_retries_total",
				Help: "Total number of completion retries after temporary transport errors",
			},
			[]string{"call"},
		),
		ChainRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autosocio_chain_runs_total",
				Help: "Total number of chain runs by chain and outcome",
			},
			[]string{"chain", "outcome"},
		),
		ChainsActive: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "autosocio_chains_active",
				Help: "Number of chains currently running",
			},
			[]string{"chain"},
		),
		Superseded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autosocio_superseded_total",
				Help: "Total number of results discarded because a newer request replaced them",
			},
			[]string{"slot_kind"},
		),
	}
}

// ObserveCompletion records one completion call.
func (m *Metrics) ObserveCompletion(call, outcome string, d time.Duration) {
	m.CompletionCalls.WithLabelValues(call, outcome).Inc()
	m.CompletionDuration.WithLabelValues(call).Observe(d.Seconds())
}

// ObserveRetry counts a retried completion call.
func (m *Metrics) ObserveRetry(call string) {
	m.CompletionRetries.WithLabelValues(call).Inc()
}

// StartChain marks a chain as running and returns a func that records its
// outcome.
func (m *Metrics) StartChain(chain string) func(outcome string) {
	m.ChainsActive.WithLabelValues(chain).Inc()
	return func(outcome string) {
		m.ChainsActive.WithLabelValues(chain).Dec()
		m.ChainRuns.WithLabelValues(chain, outcome).Inc()
	}
}

// ObserveSuperseded counts a discarded result. Slots are "<kind>:<key>"; only
// the kind is used as a label.
func (m *Metrics) ObserveSuperseded(slot string) {
	kind, _, _ := strings.Cut(slot, ":")
	m.Superseded.WithLabelValues(kind).Inc()
}
