// Package metrics provides Prometheus instrumentation for the summarizer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal counts provider attempts by outcome ("success" or an error kind).
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summarize_attempts_total",
			Help: "Total number of provider attempts by outcome.",
		},
		[]string{"provider", "outcome"},
	)

	// AttemptLatency tracks per-attempt latency in seconds.
	AttemptLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "summarize_latency_seconds",
			Help:    "Provider attempt latency in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	// TokensTotal tracks tokens reported by providers.
	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summarize_tokens_total",
			Help: "Total number of tokens reported by providers.",
		},
		[]string{"provider"},
	)

	// RequestsTotal tracks summarization requests by final status.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summarize_requests_total",
			Help: "Total number of summarization requests by status.",
		},
		[]string{"status"}, // "success", "all_failed", "unconfigured", "invalid", "cancelled"
	)

	// ProviderHealth is 1 when the last health check succeeded, 0 otherwise.
	ProviderHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "provider_health",
			Help: "Last observed provider health: 1=healthy, 0=not healthy.",
		},
		[]string{"provider"},
	)

	// ActiveRequests tracks the number of in-flight summarizations.
	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_requests",
			Help: "Number of currently in-flight summarization requests.",
		},
	)
)

// Recorder is the narrow view the orchestrator and aggregator write to.
type Recorder interface {
	Attempt(provider, outcome string, latency time.Duration, tokens int64)
	Request(status string)
	Health(provider string, healthy bool)
	InFlight(delta int)
}

// Prometheus records into the package-level collectors.
type Prometheus struct{}

var _ Recorder = Prometheus{}

func (Prometheus) Attempt(provider, outcome string, latency time.Duration, tokens int64) {
	AttemptsTotal.WithLabelValues(provider, outcome).Inc()
	AttemptLatency.WithLabelValues(provider).Observe(latency.Seconds())
	if tokens > 0 {
		TokensTotal.WithLabelValues(provider).Add(float64(tokens))
	}
}

func (Prometheus) Request(status string) {
	RequestsTotal.WithLabelValues(status).Inc()
}

func (Prometheus) Health(provider string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	ProviderHealth.WithLabelValues(provider).Set(v)
}

func (Prometheus) InFlight(delta int) {
	ActiveRequests.Add(float64(delta))
}

// Nop discards everything.
type Nop struct{}

func (Nop) Attempt(string, string, time.Duration, int64) {}
func (Nop) Request(string)                               {}
func (Nop) Health(string, bool)                          {}
func (Nop) InFlight(int)                                 {}
