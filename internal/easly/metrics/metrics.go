// Package metrics exposes Prometheus collectors for the assistant pipeline.
// Collectors live in a private registry so tests and several servers in one
// process do not collide on the default registerer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopeasly/easly/internal/easly/llm"
)

const namespace = "easly"

// Metrics holds the service collectors.
type Metrics struct {
	registry *prometheus.Registry

	Requests         *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	Rules            *prometheus.CounterVec
	Actions          *prometheus.CounterVec
	ToolCalls        *prometheus.CounterVec
	ProviderFailures *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	RateLimited      prometheus.Counter
}

// New registers the collectors, plus the Go runtime and process collectors,
// in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Assistant requests by the path that answered them.",
		}, []string{"source"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Assistant request latency by answering path.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		Rules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intent_rule_matches_total",
			Help:      "Deterministic rule matches by rule name.",
		}, []string{"rule"}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Executed actions by type and result.",
		}, []string{"type", "result"}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_tool_calls_total",
			Help:      "Agent tool calls by tool and outcome.",
		}, []string{"tool", "outcome"}),
		ProviderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_provider_failures_total",
			Help:      "Failed model calls by provider and reason.",
		}, []string{"provider", "reason"}),
		ProviderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_provider_latency_seconds",
			Help:      "Successful model call latency by provider.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 9),
		}, []string{"provider"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests, m.RequestDuration, m.Rules, m.Actions, m.ToolCalls,
		m.ProviderFailures, m.ProviderLatency, m.RateLimited,
	)
	return m
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one answered request.
func (m *Metrics) ObserveRequest(source string, d time.Duration) {
	m.Requests.WithLabelValues(source).Inc()
	m.RequestDuration.WithLabelValues(source).Observe(d.Seconds())
}

// RuleMatched counts a deterministic rule match.
func (m *Metrics) RuleMatched(rule string) { m.Rules.WithLabelValues(rule).Inc() }

// ActionExecuted counts an executed action.
func (m *Metrics) ActionExecuted(actionType string, success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	m.Actions.WithLabelValues(actionType, result).Inc()
}

// ToolCalled counts an agent tool call.
func (m *Metrics) ToolCalled(tool, outcome string) { m.ToolCalls.WithLabelValues(tool, outcome).Inc() }

// ProviderFailed counts a failed provider attempt.
func (m *Metrics) ProviderFailed(a llm.Attempt) {
	m.ProviderFailures.WithLabelValues(a.Provider, string(a.Reason)).Inc()
}

// ProviderSucceeded records the latency of a successful provider call.
func (m *Metrics) ProviderSucceeded(provider string, d time.Duration) {
	m.ProviderLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// Limited counts a rate-limited request.
func (m *Metrics) Limited(string) { m.RateLimited.Inc() }
