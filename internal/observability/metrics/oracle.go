package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sme"

// OracleMetrics tracks the optional language-model collaborators: how often
// they were bypassed and the state of their circuit breakers.
type OracleMetrics struct {
	service      string
	fallbacks    *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

func NewOracleMetrics(registerer prometheus.Registerer, service string) *OracleMetrics {
	fallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "fallback_total",
			Help:      "Times the rule-based fallback replaced a model answer.",
		},
		[]string{"service", "component", "reason"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per dependency (0 closed, 1 half-open, 2 open).",
		},
		[]string{"service", "dependency"},
	)
	registerer.MustRegister(fallbacks, breakerState)

	return &OracleMetrics{
		service:      service,
		fallbacks:    fallbacks,
		breakerState: breakerState,
	}
}

// MappingFallback matches reconcile.FallbackHook.
func (m *OracleMetrics) MappingFallback(kind, reason string) {
	m.fallbacks.WithLabelValues(m.service, "mapping:"+kind, reason).Inc()
}

// NarrativeFallback matches narrative.FallbackHook.
func (m *OracleMetrics) NarrativeFallback(reason string) {
	m.fallbacks.WithLabelValues(m.service, "narrative", reason).Inc()
}

// BreakerStateChange matches resilience.Config.OnStateChange.
func (m *OracleMetrics) BreakerStateChange(dependency, _, to string) {
	value := 0.0
	switch to {
	case "half-open":
		value = 1
	case "open":
		value = 2
	}
	m.breakerState.WithLabelValues(m.service, dependency).Set(value)
}
