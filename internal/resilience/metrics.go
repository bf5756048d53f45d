package resilience

import "github.com/prometheus/client_golang/prometheus"

// Collectors are registered on the default registry under the byteaxis
// namespace; target is the logical dependency, e.g. "document-store".
var (
	// BreakerState is 0 for closed, 1 for open and 2 for half-open.
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "byteaxis",
		Name:      "breaker_state",
		Help:      "Circuit breaker state per outbound target (0 closed, 1 open, 2 half-open).",
	}, []string{"target"})
	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "byteaxis",
		Name:      "breaker_transitions_total",
		Help:      "Circuit breaker state transitions per outbound target.",
	}, []string{"target", "from", "to"})
	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "byteaxis",
		Name:      "breaker_opened_total",
		Help:      "Times a circuit breaker opened per outbound target.",
	}, []string{"target"})
	// OutboundAttempts counts each HTTP try, including retries.
	OutboundAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "byteaxis",
		Name:      "outbound_http_attempts_total",
		Help:      "Outbound HTTP attempts per target and result.",
	}, []string{"target", "result"})
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal, OutboundAttempts)
}
