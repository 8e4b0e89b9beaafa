package resilience

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// call results recorded per breaker
const (
	resultSuccess  = "success"
	resultFailure  = "failure"
	resultRejected = "rejected"
)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_open",
		Help: "1 while the breaker rejects calls, 0.5 while probing, 0 when closed",
	}, []string{"breaker"})

	breakerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_calls_total",
		Help: "Calls made through a circuit breaker by result",
	}, []string{"breaker", "result"})

	breakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_transitions_total",
		Help: "Circuit breaker state transitions",
	}, []string{"breaker", "to"})

	anonymousBreakers atomic.Uint64
)

func nextBreakerName(base string) string {
	if base != "" {
		return base
	}
	return fmt.Sprintf("breaker-%d", anonymousBreakers.Add(1))
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 0.5
	default:
		return 0
	}
}

func recordBreakerState(name string, state gobreaker.State) {
	breakerState.WithLabelValues(name).Set(stateValue(state))
}

func recordBreakerStateChange(name string, _, to gobreaker.State) {
	breakerTransitions.WithLabelValues(name, to.String()).Inc()
	recordBreakerState(name, to)
}

func recordBreakerCall(name, result string) {
	breakerCalls.WithLabelValues(name, result).Inc()
}
