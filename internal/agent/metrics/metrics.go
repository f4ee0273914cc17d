package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for agent gateway calls.
type Metrics struct {
	Requests          *prometheus.CounterVec
	RequestDurationMs *prometheus.HistogramVec
	Failures          *prometheus.CounterVec
	BreakerOpens      *prometheus.CounterVec
}

// New registers and returns agent gateway metrics collectors. Labels carry
// the agent role (issuer, holder, verifier) and the operation name.
func New() *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credon_agent_requests_total",
			Help: "Total number of requests sent to credential agents",
		}, []string{"role", "operation"}),
		RequestDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "credon_agent_request_duration_ms",
			Help:    "Agent request latency in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"role", "operation"}),
		Failures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credon_agent_failures_total",
			Help: "Total number of failed agent requests by error code",
		}, []string{"role", "operation", "code"}),
		BreakerOpens: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credon_agent_breaker_opens_total",
			Help: "Total number of circuit breaker open transitions per agent",
		}, []string{"role"}),
	}
}
