package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for lifecycle operations.
type Metrics struct {
	ConnectionsHandled *prometheus.CounterVec
	ProofOutcomes      *prometheus.CounterVec
	ProofPollSeconds   prometheus.Histogram
	CredentialsIssued  prometheus.Counter
	Revocations        prometheus.Counter
	Reinstatements     prometheus.Counter
	HoldersPending     prometheus.Gauge
	CleanupDeleted     *prometheus.CounterVec
}

// New registers and returns lifecycle metrics collectors.
func New() *Metrics {
	return &Metrics{
		ConnectionsHandled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credon_connections_handled_total",
			Help: "Total connection events processed, by result",
		}, []string{"result"}),
		ProofOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credon_proof_outcomes_total",
			Help: "Total proof exchanges by final outcome",
		}, []string{"outcome"}),
		ProofPollSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "credon_proof_poll_seconds",
			Help:    "Seconds spent polling a proof exchange to a terminal state",
			Buckets: []float64{1, 3, 6, 12, 30, 60, 90, 120},
		}),
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credon_credentials_issued_total",
			Help: "Total credentials issued",
		}),
		Revocations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credon_revocations_total",
			Help: "Total credentials revoked",
		}),
		Reinstatements: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credon_reinstatements_total",
			Help: "Total credentials reinstated",
		}),
		HoldersPending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "credon_holders_pending",
			Help: "Holders currently awaiting claims submission",
		}),
		CleanupDeleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credon_cleanup_deleted_total",
			Help: "Ephemeral agent records deleted by the cleanup sweep, by kind",
		}, []string{"kind"}),
	}
}
