package cleanup

import (
	"context"
	"log/slog"
	"time"

	"credon/internal/agent"
	"credon/internal/lifecycle"
	"credon/internal/lifecycle/metrics"
)

// Result summarizes one cleanup sweep.
type Result struct {
	ProofExchangesDeleted int
	CredExchangesDeleted  int
	ConnectionsDeleted    int
	CodesPurged           int
	Duration              time.Duration
}

// CodePurger drops expired one-time codes. Optional; redis expires natively.
type CodePurger interface {
	Purge(ctx context.Context) int
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInterval sets the sweep interval.
func WithInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithMetrics attaches lifecycle metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCodePurger adds expired-code purging to the sweep.
func WithCodePurger(p CodePurger) Option {
	return func(s *Service) {
		s.codes = p
	}
}

// Service periodically deletes agent records the flows no longer need:
// terminal proof exchanges, settled credential exchanges and duplicate
// connections left behind by crashed or interrupted flows. Every step is
// idempotent; a missed sweep is caught by the next one.
type Service struct {
	verifier lifecycle.VerifierAgent
	issuer   lifecycle.IssuerAgent
	codes    CodePurger
	logger   *slog.Logger
	interval time.Duration
	metrics  *metrics.Metrics
}

// New creates a cleanup Service.
func New(verifier lifecycle.VerifierAgent, issuer lifecycle.IssuerAgent, opts ...Option) *Service {
	s := &Service{
		verifier: verifier,
		issuer:   issuer,
		logger:   slog.Default(),
		interval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the sweep loop until the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			res, err := s.RunOnce(ctx)
			duration := time.Since(start)
			if err != nil {
				s.logger.Error("lifecycle_cleanup_failed",
					"error", err,
					"duration_ms", duration.Milliseconds(),
				)
				continue
			}
			res.Duration = duration
			s.logger.Info("lifecycle_cleanup_completed",
				"proof_exchanges_deleted", res.ProofExchangesDeleted,
				"cred_exchanges_deleted", res.CredExchangesDeleted,
				"connections_deleted", res.ConnectionsDeleted,
				"codes_purged", res.CodesPurged,
				"duration_ms", duration.Milliseconds(),
			)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs one sweep. Per-record failures are logged and skipped so
// one stuck record cannot stall the rest of the sweep.
func (s *Service) RunOnce(ctx context.Context) (Result, error) {
	var res Result

	exchanges, err := s.verifier.ListProofExchanges(ctx, "", "")
	if err != nil {
		return res, err
	}
	for _, exchange := range exchanges {
		if !exchange.Terminal() {
			continue
		}
		if err := s.verifier.DeleteProofExchange(ctx, exchange.PresExID); err != nil {
			s.logger.Warn("failed to delete proof exchange", "pres_ex_id", exchange.PresExID, "error", err)
			continue
		}
		res.ProofExchangesDeleted++
		s.count("proof_exchange")
	}

	credExchanges, err := s.issuer.ListCredentialExchanges(ctx, "", "")
	if err != nil {
		return res, err
	}
	for _, exchange := range credExchanges {
		if exchange.State != agent.CredExStateDone && exchange.State != agent.CredExStateAbandoned {
			continue
		}
		if err := s.issuer.DeleteCredentialExchange(ctx, exchange.CredExID); err != nil {
			s.logger.Warn("failed to delete credential exchange", "cred_ex_id", exchange.CredExID, "error", err)
			continue
		}
		res.CredExchangesDeleted++
		s.count("cred_exchange")
	}

	res.ConnectionsDeleted = s.sweepDuplicateConnections(ctx)

	if s.codes != nil {
		res.CodesPurged = s.codes.Purge(ctx)
	}
	return res, nil
}

// sweepDuplicateConnections keeps the oldest connection per label and
// deletes the rest.
func (s *Service) sweepDuplicateConnections(ctx context.Context) int {
	conns, err := s.verifier.ListConnections(ctx, "")
	if err != nil {
		s.logger.Warn("failed to list connections for sweep", "error", err)
		return 0
	}
	seen := make(map[string]bool)
	deleted := 0
	for _, conn := range conns {
		if conn.TheirLabel == "" || !seen[conn.TheirLabel] {
			seen[conn.TheirLabel] = true
			continue
		}
		if err := s.verifier.DeleteConnection(ctx, conn.ConnectionID); err != nil {
			s.logger.Warn("failed to delete duplicate connection", "connection_id", conn.ConnectionID, "error", err)
			continue
		}
		deleted++
		s.count("connection")
	}
	return deleted
}

func (s *Service) count(kind string) {
	if s.metrics != nil {
		s.metrics.CleanupDeleted.WithLabelValues(kind).Inc()
	}
}
