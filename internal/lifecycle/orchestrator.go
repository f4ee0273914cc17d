package lifecycle

import (
	"log/slog"
	"sync"
	"time"

	"credon/internal/audit"
	"credon/internal/holder/store"
	"credon/internal/lifecycle/metrics"
	"credon/internal/lifecycle/tracer"
	pcstore "credon/internal/proofconfig/store"
	"credon/pkg/domain"
)

// Config carries the orchestrator's tunables. Zero values fall back to the
// defaults below.
type Config struct {
	// VerifierLabel selects whose proof configuration governs incoming
	// connections.
	VerifierLabel domain.Label

	// SchemaID and CredDefID identify what gets issued.
	SchemaID  domain.SchemaID
	CredDefID domain.CredDefID

	// ProofPollInterval and ProofPollTimeout bound the wait for a proof
	// exchange to reach a terminal state.
	ProofPollInterval time.Duration
	ProofPollTimeout  time.Duration

	// CredExAttempts and CredExDelay bound the search for a credential
	// exchange record after an offer.
	CredExAttempts int
	CredExDelay    time.Duration
}

func (c Config) withDefaults() Config {
	if c.ProofPollInterval <= 0 {
		c.ProofPollInterval = 3 * time.Second
	}
	if c.ProofPollTimeout <= 0 {
		c.ProofPollTimeout = 90 * time.Second
	}
	if c.CredExAttempts <= 0 {
		c.CredExAttempts = 5
	}
	if c.CredExDelay <= 0 {
		c.CredExDelay = 2 * time.Second
	}
	return c
}

// Orchestrator drives the credential lifecycle state machine: connection
// events in, proof verification, registration, issuance, revocation and
// reinstatement.
type Orchestrator struct {
	cfg      Config
	verifier VerifierAgent
	issuer   IssuerAgent
	holders  store.Store
	configs  pcstore.Store
	otp      OTPVerifier
	audit    *audit.Publisher
	tracer   tracer.Tracer
	metrics  *metrics.Metrics
	logger   *slog.Logger

	// inflight collapses concurrent connection events for one label into a
	// single flow.
	inflight sync.Map
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithTracer sets the tracer. Defaults to a no-op tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// WithMetrics attaches lifecycle metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithOTP enables one-time-code verification on claims submission.
func WithOTP(v OTPVerifier) Option {
	return func(o *Orchestrator) {
		o.otp = v
	}
}

// New creates an Orchestrator.
func New(
	cfg Config,
	verifier VerifierAgent,
	issuer IssuerAgent,
	holders store.Store,
	configs pcstore.Store,
	auditPub *audit.Publisher,
	logger *slog.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg.withDefaults(),
		verifier: verifier,
		issuer:   issuer,
		holders:  holders,
		configs:  configs,
		audit:    auditPub,
		tracer:   tracer.NewNoop(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) countConnection(result string) {
	if o.metrics != nil {
		o.metrics.ConnectionsHandled.WithLabelValues(result).Inc()
	}
}
