package lifecycle

import (
	"context"
	"errors"
	"time"

	"credon/internal/agent"
	"credon/internal/audit"
	"credon/internal/holder/models"
	"credon/internal/lifecycle/tracer"
	"credon/internal/sentinel"
	dErrors "credon/pkg/domain-errors"
	"credon/pkg/domain"
)

// Action says what a connection event resulted in.
type Action string

const (
	// ActionRegistered means a new pending holder record was created.
	ActionRegistered Action = "registered"
	// ActionAwaitingClaims means the holder is already pending; nothing to do.
	ActionAwaitingClaims Action = "awaiting_claims"
	// ActionInFlight means another flow for the same label is running.
	ActionInFlight Action = "in_flight"
)

// ConnectionResult reports how a connection event was handled.
type ConnectionResult struct {
	Action Action         `json:"action"`
	Record *models.Record `json:"record,omitempty"`
}

// The attribute a proof must reveal for the holder to be identified.
const contactAttribute = "email"

// HandleConnection processes a connection event from the verifier agent. It
// resolves the connection, runs the proof flow, and registers or recognizes
// the holder. Only a verified proof ever mutates holder state.
func (o *Orchestrator) HandleConnection(ctx context.Context, theirLabel domain.Label) (result *ConnectionResult, err error) {
	if _, loaded := o.inflight.LoadOrStore(theirLabel, struct{}{}); loaded {
		o.countConnection(string(ActionInFlight))
		return &ConnectionResult{Action: ActionInFlight}, nil
	}
	defer o.inflight.Delete(theirLabel)

	ctx, span := o.tracer.Start(ctx, tracer.SpanConnection,
		tracer.String(tracer.AttrLabel, theirLabel.String()))
	defer func() { span.End(err) }()

	conns, err := o.verifier.ListConnections(ctx, theirLabel.String())
	if err != nil {
		o.countConnection("error")
		return nil, err
	}
	if len(conns) == 0 {
		o.countConnection("unknown_connection")
		return nil, dErrors.New(dErrors.CodeNotFound, "no connection for label")
	}

	// The oldest connection carries the flow; later duplicates for the same
	// label are agent noise and get deleted once the flow settles.
	conn := conns[0]
	extras := conns[1:]
	defer o.deleteExtraConnections(ctx, extras)
	span.SetAttributes(tracer.String(tracer.AttrConnectionID, conn.ConnectionID))

	cfg, err := o.configs.Current(ctx, o.cfg.VerifierLabel)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			o.countConnection("error")
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load proof config")
		}
		// No proof requirement configured: register on connection alone.
		return o.registerWithoutProof(ctx, theirLabel, conn)
	}

	spec := agent.ProofRequestSpec{
		Name:       "credential-check",
		CredDefID:  cfg.CredDefID.String(),
		Attributes: cfg.Attributes,
	}
	if cfg.Predicate != nil {
		spec.Predicates = []agent.Predicate{{
			Attribute: cfg.Predicate.Attribute,
			Op:        cfg.Predicate.Op,
			Value:     cfg.Predicate.Value,
		}}
	}

	exchange, err := o.verifier.SendProofRequest(ctx, conn.ConnectionID, spec)
	if err != nil {
		o.countConnection("error")
		return nil, err
	}
	span.AddEvent(tracer.EventProofRequested)
	defer o.deleteProofExchange(ctx, exchange.PresExID)

	outcome, terminal, err := o.pollProof(ctx, exchange.PresExID)
	if err != nil {
		o.countConnection("error")
		return nil, err
	}
	span.SetAttributes(tracer.String(tracer.AttrOutcome, string(outcome)))
	if o.metrics != nil {
		o.metrics.ProofOutcomes.WithLabelValues(string(outcome)).Inc()
	}

	switch outcome {
	case OutcomeTimedOut:
		o.countConnection("proof_timeout")
		return nil, dErrors.New(dErrors.CodeProofTimeout, "proof exchange did not complete in time")
	case OutcomeNotVerified:
		o.countConnection("proof_not_verified")
		o.audit.Emit(ctx, audit.Event{Action: audit.ActionProofRejected, Label: theirLabel})
		return nil, dErrors.New(dErrors.CodeProofNotVerified, "presented proof failed verification")
	}

	attrs, err := terminal.RevealedAttributes()
	if err != nil {
		o.countConnection("error")
		return nil, err
	}
	email, ok := attrs[contactAttribute]
	if !ok || email == "" {
		o.countConnection("error")
		return nil, dErrors.New(dErrors.CodeMalformedResponse, "proof did not reveal the contact attribute")
	}
	contactID := domain.HashContact(email)
	span.SetAttributes(tracer.String(tracer.AttrContactID, contactID.String()))

	return o.resolveHolder(ctx, theirLabel, conn, contactID)
}

// recognize reports an already-pending holder and repoints the record at the
// surviving connection, so the holder can reconnect after losing the original
// one. Last writer wins per connection event.
func (o *Orchestrator) recognize(ctx context.Context, rec *models.Record, conn agent.Connection) (*ConnectionResult, error) {
	if connID := domain.ConnectionID(conn.ConnectionID); rec.ConnectionID != connID {
		rec.ConnectionID = connID
		if err := o.holders.Update(ctx, rec); err != nil {
			o.countConnection("error")
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to refresh holder connection")
		}
	}
	o.countConnection(string(ActionAwaitingClaims))
	return &ConnectionResult{Action: ActionAwaitingClaims, Record: rec}, nil
}

// resolveHolder branches on the holder's current lifecycle state.
func (o *Orchestrator) resolveHolder(ctx context.Context, theirLabel domain.Label, conn agent.Connection, contactID domain.ContactID) (*ConnectionResult, error) {
	rec, err := o.holders.FindByContactID(ctx, contactID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			o.countConnection("error")
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "holder lookup failed")
		}
		return o.register(ctx, theirLabel, conn, contactID)
	}

	switch {
	case rec.Status == models.StatusPending:
		return o.recognize(ctx, rec, conn)
	case rec.Status.Active():
		o.countConnection("duplicate_credential")
		return nil, dErrors.New(dErrors.CodeDuplicateCred, "holder already has an active credential")
	case rec.Status == models.StatusRevoked:
		o.countConnection("credential_revoked")
		return nil, dErrors.New(dErrors.CodeCredRevoked, "holder's credential was revoked")
	default:
		return o.register(ctx, theirLabel, conn, contactID)
	}
}

func (o *Orchestrator) register(ctx context.Context, theirLabel domain.Label, conn agent.Connection, contactID domain.ContactID) (*ConnectionResult, error) {
	rec := models.NewRecord(theirLabel, contactID, time.Now())
	rec.ConnectionID = domain.ConnectionID(conn.ConnectionID)
	if err := o.holders.Save(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a race with a parallel flow; treat as recognized.
			existing, findErr := o.holders.FindByLabel(ctx, theirLabel)
			if findErr == nil {
				return o.recognize(ctx, existing, conn)
			}
			return nil, dErrors.New(dErrors.CodeConflict, "holder registration conflicted")
		}
		o.countConnection("error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save holder")
	}

	if o.metrics != nil {
		o.metrics.HoldersPending.Inc()
	}
	o.countConnection(string(ActionRegistered))
	o.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionHolderRegistered,
		Label:     rec.Label,
		ContactID: rec.ContactID,
	})
	return &ConnectionResult{Action: ActionRegistered, Record: rec}, nil
}

func (o *Orchestrator) registerWithoutProof(ctx context.Context, theirLabel domain.Label, conn agent.Connection) (*ConnectionResult, error) {
	if existing, err := o.holders.FindByLabel(ctx, theirLabel); err == nil {
		return o.recognize(ctx, existing, conn)
	}
	return o.register(ctx, theirLabel, conn, "")
}

func (o *Orchestrator) deleteExtraConnections(ctx context.Context, extras []agent.Connection) {
	for _, extra := range extras {
		if err := o.verifier.DeleteConnection(ctx, extra.ConnectionID); err != nil {
			o.logger.WarnContext(ctx, "failed to delete duplicate connection",
				"connection_id", extra.ConnectionID, "error", err)
		}
	}
}

func (o *Orchestrator) deleteProofExchange(ctx context.Context, presExID string) {
	if err := o.verifier.DeleteProofExchange(ctx, presExID); err != nil {
		o.logger.WarnContext(ctx, "failed to delete proof exchange",
			"pres_ex_id", presExID, "error", err)
	}
}
