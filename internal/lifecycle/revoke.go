package lifecycle

import (
	"context"
	"errors"

	"credon/internal/audit"
	"credon/internal/holder/models"
	"credon/internal/lifecycle/tracer"
	"credon/internal/sentinel"
	dErrors "credon/pkg/domain-errors"
	"credon/pkg/domain"
)

// Propagator pushes a revocation to the issuing agent and downstream wallets.
type Propagator interface {
	Propagate(ctx context.Context, rec *models.Record, credDefID domain.CredDefID, reason string) error
}

// Revoke revokes an active holder's credential. The agent-side revocation
// happens first; the record transition follows only on success, so a failed
// propagation leaves the holder untouched and retryable.
func (o *Orchestrator) Revoke(ctx context.Context, propagator Propagator, label domain.Label, reason, operator string) (rec *models.Record, err error) {
	ctx, span := o.tracer.Start(ctx, tracer.SpanRevoke,
		tracer.String(tracer.AttrLabel, label.String()))
	defer func() { span.End(err) }()

	rec, err = o.holders.FindByLabel(ctx, label)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "holder not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "holder lookup failed")
	}
	if rec.Status == models.StatusRevoked {
		// Already revoked; idempotent.
		return rec, nil
	}
	if !rec.Status.Active() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "holder has no active credential")
	}

	if err = propagator.Propagate(ctx, rec, o.cfg.CredDefID, reason); err != nil {
		return nil, err
	}

	updated, err := o.holders.UpdateStatusIf(ctx, label, rec.Status, models.StatusRevoked)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			current, findErr := o.holders.FindByLabel(ctx, label)
			if findErr == nil && current.Status == models.StatusRevoked {
				return current, nil
			}
			return nil, dErrors.New(dErrors.CodeConflict, "holder state changed during revocation")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update holder status")
	}

	if o.metrics != nil {
		o.metrics.Revocations.Inc()
	}
	o.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionCredentialRevoked,
		Label:     updated.Label,
		ContactID: updated.ContactID,
		Operator:  operator,
		Reason:    reason,
	})
	return updated, nil
}

// Reinstate re-issues a revoked holder's credential with its original
// claims. The claims set stored at issuance round-trips untouched.
func (o *Orchestrator) Reinstate(ctx context.Context, label domain.Label, operator string) (rec *models.Record, err error) {
	ctx, span := o.tracer.Start(ctx, tracer.SpanReinstate,
		tracer.String(tracer.AttrLabel, label.String()))
	defer func() { span.End(err) }()

	rec, err = o.holders.FindByLabel(ctx, label)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "holder not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "holder lookup failed")
	}
	if rec.Status == models.StatusReinstated {
		return rec, nil
	}
	if rec.Status != models.StatusRevoked {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "only a revoked credential can be reinstated")
	}
	if len(rec.Claims) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "revoked holder carries no claims to reinstate")
	}

	var credExID domain.CredExchangeID
	if !rec.ConnectionID.IsNil() {
		offer, offerErr := o.issuer.SendCredentialOffer(ctx,
			rec.ConnectionID.String(), o.cfg.SchemaID.String(), o.cfg.CredDefID.String(), rec.Claims)
		if offerErr != nil {
			err = offerErr
			return nil, err
		}
		span.AddEvent(tracer.EventOfferSent)
		credExID = domain.CredExchangeID(offer.CredExID)
	}

	updated, err := o.holders.UpdateStatusIf(ctx, label, models.StatusRevoked, models.StatusReinstated)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			current, findErr := o.holders.FindByLabel(ctx, label)
			if findErr == nil && current.Status == models.StatusReinstated {
				return current, nil
			}
			return nil, dErrors.New(dErrors.CodeConflict, "holder state changed during reinstatement")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update holder status")
	}

	if !credExID.IsNil() {
		updated.CredentialExchangeID = credExID
		if err = o.holders.Update(ctx, updated); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist exchange reference")
		}
		if delErr := o.issuer.DeleteCredentialExchange(ctx, credExID.String()); delErr != nil {
			o.logger.WarnContext(ctx, "failed to delete credential exchange",
				"cred_ex_id", credExID.String(), "error", delErr)
		}
	}

	if o.metrics != nil {
		o.metrics.Reinstatements.Inc()
	}
	o.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionCredentialReinstated,
		Label:     updated.Label,
		ContactID: updated.ContactID,
		Operator:  operator,
	})
	return updated, nil
}
