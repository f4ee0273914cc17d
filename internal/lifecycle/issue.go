package lifecycle

import (
	"context"
	"errors"
	"time"

	"credon/internal/audit"
	"credon/internal/holder/models"
	"credon/internal/lifecycle/tracer"
	"credon/internal/sentinel"
	dErrors "credon/pkg/domain-errors"
	"credon/pkg/domain"
)

// Issue drives a pending holder to valid: the submitted one-time code is
// checked, a credential offer with the claims goes out, and the exchange id
// is captured before the agent record is discarded. Replays of a consumed
// flow come back as the existing record with no further effect.
func (o *Orchestrator) Issue(ctx context.Context, label domain.Label, claims map[string]string, code string) (rec *models.Record, err error) {
	if _, loaded := o.inflight.LoadOrStore(label, struct{}{}); loaded {
		return nil, dErrors.New(dErrors.CodeConflict, "another flow for this holder is already running")
	}
	defer o.inflight.Delete(label)

	ctx, span := o.tracer.Start(ctx, tracer.SpanIssue,
		tracer.String(tracer.AttrLabel, label.String()))
	defer func() { span.End(err) }()

	rec, err = o.holders.FindByLabel(ctx, label)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "holder not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "holder lookup failed")
	}
	span.SetAttributes(tracer.String(tracer.AttrStatus, string(rec.Status)))

	switch {
	case rec.Status.Active():
		// Replay of a consumed flow.
		return rec, nil
	case rec.Status == models.StatusRevoked:
		return nil, dErrors.New(dErrors.CodeCredRevoked, "holder's credential was revoked")
	case rec.Status != models.StatusPending:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "holder is not awaiting claims")
	}

	if len(claims) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "claims are required")
	}
	if o.otp != nil {
		if err = o.otp.Verify(ctx, rec.ContactID, code); err != nil {
			return nil, err
		}
	}
	if rec.ConnectionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "holder record has no connection")
	}

	offer, err := o.issuer.SendCredentialOffer(ctx,
		rec.ConnectionID.String(), o.cfg.SchemaID.String(), o.cfg.CredDefID.String(), claims)
	if err != nil {
		return nil, err
	}
	span.AddEvent(tracer.EventOfferSent)

	credExID := offer.CredExID
	if credExID == "" {
		credExID, err = o.findCredentialExchange(ctx, rec.ConnectionID.String())
		if err != nil {
			return nil, err
		}
	}

	// The conditional transition is the linearization point: only one Issue
	// per holder ever passes pending -> valid.
	updated, err := o.holders.UpdateStatusIf(ctx, label, models.StatusPending, models.StatusValid)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// The offer already went out but this flow lost; its exchange
			// record must not linger on the agent.
			o.deleteCredentialExchange(ctx, credExID, span)
			current, findErr := o.holders.FindByLabel(ctx, label)
			if findErr == nil && current.Status.Active() {
				return current, nil
			}
			return nil, dErrors.New(dErrors.CodeConflict, "holder state changed during issuance")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update holder status")
	}

	updated.Claims = claims
	updated.CredentialExchangeID = domain.CredExchangeID(credExID)
	if err = o.holders.Update(ctx, updated); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist issued claims")
	}

	// The agent-side exchange record has served its purpose.
	o.deleteCredentialExchange(ctx, credExID, span)

	if o.metrics != nil {
		o.metrics.CredentialsIssued.Inc()
		o.metrics.HoldersPending.Dec()
	}
	o.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionCredentialIssued,
		Label:     updated.Label,
		ContactID: updated.ContactID,
	})
	return updated, nil
}

func (o *Orchestrator) deleteCredentialExchange(ctx context.Context, credExID string, span tracer.Span) {
	if err := o.issuer.DeleteCredentialExchange(ctx, credExID); err != nil {
		o.logger.WarnContext(ctx, "failed to delete credential exchange",
			"cred_ex_id", credExID, "error", err)
		return
	}
	span.AddEvent(tracer.EventExchangeCleaned)
}

// findCredentialExchange locates the issuance record for a connection with a
// bounded retry, covering agents that report the exchange asynchronously.
func (o *Orchestrator) findCredentialExchange(ctx context.Context, connectionID string) (string, error) {
	for attempt := 0; attempt < o.cfg.CredExAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "credential exchange lookup cancelled")
			case <-time.After(o.cfg.CredExDelay):
			}
		}
		exchanges, err := o.issuer.ListCredentialExchanges(ctx, connectionID, "")
		if err != nil {
			return "", err
		}
		for _, exchange := range exchanges {
			if exchange.CredExID != "" {
				return exchange.CredExID, nil
			}
		}
	}
	return "", dErrors.New(dErrors.CodeTimeout, "credential exchange record never appeared")
}
