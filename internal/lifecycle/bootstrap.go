package lifecycle

import (
	"context"
	"time"

	"credon/internal/agent"
	"credon/internal/lifecycle/tracer"
	dErrors "credon/pkg/domain-errors"
)

// Bootstrap establishes connections between agents: one side creates an
// invitation, the other accepts it and confirms the channel with a trust
// ping.
type Bootstrap struct {
	inviter  VerifierAgent
	accepter HolderAgent
	tracer   tracer.Tracer

	// attempts and delay bound the wait for the handshake to complete.
	attempts int
	delay    time.Duration
}

// NewBootstrap creates a Bootstrap over the inviting and accepting agents.
func NewBootstrap(inviter VerifierAgent, accepter HolderAgent, tr tracer.Tracer) *Bootstrap {
	if tr == nil {
		tr = tracer.NewNoop()
	}
	return &Bootstrap{
		inviter:  inviter,
		accepter: accepter,
		tracer:   tr,
		attempts: 3,
		delay:    2 * time.Second,
	}
}

// SetRetry overrides the handshake retry budget. Zero delay is allowed so
// tests can run the loop without waiting.
func (b *Bootstrap) SetRetry(attempts int, delay time.Duration) {
	if attempts > 0 {
		b.attempts = attempts
	}
	b.delay = delay
}

// CreateInvitation asks the inviting agent for a fresh out-of-band
// invitation under the given label.
func (b *Bootstrap) CreateInvitation(ctx context.Context, label string) (*agent.Invitation, error) {
	return b.inviter.CreateInvitation(ctx, label)
}

// AcceptInvitation hands the invitation to the accepting agent and waits for
// the handshake to settle, confirming with a trust ping. Exhausting the
// retry budget fails with connection_failed.
func (b *Bootstrap) AcceptInvitation(ctx context.Context, invitation map[string]any) (connectionID string, err error) {
	ctx, span := b.tracer.Start(ctx, tracer.SpanBootstrap)
	defer func() { span.End(err) }()

	conn, err := b.accepter.ReceiveInvitation(ctx, invitation)
	if err != nil {
		return "", err
	}
	span.SetAttributes(tracer.String(tracer.AttrConnectionID, conn.ConnectionID))

	for attempt := 0; attempt < b.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", dErrors.Wrap(ctx.Err(), dErrors.CodeConnectionFailed, "connection bootstrap cancelled")
			case <-time.After(b.delay):
			}
		}

		current, getErr := b.accepter.GetConnection(ctx, conn.ConnectionID)
		if getErr != nil {
			err = getErr
			continue
		}
		if current.State != agent.ConnectionStateResponse && current.State != agent.ConnectionStateActive {
			continue
		}

		if pingErr := b.accepter.SendTrustPing(ctx, conn.ConnectionID); pingErr != nil {
			err = pingErr
			continue
		}
		return conn.ConnectionID, nil
	}

	if err != nil {
		return "", dErrors.New(dErrors.CodeConnectionFailed, "connection never became usable: "+err.Error())
	}
	return "", dErrors.New(dErrors.CodeConnectionFailed, "connection never became usable")
}
