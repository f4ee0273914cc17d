package lifecycle

import (
	"context"
	"time"

	"credon/internal/agent"
)

// PollOutcome is the explicit result of waiting on a proof exchange.
type PollOutcome string

const (
	// OutcomeVerified means the exchange finished and the agent verified it.
	OutcomeVerified PollOutcome = "verified"
	// OutcomeNotVerified means the exchange finished but verification failed.
	OutcomeNotVerified PollOutcome = "not_verified"
	// OutcomeTimedOut means the exchange never reached a terminal state in time.
	OutcomeTimedOut PollOutcome = "timed_out"
)

// pollProof watches a proof exchange until it reaches a terminal state or
// the poll timeout elapses. Transport errors abort the poll; the caller
// decides what happens to the holder record (nothing, by contract).
func (o *Orchestrator) pollProof(ctx context.Context, presExID string) (PollOutcome, *agent.ProofExchange, error) {
	start := time.Now()
	defer func() {
		if o.metrics != nil {
			o.metrics.ProofPollSeconds.Observe(time.Since(start).Seconds())
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.ProofPollTimeout)
	defer cancel()

	ticker := time.NewTicker(o.cfg.ProofPollInterval)
	defer ticker.Stop()

	for {
		exchange, err := o.verifier.GetProofExchange(ctx, presExID)
		if err != nil {
			// The deadline firing mid-request surfaces as a transport error.
			if ctx.Err() == context.DeadlineExceeded {
				return OutcomeTimedOut, nil, nil
			}
			return "", nil, err
		}
		if exchange.Terminal() {
			if exchange.State == agent.ProofStateDone && exchange.IsVerified() {
				return OutcomeVerified, exchange, nil
			}
			return OutcomeNotVerified, exchange, nil
		}

		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return OutcomeTimedOut, nil, nil
			}
			return "", nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
