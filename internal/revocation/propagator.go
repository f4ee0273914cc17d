package revocation

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"credon/internal/holder/models"
	dErrors "credon/pkg/domain-errors"
	"credon/pkg/domain"
)

// Revoker is the slice of the issuer agent the propagator needs.
type Revoker interface {
	Revoke(ctx context.Context, credExID, comment string) error
}

// Propagator revokes a holder's credential at the issuing agent and then
// notifies the wallet service. The agent call is authoritative; the webhook
// is best-effort because wallets also learn about revocation from the agent
// notification and from presentation-time non-revocation checks.
type Propagator struct {
	agent      Revoker
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Propagator.
type Option func(*Propagator)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Propagator) {
		p.httpClient = hc
	}
}

// New creates a Propagator. An empty webhookURL disables the notification.
func New(agent Revoker, webhookURL string, logger *slog.Logger, opts ...Option) *Propagator {
	p := &Propagator{
		agent:      agent,
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type webhookPayload struct {
	CredDefID string `json:"cred_def_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

// Propagate revokes the credential behind rec. The error reflects the agent
// call only; webhook failures are logged and swallowed.
func (p *Propagator) Propagate(ctx context.Context, rec *models.Record, credDefID domain.CredDefID, reason string) error {
	if rec.CredentialExchangeID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"holder record has no credential exchange reference")
	}
	if err := p.agent.Revoke(ctx, rec.CredentialExchangeID.String(), reason); err != nil {
		return err
	}
	p.notifyWallet(ctx, rec, credDefID, reason)
	return nil
}

func (p *Propagator) notifyWallet(ctx context.Context, rec *models.Record, credDefID domain.CredDefID, reason string) {
	if p.webhookURL == "" {
		return
	}
	payload, err := json.Marshal(webhookPayload{
		CredDefID: credDefID.String(),
		Status:    "revoked",
		Reason:    reason,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to encode revocation webhook", "error", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.webhookURL, bytes.NewReader(payload))
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build revocation webhook", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.WarnContext(ctx, "revocation webhook delivery failed",
			"label", rec.Label.String(), "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger.WarnContext(ctx, "revocation webhook rejected",
			"label", rec.Label.String(), "status", resp.StatusCode)
	}
}
