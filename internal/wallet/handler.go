package wallet

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"credon/internal/agent"
	"credon/internal/platform/middleware"
	dErrors "credon/pkg/domain-errors"
	"credon/pkg/domain"
	"credon/pkg/platform/httputil"
)

// AgentClient is the slice of the holder agent the wallet handler needs.
type AgentClient interface {
	ListWalletCredentials(ctx context.Context) ([]agent.WalletCredential, error)
	DeleteWalletCredential(ctx context.Context, referent string) error
	ListProofExchanges(ctx context.Context, connectionID, state string) ([]agent.ProofExchange, error)
	SendPresentation(ctx context.Context, presExID, credentialReferent string, attributeNames []string) (*agent.ProofExchange, error)
}

// Handler serves the holder-side wallet endpoints: credential listing, the
// revocation webhook, and presentation of cached credentials.
type Handler struct {
	logger *slog.Logger
	cache  *Cache
	agent  AgentClient
}

// NewHandler creates a wallet Handler.
func NewHandler(cache *Cache, agentClient AgentClient, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, cache: cache, agent: agentClient}
}

// Register registers wallet routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/wallet/credentials", h.handleList)
	r.Post("/wallet/webhooks/revocation", h.handleRevocationWebhook)
	r.Post("/wallet/presentations", h.handlePresent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	creds, err := h.agent.ListWalletCredentials(ctx)
	if err != nil {
		// Serve the cache when the agent is down; the webhook-fed revoked
		// set is still applied.
		h.logger.WarnContext(ctx, "wallet listing fell back to cache", "error", err)
	} else {
		h.cache.Refresh(ctx, creds)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"credentials": h.cache.List()})
}

type revocationWebhook struct {
	CredDefID string `json:"cred_def_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

func (wh *revocationWebhook) Validate() error {
	if wh.CredDefID == "" {
		return dErrors.New(dErrors.CodeValidation, "cred_def_id is required")
	}
	return nil
}

func (h *Handler) handleRevocationWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[revocationWebhook](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if req.Status != "revoked" {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"result": "ignored"})
		return
	}

	referents := h.cache.MarkRevoked(domain.CredDefID(req.CredDefID), time.Now())
	// Dead credentials are also purged from the agent's wallet; a failed
	// deletion keeps the annotated cache entry so the credential still
	// cannot be presented.
	for _, referent := range referents {
		if err := h.agent.DeleteWalletCredential(ctx, referent); err != nil {
			h.logger.WarnContext(ctx, "failed to delete revoked wallet credential",
				"referent", referent, "error", err)
			continue
		}
		h.cache.Remove(referent)
	}
	h.logger.InfoContext(ctx, "revocation webhook applied",
		"request_id", requestID,
		"cred_def_id", req.CredDefID,
		"reason", req.Reason,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"result": "applied"})
}

type presentRequest struct {
	CredDefID string `json:"credDefId"`
}

func (pr *presentRequest) Validate() error {
	if pr.CredDefID == "" {
		return dErrors.New(dErrors.CodeValidation, "credDefId is required")
	}
	return nil
}

// handlePresent answers the newest pending proof request using a cached,
// unrevoked credential under the given definition.
func (h *Handler) handlePresent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[presentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	credDefID := domain.CredDefID(req.CredDefID)

	referent, usable := h.cache.Usable(credDefID)
	if !usable {
		httputil.WriteError(w, dErrors.New(dErrors.CodeCredRevoked,
			"no usable credential for this definition"))
		return
	}

	exchanges, err := h.agent.ListProofExchanges(ctx, "", agent.ProofStateRequestReceived)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if len(exchanges) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no pending proof request"))
		return
	}
	pending := exchanges[len(exchanges)-1]

	attrNames, err := pending.RequestedAttributeNames()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.agent.SendPresentation(ctx, pending.PresExID, referent, attrNames)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
