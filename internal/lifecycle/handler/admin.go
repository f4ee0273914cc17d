package handler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"credon/internal/audit"
	"credon/internal/lifecycle"
	"credon/internal/platform/middleware"
	dErrors "credon/pkg/domain-errors"
	"credon/pkg/domain"
	"credon/pkg/platform/httputil"
)

// LedgerAgent is the slice of the issuer agent the admin surface needs for
// schema and credential definition management.
type LedgerAgent interface {
	CreateSchema(ctx context.Context, name, version string, attributes []string) (string, error)
	CreateCredentialDefinition(ctx context.Context, schemaID, tag string, supportRevocation bool, registrySize int) (string, error)
	ListSchemas(ctx context.Context) ([]string, error)
	ListCredentialDefinitions(ctx context.Context) ([]string, error)
}

// AdminHandler serves operator endpoints: revocation, reinstatement and
// ledger schema management. Mount it behind the admin token middleware.
type AdminHandler struct {
	logger     *slog.Logger
	orch       *lifecycle.Orchestrator
	propagator lifecycle.Propagator
	ledger     LedgerAgent
	audit      *audit.Publisher
}

// NewAdmin creates an AdminHandler.
func NewAdmin(
	orch *lifecycle.Orchestrator,
	propagator lifecycle.Propagator,
	ledger LedgerAgent,
	auditPub *audit.Publisher,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		logger:     logger,
		orch:       orch,
		propagator: propagator,
		ledger:     ledger,
		audit:      auditPub,
	}
}

// Register registers admin routes with the chi router.
func (h *AdminHandler) Register(r chi.Router) {
	r.Post("/revocations", h.handleRevoke)
	r.Post("/reinstatements", h.handleReinstate)
	r.Post("/schemas", h.handleCreateSchema)
	r.Get("/schemas", h.handleListSchemas)
	r.Get("/audit/{label}", h.handleAuditTrail)
}

type revokeRequest struct {
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

func (rr *revokeRequest) Validate() error {
	if rr.Label == "" {
		return dErrors.New(dErrors.CodeValidation, "label is required")
	}
	if rr.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

func (h *AdminHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	operator := middleware.GetOperator(ctx)

	req, ok := httputil.DecodeJSON[revokeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.orch.Revoke(ctx, h.propagator, domain.Label(req.Label), req.Reason, operator)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "revocation failed",
				"request_id", requestID,
				"label", req.Label,
				"operator", operator,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

type reinstateRequest struct {
	Label string `json:"label"`
}

func (rr *reinstateRequest) Validate() error {
	if rr.Label == "" {
		return dErrors.New(dErrors.CodeValidation, "label is required")
	}
	return nil
}

func (h *AdminHandler) handleReinstate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	operator := middleware.GetOperator(ctx)

	req, ok := httputil.DecodeJSON[reinstateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.orch.Reinstate(ctx, domain.Label(req.Label), operator)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "reinstatement failed",
				"request_id", requestID,
				"label", req.Label,
				"operator", operator,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

type createSchemaRequest struct {
	Name              string   `json:"name"`
	Version           string   `json:"version,omitempty"`
	Attributes        []string `json:"attributes"`
	Tag               string   `json:"tag,omitempty"`
	SupportRevocation *bool    `json:"supportRevocation,omitempty"`
	RegistrySize      int      `json:"registrySize,omitempty"`
}

func (sr *createSchemaRequest) Validate() error {
	if sr.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(sr.Attributes) == 0 {
		return dErrors.New(dErrors.CodeValidation, "attributes are required")
	}
	return nil
}

func (sr *createSchemaRequest) Normalize() {
	sr.Name = strings.TrimSpace(sr.Name)
	if sr.Version == "" {
		sr.Version = randomSchemaVersion()
	}
	if sr.Tag == "" {
		sr.Tag = snakeCase(sr.Name)
	}
	if sr.RegistrySize == 0 {
		sr.RegistrySize = 1000
	}
}

func (h *AdminHandler) handleCreateSchema(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	operator := middleware.GetOperator(ctx)

	req, ok := httputil.DecodeJSON[createSchemaRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	schemaID, err := h.ledger.CreateSchema(ctx, req.Name, req.Version, req.Attributes)
	if err != nil {
		h.logger.ErrorContext(ctx, "schema creation failed",
			"request_id", requestID,
			"schema_name", req.Name,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	supportRevocation := true
	if req.SupportRevocation != nil {
		supportRevocation = *req.SupportRevocation
	}
	credDefID, err := h.ledger.CreateCredentialDefinition(ctx, schemaID, req.Tag, supportRevocation, req.RegistrySize)
	if err != nil {
		h.logger.ErrorContext(ctx, "credential definition creation failed",
			"request_id", requestID,
			"schema_id", schemaID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionSchemaRegistered,
		Operator:  operator,
		Reason:    schemaID,
		RequestID: requestID,
	})
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"schemaId":  schemaID,
		"credDefId": credDefID,
	})
}

func (h *AdminHandler) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	schemas, err := h.ledger.ListSchemas(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	credDefs, err := h.ledger.ListCredentialDefinitions(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"schemaIds":  schemas,
		"credDefIds": credDefs,
	})
}

func (h *AdminHandler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	label := domain.Label(chi.URLParam(r, "label"))

	events, err := h.audit.List(ctx, label)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

// randomSchemaVersion produces an a.b.c version so repeated registrations of
// the same schema name do not collide on the ledger.
func randomSchemaVersion() string {
	return fmt.Sprintf("%d.%d.%d", rand.IntN(100), rand.IntN(100), rand.IntN(100))
}

func snakeCase(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
}
