package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credon/internal/lifecycle"
	"credon/internal/otp"
	"credon/internal/platform/middleware"
	dErrors "credon/pkg/domain-errors"
	"credon/pkg/domain"
	"credon/pkg/platform/httputil"
)

// Handler exposes the credential lifecycle flows over HTTP: invitation
// bootstrap, connection events, claim submission and one-time codes.
type Handler struct {
	logger    *slog.Logger
	orch      *lifecycle.Orchestrator
	bootstrap *lifecycle.Bootstrap
	otp       *otp.Service
}

// New creates a lifecycle Handler. The otp service may be nil; the code
// endpoint is only registered when it is present.
func New(orch *lifecycle.Orchestrator, bootstrap *lifecycle.Bootstrap, otpSvc *otp.Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, orch: orch, bootstrap: bootstrap, otp: otpSvc}
}

// Register registers lifecycle routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/invitations", h.handleCreateInvitation)
	r.Post("/invitations/accept", h.handleAcceptInvitation)
	r.Post("/events/connections", h.handleConnectionEvent)
	r.Post("/holders/{label}/claims", h.handleSubmitClaims)
	if h.otp != nil {
		r.Post("/otp/send", h.handleSendCode)
	}
}

type invitationRequest struct {
	Label string `json:"label,omitempty"`
}

func (h *Handler) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[invitationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	label := req.Label
	if label == "" {
		label = domain.NewLabel().String()
	}
	inv, err := h.bootstrap.CreateInvitation(ctx, label)
	if err != nil {
		h.logger.ErrorContext(ctx, "invitation creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"label":         label,
		"invitationUrl": inv.InvitationURL,
		"invitation":    inv.Invitation,
	})
}

type acceptRequest struct {
	Invitation map[string]any `json:"invitation"`
}

func (ar *acceptRequest) Validate() error {
	if len(ar.Invitation) == 0 {
		return dErrors.New(dErrors.CodeValidation, "invitation is required")
	}
	return nil
}

func (h *Handler) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[acceptRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	connectionID, err := h.bootstrap.AcceptInvitation(ctx, req.Invitation)
	if err != nil {
		h.logger.ErrorContext(ctx, "invitation acceptance failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"connectionId": connectionID})
}

type connectionEventRequest struct {
	TheirLabel string `json:"their_label"`
}

func (cr *connectionEventRequest) Validate() error {
	if cr.TheirLabel == "" {
		return dErrors.New(dErrors.CodeValidation, "their_label is required")
	}
	return nil
}

func (h *Handler) handleConnectionEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[connectionEventRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.orch.HandleConnection(ctx, domain.Label(req.TheirLabel))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if result.Action == lifecycle.ActionInFlight {
		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{"action": result.Action})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"action": result.Action,
		"holder": result.Record,
	})
}

type claimsRequest struct {
	Claims map[string]string `json:"claims"`
	Code   string            `json:"code,omitempty"`
}

func (cr *claimsRequest) Validate() error {
	if len(cr.Claims) == 0 {
		return dErrors.New(dErrors.CodeValidation, "claims are required")
	}
	return nil
}

func (h *Handler) handleSubmitClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	label := domain.Label(chi.URLParam(r, "label"))

	req, ok := httputil.DecodeJSON[claimsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.orch.Issue(ctx, label, req.Claims, req.Code)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) && !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			h.logger.ErrorContext(ctx, "claim submission failed",
				"request_id", requestID,
				"label", label,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

type sendCodeRequest struct {
	Email string `json:"email"`
}

func (sr *sendCodeRequest) Validate() error {
	if sr.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	return nil
}

func (h *Handler) handleSendCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[sendCodeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.otp.Issue(ctx, req.Email); err != nil {
		h.logger.ErrorContext(ctx, "failed to issue one-time code",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]any{"status": "sent"})
}
