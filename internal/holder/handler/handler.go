package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credon/internal/holder/models"
	"credon/internal/holder/service"
	"credon/internal/platform/middleware"
	dErrors "credon/pkg/domain-errors"
	"credon/pkg/domain"
	"credon/pkg/platform/httputil"
)

// Handler serves holder record endpoints.
type Handler struct {
	logger  *slog.Logger
	holders *service.Service
}

// New creates a holder Handler.
func New(holders *service.Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, holders: holders}
}

// Register registers holder routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/holders", h.handleGet)
	r.Post("/holders", h.handleCreate)
	r.Put("/holders/{label}", h.handleUpdate)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if raw := r.URL.Query().Get("contact_id"); raw != "" {
		contactID, err := domain.ParseContactID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid contact_id"))
			return
		}
		h.respondOne(ctx, w, func() (*models.Record, error) {
			return h.holders.GetByContactID(ctx, contactID)
		})
		return
	}

	if raw := r.URL.Query().Get("label"); raw != "" {
		h.respondOne(ctx, w, func() (*models.Record, error) {
			return h.holders.GetByLabel(ctx, domain.Label(raw))
		})
		return
	}

	recs, err := h.holders.List(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"holders": recs})
}

func (h *Handler) respondOne(ctx context.Context, w http.ResponseWriter, lookup func() (*models.Record, error)) {
	rec, err := lookup()
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "holder lookup failed",
				"request_id", middleware.GetRequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

type createRequest struct {
	Email string `json:"email"`
}

func (cr *createRequest) Validate() error {
	if cr.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	return nil
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[createRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.holders.Register(ctx, domain.HashContact(req.Email))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, rec)
}

type updateRequest struct {
	Email                *string `json:"email,omitempty"`
	ConnectionID         *string `json:"connectionId,omitempty"`
	CredentialExchangeID *string `json:"credentialExchangeId,omitempty"`
	Status               *string `json:"status,omitempty"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	label := domain.Label(chi.URLParam(r, "label"))

	req, ok := httputil.DecodeJSON[updateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	upd := service.Update{Email: req.Email}
	if req.ConnectionID != nil {
		connID := domain.ConnectionID(*req.ConnectionID)
		upd.ConnectionID = &connID
	}
	if req.CredentialExchangeID != nil {
		credExID := domain.CredExchangeID(*req.CredentialExchangeID)
		upd.CredentialExchangeID = &credExID
	}
	if req.Status != nil {
		status := models.Status(*req.Status)
		upd.Status = &status
	}

	rec, err := h.holders.Apply(ctx, label, upd)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}
