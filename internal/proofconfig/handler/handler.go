package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"credon/internal/platform/middleware"
	"credon/internal/proofconfig/models"
	"credon/internal/proofconfig/store"
	"credon/internal/sentinel"
	dErrors "credon/pkg/domain-errors"
	"credon/pkg/domain"
	"credon/pkg/platform/httputil"
)

// Handler serves proof configuration endpoints.
type Handler struct {
	logger *slog.Logger
	store  store.Store
}

// New creates a proof config Handler.
func New(st store.Store, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, store: st}
}

// Register registers proof config routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/proof-configs", h.handleList)
	r.Get("/proof-configs/current", h.handleCurrent)
	r.Post("/proof-configs", h.handleAppend)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	owner := domain.Label(r.URL.Query().Get("owner"))
	if owner.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "owner query parameter is required"))
		return
	}
	configs, err := h.store.ListByOwner(r.Context(), owner)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list proof configs"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"configs": configs})
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	owner := domain.Label(r.URL.Query().Get("owner"))
	if owner.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "owner query parameter is required"))
		return
	}
	cfg, err := h.store.Current(r.Context(), owner)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no proof config for owner"))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load proof config"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

type appendRequest struct {
	OwnerLabel string            `json:"ownerLabel"`
	CredDefID  string            `json:"credDefId"`
	Attributes []string          `json:"attributes"`
	Predicate  *models.Predicate `json:"predicate,omitempty"`
}

func (h *Handler) handleAppend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[appendRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	cfg := &models.Config{
		ID:         uuid.New(),
		OwnerLabel: domain.Label(req.OwnerLabel),
		CredDefID:  domain.CredDefID(req.CredDefID),
		Attributes: req.Attributes,
		Predicate:  req.Predicate,
		CreatedAt:  time.Now(),
	}
	if err := cfg.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.store.Append(ctx, cfg); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store proof config"))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, cfg)
}
