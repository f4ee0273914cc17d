package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"credon/internal/holder/models"
	"credon/internal/holder/store"
	"credon/internal/sentinel"
	dErrors "credon/pkg/domain-errors"
	"credon/pkg/domain"
)

// Service exposes holder record operations to the transport layer. Lifecycle
// transitions driven by agent traffic live in the lifecycle package; this
// service covers direct record management.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a holder Service.
func New(st store.Store, logger *slog.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// Register creates an unregistered record with a fresh label. Used when a
// record is provisioned ahead of any credential flow.
func (s *Service) Register(ctx context.Context, contactID domain.ContactID) (*models.Record, error) {
	now := time.Now()
	rec := &models.Record{
		ID:        domain.NewHolderID(),
		Label:     domain.NewLabel(),
		ContactID: contactID,
		Status:    models.StatusUnregistered,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "holder already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save holder")
	}
	return rec, nil
}

// GetByLabel fetches one record by its pseudonymous label.
func (s *Service) GetByLabel(ctx context.Context, label domain.Label) (*models.Record, error) {
	rec, err := s.store.FindByLabel(ctx, label)
	if err != nil {
		return nil, translateLookup(err)
	}
	return rec, nil
}

// GetByContactID fetches the record for a hashed contact identifier.
func (s *Service) GetByContactID(ctx context.Context, contactID domain.ContactID) (*models.Record, error) {
	rec, err := s.store.FindByContactID(ctx, contactID)
	if err != nil {
		return nil, translateLookup(err)
	}
	return rec, nil
}

// List returns all holder records.
func (s *Service) List(ctx context.Context) ([]*models.Record, error) {
	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list holders")
	}
	return recs, nil
}

// Update describes a partial holder update. Nil fields are left untouched.
// Email, when present, is hashed into the contact identifier; the raw value
// is never stored.
type Update struct {
	Email                *string
	ConnectionID         *domain.ConnectionID
	CredentialExchangeID *domain.CredExchangeID
	Status               *models.Status
}

// Apply merges the update into an existing record, validating any status
// transition against the lifecycle.
func (s *Service) Apply(ctx context.Context, label domain.Label, upd Update) (*models.Record, error) {
	rec, err := s.store.FindByLabel(ctx, label)
	if err != nil {
		return nil, translateLookup(err)
	}

	if upd.Email != nil {
		rec.ContactID = domain.HashContact(*upd.Email)
	}
	if upd.ConnectionID != nil {
		rec.ConnectionID = *upd.ConnectionID
	}
	if upd.CredentialExchangeID != nil {
		rec.CredentialExchangeID = *upd.CredentialExchangeID
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown status")
		}
		if *upd.Status != rec.Status && !rec.Status.CanTransitionTo(*upd.Status) {
			return nil, dErrors.New(dErrors.CodeInvalidInput,
				"status transition not allowed from "+string(rec.Status)+" to "+string(*upd.Status))
		}
		rec.Status = *upd.Status
	}

	if err := s.store.Update(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "another credential is already active for this contact")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update holder")
	}
	return rec, nil
}

func translateLookup(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "holder not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "holder lookup failed")
}
