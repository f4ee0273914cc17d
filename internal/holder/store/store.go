package store

import (
	"context"

	"credon/internal/holder/models"
	"credon/pkg/domain"
)

// Error contract: ErrNotFound when no record matches, ErrConflict when a
// uniqueness or state precondition fails, wrapped errors for infrastructure
// failures.

// Store persists holder lifecycle records.
type Store interface {
	Save(ctx context.Context, rec *models.Record) error
	FindByLabel(ctx context.Context, label domain.Label) (*models.Record, error)
	FindByContactID(ctx context.Context, contactID domain.ContactID) (*models.Record, error)
	FindByConnectionID(ctx context.Context, connectionID domain.ConnectionID) (*models.Record, error)
	List(ctx context.Context) ([]*models.Record, error)
	Update(ctx context.Context, rec *models.Record) error

	// UpdateStatusIf moves the record to next only when its current status
	// equals expect, returning ErrConflict otherwise. The check and the
	// write are one atomic step.
	UpdateStatusIf(ctx context.Context, label domain.Label, expect, next models.Status) (*models.Record, error)
}
