package store

import (
	"context"

	"credon/internal/proofconfig/models"
	"credon/pkg/domain"
)

// Store persists proof configurations. Rows are append-only; updates are
// expressed by appending a newer config for the same owner.
type Store interface {
	Append(ctx context.Context, cfg *models.Config) error
	Current(ctx context.Context, owner domain.Label) (*models.Config, error)
	ListByOwner(ctx context.Context, owner domain.Label) ([]*models.Config, error)
}
