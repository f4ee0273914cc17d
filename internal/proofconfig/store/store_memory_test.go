package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credon/internal/proofconfig/models"
	"credon/internal/sentinel"
	"credon/pkg/domain"
)

func TestCurrentReturnsNewestConfig(t *testing.T) {
	s := New()
	owner := domain.Label("verifier-1")

	older := &models.Config{
		ID:         uuid.New(),
		OwnerLabel: owner,
		CredDefID:  "creddef:v1",
		Attributes: []string{"email"},
		CreatedAt:  time.Now().Add(-time.Hour),
	}
	newer := &models.Config{
		ID:         uuid.New(),
		OwnerLabel: owner,
		CredDefID:  "creddef:v2",
		Attributes: []string{"email", "role"},
		CreatedAt:  time.Now(),
	}
	require.NoError(t, s.Append(context.Background(), older))
	require.NoError(t, s.Append(context.Background(), newer))

	current, err := s.Current(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, domain.CredDefID("creddef:v2"), current.CredDefID)

	all, err := s.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCurrentWithoutConfig(t *testing.T) {
	s := New()
	_, err := s.Current(context.Background(), "verifier-none")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestConfigValidation(t *testing.T) {
	valid := &models.Config{
		OwnerLabel: "verifier-1",
		CredDefID:  "creddef:v1",
		Attributes: []string{"email"},
	}
	assert.NoError(t, valid.Validate())

	predicateOnly := &models.Config{
		OwnerLabel: "verifier-1",
		CredDefID:  "creddef:v1",
		Predicate:  &models.Predicate{Attribute: "age", Op: ">=", Value: 18},
	}
	assert.NoError(t, predicateOnly.Validate())

	empty := &models.Config{OwnerLabel: "verifier-1", CredDefID: "creddef:v1"}
	assert.Error(t, empty.Validate())

	badOp := &models.Config{
		OwnerLabel: "verifier-1",
		CredDefID:  "creddef:v1",
		Predicate:  &models.Predicate{Attribute: "age", Op: "==", Value: 18},
	}
	assert.Error(t, badOp.Validate())
}
