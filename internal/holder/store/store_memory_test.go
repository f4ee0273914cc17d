package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credon/internal/holder/models"
	"credon/internal/sentinel"
	"credon/pkg/domain"
)

func newRecord(t *testing.T, email string) *models.Record {
	t.Helper()
	return models.NewRecord(domain.NewLabel(), domain.HashContact(email), time.Now())
}

func TestSaveAndFindByLabel(t *testing.T) {
	s := New()
	rec := newRecord(t, "alice@example.com")
	require.NoError(t, s.Save(context.Background(), rec))

	found, err := s.FindByLabel(context.Background(), rec.Label)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, found.ID)
	assert.Equal(t, models.StatusPending, found.Status)
}

func TestSaveDuplicateLabelConflicts(t *testing.T) {
	s := New()
	rec := newRecord(t, "alice@example.com")
	require.NoError(t, s.Save(context.Background(), rec))

	dup := newRecord(t, "other@example.com")
	dup.Label = rec.Label
	assert.ErrorIs(t, s.Save(context.Background(), dup), sentinel.ErrConflict)
}

func TestAtMostOneActivePerContact(t *testing.T) {
	s := New()
	first := newRecord(t, "alice@example.com")
	first.Status = models.StatusValid
	require.NoError(t, s.Save(context.Background(), first))

	second := models.NewRecord(domain.NewLabel(), first.ContactID, time.Now())
	second.Status = models.StatusValid
	assert.ErrorIs(t, s.Save(context.Background(), second), sentinel.ErrConflict)

	// A non-active record for the same contact is allowed.
	second.Status = models.StatusRevoked
	assert.NoError(t, s.Save(context.Background(), second))

	// Promoting it while the first is still active conflicts too.
	second.Status = models.StatusValid
	assert.ErrorIs(t, s.Update(context.Background(), second), sentinel.ErrConflict)
}

func TestFindByContactIDPrefersActive(t *testing.T) {
	s := New()
	contact := domain.HashContact("alice@example.com")

	revoked := models.NewRecord(domain.NewLabel(), contact, time.Now())
	revoked.Status = models.StatusRevoked
	require.NoError(t, s.Save(context.Background(), revoked))

	active := models.NewRecord(domain.NewLabel(), contact, time.Now())
	active.Status = models.StatusReinstated
	require.NoError(t, s.Save(context.Background(), active))

	found, err := s.FindByContactID(context.Background(), contact)
	require.NoError(t, err)
	assert.Equal(t, active.Label, found.Label)
}

func TestFindByConnectionID(t *testing.T) {
	s := New()
	rec := newRecord(t, "alice@example.com")
	rec.ConnectionID = "conn-42"
	require.NoError(t, s.Save(context.Background(), rec))

	found, err := s.FindByConnectionID(context.Background(), "conn-42")
	require.NoError(t, err)
	assert.Equal(t, rec.Label, found.Label)

	_, err = s.FindByConnectionID(context.Background(), "conn-missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestUpdateStatusIf(t *testing.T) {
	s := New()
	rec := newRecord(t, "alice@example.com")
	require.NoError(t, s.Save(context.Background(), rec))

	updated, err := s.UpdateStatusIf(context.Background(), rec.Label, models.StatusPending, models.StatusValid)
	require.NoError(t, err)
	assert.Equal(t, models.StatusValid, updated.Status)

	// Second transition finds the precondition gone.
	_, err = s.UpdateStatusIf(context.Background(), rec.Label, models.StatusPending, models.StatusValid)
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	_, err = s.UpdateStatusIf(context.Background(), domain.NewLabel(), models.StatusPending, models.StatusValid)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestUpdateStatusIfKeepsOneActivePerContact(t *testing.T) {
	s := New()
	contact := domain.HashContact("alice@example.com")

	first := models.NewRecord(domain.NewLabel(), contact, time.Now())
	second := models.NewRecord(domain.NewLabel(), contact, time.Now())
	require.NoError(t, s.Save(context.Background(), first))
	require.NoError(t, s.Save(context.Background(), second))

	_, err := s.UpdateStatusIf(context.Background(), first.Label, models.StatusPending, models.StatusValid)
	require.NoError(t, err)

	// The second pending record must not become a second active credential.
	_, err = s.UpdateStatusIf(context.Background(), second.Label, models.StatusPending, models.StatusValid)
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	rec, err := s.FindByLabel(context.Background(), second.Label)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, rec.Status)
}

func TestStoreReturnsCopies(t *testing.T) {
	s := New()
	rec := newRecord(t, "alice@example.com")
	rec.Claims = map[string]string{"role": "member"}
	require.NoError(t, s.Save(context.Background(), rec))

	found, err := s.FindByLabel(context.Background(), rec.Label)
	require.NoError(t, err)
	found.Claims["role"] = "tampered"
	found.Status = models.StatusRevoked

	again, err := s.FindByLabel(context.Background(), rec.Label)
	require.NoError(t, err)
	assert.Equal(t, "member", again.Claims["role"])
	assert.Equal(t, models.StatusPending, again.Status)
}
