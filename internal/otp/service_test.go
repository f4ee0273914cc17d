package otp

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "credon/pkg/domain-errors"
	"credon/pkg/domain"
)

type capturingSender struct {
	email string
	code  string
}

func (c *capturingSender) Send(_ context.Context, email, code string) error {
	c.email = email
	c.code = code
	return nil
}

func newTestService(store Store, sender Sender) *Service {
	return New(store, sender, 5*time.Minute, slog.New(slog.DiscardHandler))
}

func TestIssueAndVerify(t *testing.T) {
	sender := &capturingSender{}
	svc := newTestService(NewMemory(), sender)

	require.NoError(t, svc.Issue(context.Background(), "alice@example.com"))
	assert.Equal(t, "alice@example.com", sender.email)
	require.Len(t, sender.code, 6)

	contactID := domain.HashContact("alice@example.com")
	assert.NoError(t, svc.Verify(context.Background(), contactID, sender.code))
}

func TestCodeIsSingleUse(t *testing.T) {
	sender := &capturingSender{}
	svc := newTestService(NewMemory(), sender)
	require.NoError(t, svc.Issue(context.Background(), "alice@example.com"))

	contactID := domain.HashContact("alice@example.com")
	require.NoError(t, svc.Verify(context.Background(), contactID, sender.code))

	err := svc.Verify(context.Background(), contactID, sender.code)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestWrongCodeSpendsTheCode(t *testing.T) {
	sender := &capturingSender{}
	svc := newTestService(NewMemory(), sender)
	require.NoError(t, svc.Issue(context.Background(), "alice@example.com"))

	contactID := domain.HashContact("alice@example.com")
	require.Error(t, svc.Verify(context.Background(), contactID, "000000"))

	// The right code no longer works either.
	err := svc.Verify(context.Background(), contactID, sender.code)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestExpiredCodeRejected(t *testing.T) {
	store := NewMemory()
	current := time.Now()
	store.now = func() time.Time { return current }

	sender := &capturingSender{}
	svc := newTestService(store, sender)
	require.NoError(t, svc.Issue(context.Background(), "alice@example.com"))

	current = current.Add(6 * time.Minute)

	contactID := domain.HashContact("alice@example.com")
	err := svc.Verify(context.Background(), contactID, sender.code)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestReissueReplacesCode(t *testing.T) {
	sender := &capturingSender{}
	svc := newTestService(NewMemory(), sender)

	require.NoError(t, svc.Issue(context.Background(), "alice@example.com"))
	first := sender.code
	require.NoError(t, svc.Issue(context.Background(), "alice@example.com"))
	second := sender.code

	contactID := domain.HashContact("alice@example.com")
	if first != second {
		require.Error(t, svc.Verify(context.Background(), contactID, first))
		// Store is spent now, reissue before checking the live code.
		require.NoError(t, svc.Issue(context.Background(), "alice@example.com"))
	}
	assert.NoError(t, svc.Verify(context.Background(), contactID, sender.code))
}

func TestMemoryPurge(t *testing.T) {
	store := NewMemory()
	current := time.Now()
	store.now = func() time.Time { return current }

	require.NoError(t, store.Put(context.Background(), "contact-a", []byte("hash"), time.Minute))
	require.NoError(t, store.Put(context.Background(), "contact-b", []byte("hash"), time.Hour))

	current = current.Add(30 * time.Minute)
	assert.Equal(t, 1, store.Purge(context.Background()))

	_, err := store.Consume(context.Background(), "contact-b")
	assert.NoError(t, err)
}
