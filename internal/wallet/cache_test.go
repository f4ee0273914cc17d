package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credon/internal/agent"
)

func TestUsableAfterRefresh(t *testing.T) {
	cache := NewCache()
	cache.Refresh(context.Background(), []agent.WalletCredential{
		{Referent: "ref-1", CredDefID: "creddef:a"},
	})

	referent, ok := cache.Usable("creddef:a")
	require.True(t, ok)
	assert.Equal(t, "ref-1", referent)

	_, ok = cache.Usable("creddef:other")
	assert.False(t, ok)
}

func TestRevokedCredentialUnusable(t *testing.T) {
	cache := NewCache()
	cache.Refresh(context.Background(), []agent.WalletCredential{
		{Referent: "ref-1", CredDefID: "creddef:a"},
	})
	cache.MarkRevoked("creddef:a", time.Now())

	_, ok := cache.Usable("creddef:a")
	assert.False(t, ok)

	creds := cache.List()
	require.Len(t, creds, 1)
	assert.NotNil(t, creds[0].RevokedAt)
}

func TestWebhookBeforeRefreshStillApplies(t *testing.T) {
	// A revocation learned while the cache was empty must survive the next
	// refresh, covering webhooks that raced the wallet sync.
	cache := NewCache()
	cache.MarkRevoked("creddef:a", time.Now())

	cache.Refresh(context.Background(), []agent.WalletCredential{
		{Referent: "ref-1", CredDefID: "creddef:a"},
		{Referent: "ref-2", CredDefID: "creddef:b"},
	})

	_, ok := cache.Usable("creddef:a")
	assert.False(t, ok)

	referent, ok := cache.Usable("creddef:b")
	require.True(t, ok)
	assert.Equal(t, "ref-2", referent)
}

func TestMarkRevokedIdempotent(t *testing.T) {
	cache := NewCache()
	first := time.Now().Add(-time.Hour)
	cache.MarkRevoked("creddef:a", first)
	cache.MarkRevoked("creddef:a", time.Now())

	cache.Refresh(context.Background(), []agent.WalletCredential{
		{Referent: "ref-1", CredDefID: "creddef:a"},
	})
	creds := cache.List()
	require.Len(t, creds, 1)
	require.NotNil(t, creds[0].RevokedAt)
	assert.True(t, creds[0].RevokedAt.Equal(first))
}
