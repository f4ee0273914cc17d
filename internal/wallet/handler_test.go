package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credon/internal/agent"
)

type fakeWalletAgent struct {
	credentials []agent.WalletCredential
	exchanges   []agent.ProofExchange

	deleted   []string
	deleteErr error
}

func (f *fakeWalletAgent) ListWalletCredentials(context.Context) ([]agent.WalletCredential, error) {
	return f.credentials, nil
}

func (f *fakeWalletAgent) DeleteWalletCredential(_ context.Context, referent string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, referent)
	return nil
}

func (f *fakeWalletAgent) ListProofExchanges(context.Context, string, string) ([]agent.ProofExchange, error) {
	return f.exchanges, nil
}

func (f *fakeWalletAgent) SendPresentation(_ context.Context, presExID, _ string, _ []string) (*agent.ProofExchange, error) {
	return &agent.ProofExchange{PresExID: presExID, State: agent.ProofStatePresentationSent}, nil
}

func newWalletRouter(cache *Cache, agentClient AgentClient) chi.Router {
	r := chi.NewRouter()
	NewHandler(cache, agentClient, slog.New(slog.DiscardHandler)).Register(r)
	return r
}

func postRevocationWebhook(r chi.Router, payload map[string]string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/wallet/webhooks/revocation", bytes.NewReader(body)))
	return rec
}

func TestRevocationWebhookDeletesWalletCopies(t *testing.T) {
	cache := NewCache()
	cache.Refresh(context.Background(), []agent.WalletCredential{
		{Referent: "ref-1", CredDefID: "creddef:a"},
		{Referent: "ref-2", CredDefID: "creddef:b"},
	})
	fake := &fakeWalletAgent{}
	r := newWalletRouter(cache, fake)

	rec := postRevocationWebhook(r, map[string]string{"cred_def_id": "creddef:a", "status": "revoked"})
	require.Equal(t, http.StatusOK, rec.Code)

	// The revoked definition's wallet copy is gone; the other one survives.
	assert.Equal(t, []string{"ref-1"}, fake.deleted)
	_, ok := cache.Usable("creddef:a")
	assert.False(t, ok)
	referent, ok := cache.Usable("creddef:b")
	require.True(t, ok)
	assert.Equal(t, "ref-2", referent)
}

func TestRevocationWebhookIgnoresOtherStatuses(t *testing.T) {
	cache := NewCache()
	cache.Refresh(context.Background(), []agent.WalletCredential{
		{Referent: "ref-1", CredDefID: "creddef:a"},
	})
	fake := &fakeWalletAgent{}
	r := newWalletRouter(cache, fake)

	rec := postRevocationWebhook(r, map[string]string{"cred_def_id": "creddef:a", "status": "issued"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, fake.deleted)

	_, ok := cache.Usable("creddef:a")
	assert.True(t, ok)
}

func TestRevocationWebhookKeepsEntryWhenWalletDeleteFails(t *testing.T) {
	cache := NewCache()
	cache.Refresh(context.Background(), []agent.WalletCredential{
		{Referent: "ref-1", CredDefID: "creddef:a"},
	})
	fake := &fakeWalletAgent{deleteErr: errors.New("agent down")}
	r := newWalletRouter(cache, fake)

	rec := postRevocationWebhook(r, map[string]string{"cred_def_id": "creddef:a", "status": "revoked"})
	require.Equal(t, http.StatusOK, rec.Code)

	// The copy stays cached but annotated, so it still cannot be presented.
	creds := cache.List()
	require.Len(t, creds, 1)
	assert.NotNil(t, creds[0].RevokedAt)
	_, ok := cache.Usable("creddef:a")
	assert.False(t, ok)
}
