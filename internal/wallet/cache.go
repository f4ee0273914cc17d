package wallet

import (
	"context"
	"sync"
	"time"

	"credon/internal/agent"
	"credon/pkg/domain"
)

// Credential is a holder-side view of a wallet credential, annotated with
// revocation knowledge received out of band.
type Credential struct {
	Referent  string           `json:"referent"`
	CredDefID domain.CredDefID `json:"credDefId"`
	SchemaID  domain.SchemaID  `json:"schemaId,omitempty"`
	RevokedAt *time.Time       `json:"revokedAt,omitempty"`
}

// Cache mirrors the holder agent's wallet and tracks which credential
// definitions have been revoked. Webhooks feed the revoked set; a lookup
// against the cache is how the holder refuses to present dead credentials.
type Cache struct {
	mu          sync.RWMutex
	credentials map[string]*Credential
	revoked     map[domain.CredDefID]time.Time
}

// NewCache constructs an empty wallet cache.
func NewCache() *Cache {
	return &Cache{
		credentials: make(map[string]*Credential),
		revoked:     make(map[domain.CredDefID]time.Time),
	}
}

// Refresh replaces the cached credential set from the agent's wallet
// contents, preserving revocation annotations.
func (c *Cache) Refresh(_ context.Context, creds []agent.WalletCredential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fresh := make(map[string]*Credential, len(creds))
	for _, wc := range creds {
		cred := &Credential{
			Referent:  wc.Referent,
			CredDefID: domain.CredDefID(wc.CredDefID),
			SchemaID:  domain.SchemaID(wc.SchemaID),
		}
		if revokedAt, ok := c.revoked[cred.CredDefID]; ok {
			at := revokedAt
			cred.RevokedAt = &at
		}
		fresh[wc.Referent] = cred
	}
	c.credentials = fresh
}

// MarkRevoked records that all credentials under the definition are revoked
// and returns the referents of the cached copies it marked, so callers can
// delete the wallet-side records too. Idempotent; the first revocation time
// wins.
func (c *Cache) MarkRevoked(credDefID domain.CredDefID, at time.Time) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.revoked[credDefID]; !ok {
		c.revoked[credDefID] = at
	}
	var referents []string
	for _, cred := range c.credentials {
		if cred.CredDefID == credDefID && cred.RevokedAt == nil {
			ts := at
			cred.RevokedAt = &ts
			referents = append(referents, cred.Referent)
		}
	}
	return referents
}

// Remove drops a credential from the cache after its wallet copy is gone.
func (c *Cache) Remove(referent string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.credentials, referent)
}

// Usable returns the referent of a live credential under the definition, or
// false when none exists or the definition is revoked. The revoked set is
// consulted on every call so a webhook arriving after Refresh still counts.
func (c *Cache) Usable(credDefID domain.CredDefID) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, revoked := c.revoked[credDefID]; revoked {
		return "", false
	}
	for _, cred := range c.credentials {
		if cred.CredDefID == credDefID && cred.RevokedAt == nil {
			return cred.Referent, true
		}
	}
	return "", false
}

// List returns the cached credentials.
func (c *Cache) List() []*Credential {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Credential, 0, len(c.credentials))
	for _, cred := range c.credentials {
		cp := *cred
		out = append(out, &cp)
	}
	return out
}
