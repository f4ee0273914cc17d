// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "credon/pkg/domain-errors"
)

// HolderID identifies a holder record in our own store.
type HolderID uuid.UUID

// Agent-side identifiers are opaque strings minted by the credential agent.
// Distinct types keep a pres_ex_id from ever being passed where a
// connection_id is expected.
type (
	ConnectionID   string
	ProofExchangeID string
	CredExchangeID string
	CredDefID      string
	SchemaID       string
)

// Label is the pseudonymous, stable identifier of a holder's wallet. It is a
// session pseudonym, not a security boundary; authoritative lookups key on
// the hashed contact identifier.
type Label string

func ParseHolderID(s string) (HolderID, error) {
	if s == "" {
		return HolderID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "holder ID cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return HolderID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "holder ID must be a valid UUID")
	}
	return HolderID(id), nil
}

// NewHolderID mints a random holder ID.
func NewHolderID() HolderID { return HolderID(uuid.New()) }

// NewLabel mints a random wallet label for first-contact holders.
func NewLabel() Label { return Label("holder-" + uuid.NewString()[:8]) }

func (id HolderID) String() string       { return uuid.UUID(id).String() }
func (id ConnectionID) String() string   { return string(id) }
func (id ProofExchangeID) String() string { return string(id) }
func (id CredExchangeID) String() string { return string(id) }
func (id CredDefID) String() string      { return string(id) }
func (id SchemaID) String() string       { return string(id) }
func (l Label) String() string           { return string(l) }

func (id HolderID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ConnectionID) IsNil() bool   { return id == "" }
func (id ProofExchangeID) IsNil() bool { return id == "" }
func (id CredExchangeID) IsNil() bool { return id == "" }
func (id CredDefID) IsNil() bool      { return id == "" }
func (id SchemaID) IsNil() bool       { return id == "" }
func (l Label) IsNil() bool           { return l == "" }
