package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	dErrors "credon/pkg/domain-errors"
)

// ContactID is the one-way digest of a holder's verified email address.
// The clear-text address never enters the credential store or proof
// requests once verified; only this digest is persisted and compared.
type ContactID string

// HashContact derives the canonical ContactID from an email address.
// Normalization (trim + lowercase) happens before hashing so the same
// mailbox always maps to the same digest regardless of how the holder
// typed it.
func HashContact(email string) ContactID {
	normalized := strings.ToLower(strings.TrimSpace(email))
	sum := sha256.Sum256([]byte(normalized))
	return ContactID(hex.EncodeToString(sum[:]))
}

// ParseContactID validates an already-hashed contact identifier.
func ParseContactID(s string) (ContactID, error) {
	if len(s) != sha256.Size*2 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "contact ID must be a hex SHA-256 digest")
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "contact ID must be a hex SHA-256 digest")
	}
	return ContactID(strings.ToLower(s)), nil
}

func (c ContactID) String() string { return string(c) }
func (c ContactID) IsNil() bool    { return c == "" }
