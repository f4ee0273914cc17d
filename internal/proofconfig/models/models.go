package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "credon/pkg/domain-errors"
	"credon/pkg/domain"
)

// Predicate is a zero-knowledge predicate requirement, proven without
// revealing the underlying value.
type Predicate struct {
	Attribute string `json:"attribute"`
	Op        string `json:"op"`
	Value     int    `json:"value"`
}

var validOps = map[string]bool{">": true, ">=": true, "<": true, "<=": true}

// Config is one versioned proof requirement. Configs are append-only; the
// newest row per owner is the one in force.
type Config struct {
	ID         uuid.UUID        `json:"id"`
	OwnerLabel domain.Label     `json:"ownerLabel"`
	CredDefID  domain.CredDefID `json:"credDefId"`
	Attributes []string         `json:"attributes"`
	Predicate  *Predicate       `json:"predicate,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// Validate checks structural requirements before a config is stored.
func (c *Config) Validate() error {
	if c.OwnerLabel.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "ownerLabel is required")
	}
	if c.CredDefID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "credDefId is required")
	}
	if len(c.Attributes) == 0 && c.Predicate == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one attribute or a predicate is required")
	}
	if c.Predicate != nil && !validOps[c.Predicate.Op] {
		return dErrors.New(dErrors.CodeValidation, "predicate op must be one of >, >=, <, <=")
	}
	return nil
}
