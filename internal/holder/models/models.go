package models

import (
	"time"

	"credon/pkg/domain"
)

// Status is the lifecycle state of a holder's credential.
type Status string

const (
	// StatusUnregistered means the holder exists but no credential flow has started.
	StatusUnregistered Status = "unregistered"
	// StatusPending means a credential offer is outstanding, waiting on verified claims.
	StatusPending Status = "pending"
	// StatusValid means the holder carries a live credential.
	StatusValid Status = "valid"
	// StatusRevoked means the credential was revoked.
	StatusRevoked Status = "revoked"
	// StatusReinstated means a revoked credential was re-issued with its original claims.
	StatusReinstated Status = "reinstated"
)

var validTransitions = map[Status][]Status{
	StatusUnregistered: {StatusPending},
	StatusPending:      {StatusValid},
	StatusValid:        {StatusRevoked},
	StatusRevoked:      {StatusReinstated},
	StatusReinstated:   {StatusRevoked},
}

// CanTransitionTo reports whether the lifecycle permits moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Active reports whether the status represents a live credential.
func (s Status) Active() bool {
	return s == StatusValid || s == StatusReinstated
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusUnregistered, StatusPending, StatusValid, StatusRevoked, StatusReinstated:
		return true
	}
	return false
}

// Record is one holder's credential lifecycle state. Records are never
// hard-deleted; revocation and reinstatement only move the status.
type Record struct {
	ID        domain.HolderID   `json:"id"`
	Label     domain.Label      `json:"label"`
	ContactID domain.ContactID  `json:"contactId,omitempty"`
	Claims    map[string]string `json:"claims,omitempty"`

	// Agent-side references, captured during the flow and cleared when the
	// underlying agent records are deleted.
	ConnectionID         domain.ConnectionID   `json:"connectionId,omitempty"`
	CredentialExchangeID domain.CredExchangeID `json:"credentialExchangeId,omitempty"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewRecord creates a pending record for a freshly verified holder.
func NewRecord(label domain.Label, contactID domain.ContactID, now time.Time) *Record {
	return &Record{
		ID:        domain.NewHolderID(),
		Label:     label,
		ContactID: contactID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so store callers cannot mutate shared state.
func (r *Record) Clone() *Record {
	cp := *r
	if r.Claims != nil {
		cp.Claims = make(map[string]string, len(r.Claims))
		for k, v := range r.Claims {
			cp.Claims[k] = v
		}
	}
	return &cp
}
