package audit

import (
	"context"
	"time"

	"credon/pkg/domain"
)

// Action identifies what happened to a holder's credential.
type Action string

const (
	ActionHolderRegistered     Action = "holder_registered"
	ActionCredentialIssued     Action = "credential_issued"
	ActionCredentialRevoked    Action = "credential_revoked"
	ActionCredentialReinstated Action = "credential_reinstated"
	ActionProofRejected        Action = "proof_rejected"
	ActionSchemaRegistered     Action = "schema_registered"
)

// Event is one audit trail entry. Only pseudonymous identifiers go in; raw
// contact details never do.
type Event struct {
	Timestamp time.Time        `json:"timestamp"`
	Action    Action           `json:"action"`
	Label     domain.Label     `json:"label,omitempty"`
	ContactID domain.ContactID `json:"contactId,omitempty"`
	Operator  string           `json:"operator,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	RequestID string           `json:"requestId,omitempty"`
	Client    string           `json:"client,omitempty"`
}

// Store is an append-only audit sink.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByLabel(ctx context.Context, label domain.Label) ([]Event, error)
}
