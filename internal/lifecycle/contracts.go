package lifecycle

import (
	"context"

	"credon/internal/agent"
	"credon/pkg/domain"
)

// VerifierAgent is the slice of the verifier agent the orchestrator drives:
// connection resolution, proof requests and exchange cleanup.
type VerifierAgent interface {
	ListConnections(ctx context.Context, theirLabel string) ([]agent.Connection, error)
	DeleteConnection(ctx context.Context, connectionID string) error
	CreateInvitation(ctx context.Context, label string) (*agent.Invitation, error)
	SendProofRequest(ctx context.Context, connectionID string, spec agent.ProofRequestSpec) (*agent.ProofExchange, error)
	GetProofExchange(ctx context.Context, presExID string) (*agent.ProofExchange, error)
	ListProofExchanges(ctx context.Context, connectionID, state string) ([]agent.ProofExchange, error)
	DeleteProofExchange(ctx context.Context, presExID string) error
}

// IssuerAgent is the slice of the issuer agent the orchestrator drives:
// credential offers, exchange bookkeeping and revocation.
type IssuerAgent interface {
	ListConnections(ctx context.Context, theirLabel string) ([]agent.Connection, error)
	SendCredentialOffer(ctx context.Context, connectionID, schemaID, credDefID string, attributes map[string]string) (*agent.CredentialExchange, error)
	ListCredentialExchanges(ctx context.Context, connectionID, state string) ([]agent.CredentialExchange, error)
	DeleteCredentialExchange(ctx context.Context, credExID string) error
	Revoke(ctx context.Context, credExID, comment string) error
}

// HolderAgent is the slice of the holder agent used during connection
// bootstrap.
type HolderAgent interface {
	ReceiveInvitation(ctx context.Context, invitation map[string]any) (*agent.Connection, error)
	GetConnection(ctx context.Context, connectionID string) (*agent.Connection, error)
	SendTrustPing(ctx context.Context, connectionID string) error
}

// OTPVerifier checks a submitted one-time code for a contact.
type OTPVerifier interface {
	Verify(ctx context.Context, contactID domain.ContactID, code string) error
}
