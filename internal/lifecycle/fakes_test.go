package lifecycle_test

import (
	"context"
	"fmt"
	"sync"

	"credon/internal/agent"
)

// fakeVerifier scripts the verifier agent: a fixed connection list and a
// sequence of proof exchange snapshots served in order.
type fakeVerifier struct {
	mu sync.Mutex

	connections []agent.Connection
	listErr     error

	// When set, the next ListConnections signals listEntered and then
	// blocks on listRelease, letting tests hold a flow mid-air.
	listEntered chan struct{}
	listRelease chan struct{}

	proofStates []agent.ProofExchange
	pollCalls   int
	sendErr     error
	getErr      error

	deletedExchanges   []string
	deletedConnections []string
}

func (f *fakeVerifier) ListConnections(_ context.Context, theirLabel string) ([]agent.Connection, error) {
	f.mu.Lock()
	entered, release := f.listEntered, f.listRelease
	f.listEntered = nil
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if theirLabel == "" {
		return f.connections, nil
	}
	var out []agent.Connection
	for _, conn := range f.connections {
		if conn.TheirLabel == theirLabel {
			out = append(out, conn)
		}
	}
	return out, nil
}

func (f *fakeVerifier) DeleteConnection(_ context.Context, connectionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedConnections = append(f.deletedConnections, connectionID)
	return nil
}

func (f *fakeVerifier) CreateInvitation(context.Context, string) (*agent.Invitation, error) {
	return &agent.Invitation{InvitationURL: "http://agent/invite"}, nil
}

func (f *fakeVerifier) SendProofRequest(_ context.Context, connectionID string, _ agent.ProofRequestSpec) (*agent.ProofExchange, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &agent.ProofExchange{PresExID: "pres-1", ConnectionID: connectionID, State: agent.ProofStateRequestSent}, nil
}

// GetProofExchange serves the scripted snapshots, holding on the last one.
func (f *fakeVerifier) GetProofExchange(_ context.Context, presExID string) (*agent.ProofExchange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if len(f.proofStates) == 0 {
		return nil, fmt.Errorf("no scripted proof state for %s", presExID)
	}
	idx := f.pollCalls
	if idx >= len(f.proofStates) {
		idx = len(f.proofStates) - 1
	}
	f.pollCalls++
	exchange := f.proofStates[idx]
	return &exchange, nil
}

func (f *fakeVerifier) ListProofExchanges(context.Context, string, string) ([]agent.ProofExchange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.proofStates, nil
}

func (f *fakeVerifier) DeleteProofExchange(_ context.Context, presExID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedExchanges = append(f.deletedExchanges, presExID)
	return nil
}

// fakeIssuer scripts the issuer agent.
type fakeIssuer struct {
	mu sync.Mutex

	offerErr    error
	offerCredEx string
	offers      []map[string]string

	// Same gating scheme as fakeVerifier, for the offer call.
	offerEntered chan struct{}
	offerRelease chan struct{}

	exchanges []agent.CredentialExchange

	revokeErr error
	revoked   []string

	deletedExchanges []string
}

func (f *fakeIssuer) ListConnections(context.Context, string) ([]agent.Connection, error) {
	return nil, nil
}

func (f *fakeIssuer) SendCredentialOffer(_ context.Context, connectionID, _, _ string, attributes map[string]string) (*agent.CredentialExchange, error) {
	f.mu.Lock()
	entered, release := f.offerEntered, f.offerRelease
	f.offerEntered = nil
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offerErr != nil {
		return nil, f.offerErr
	}
	f.offers = append(f.offers, attributes)
	return &agent.CredentialExchange{
		CredExID:     f.offerCredEx,
		ConnectionID: connectionID,
		State:        agent.CredExStateOfferSent,
	}, nil
}

func (f *fakeIssuer) ListCredentialExchanges(context.Context, string, string) ([]agent.CredentialExchange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exchanges, nil
}

func (f *fakeIssuer) DeleteCredentialExchange(_ context.Context, credExID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedExchanges = append(f.deletedExchanges, credExID)
	return nil
}

func (f *fakeIssuer) Revoke(_ context.Context, credExID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.revoked = append(f.revoked, credExID)
	return nil
}

// verifiedProof builds a terminal verified proof exchange revealing the
// given email.
func verifiedProof(email string) agent.ProofExchange {
	raw := fmt.Sprintf(`{
		"pres_ex_id": "pres-1",
		"state": "done",
		"verified": "true",
		"by_format": {
			"pres": {"indy": {"requested_proof": {"revealed_attrs": {"email": {"raw": %q}}}}}
		}
	}`, email)
	var pe agent.ProofExchange
	if err := unmarshal(raw, &pe); err != nil {
		panic(err)
	}
	return pe
}
