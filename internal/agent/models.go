package agent

import (
	dErrors "credon/pkg/domain-errors"
)

// Connection is the agent-side pairwise channel record. Owned by the agent;
// this service only references it.
type Connection struct {
	ConnectionID string `json:"connection_id"`
	TheirLabel   string `json:"their_label"`
	State        string `json:"state"`
}

// Connection states the bootstrap flow cares about.
const (
	ConnectionStateResponse = "response"
	ConnectionStateActive   = "active"
)

// Invitation is an out-of-band invitation created by an agent. The URL form
// is what gets shared with the counterpart; the raw form is what the
// counterpart's agent receives.
type Invitation struct {
	InvitationURL string         `json:"invitation_url"`
	Invitation    map[string]any `json:"invitation"`
}

// Proof exchange states as reported by the agent. The exchange walks
// request-sent -> request-received -> presentation-sent -> done.
const (
	ProofStateRequestSent      = "request-sent"
	ProofStateRequestReceived  = "request-received"
	ProofStatePresentationSent = "presentation-sent"
	ProofStateDone             = "done"
	ProofStateAbandoned        = "abandoned"
)

// ProofExchange is the agent-side proof presentation record. The nested
// by_format payload is decoded only as far as this service needs; missing
// structure surfaces as malformed_agent_response instead of a zero value
// deep in business logic.
type ProofExchange struct {
	PresExID     string       `json:"pres_ex_id"`
	ConnectionID string       `json:"connection_id"`
	State        string       `json:"state"`
	Verified     string       `json:"verified"`
	ByFormat     *proofFormat `json:"by_format,omitempty"`
}

type proofFormat struct {
	PresRequest *presRequestFormat `json:"pres_request,omitempty"`
	Pres        *presFormat        `json:"pres,omitempty"`
}

type presRequestFormat struct {
	Indy *struct {
		Name                string                    `json:"name"`
		Version             string                    `json:"version"`
		RequestedAttributes map[string]map[string]any `json:"requested_attributes"`
		RequestedPredicates map[string]map[string]any `json:"requested_predicates"`
	} `json:"indy,omitempty"`
}

type presFormat struct {
	Indy *struct {
		RequestedProof *struct {
			RevealedAttrs map[string]struct {
				Raw string `json:"raw"`
			} `json:"revealed_attrs"`
		} `json:"requested_proof,omitempty"`
	} `json:"indy,omitempty"`
}

// Terminal reports whether the exchange reached a state the agent will not
// advance further.
func (p ProofExchange) Terminal() bool {
	return p.State == ProofStateDone || p.State == ProofStateAbandoned
}

// IsVerified reports the agent's verification verdict. The agent encodes it
// as the string "true"; anything else counts as not verified.
func (p ProofExchange) IsVerified() bool {
	return p.Verified == "true"
}

// RevealedAttributes extracts the disclosed attribute values from a terminal,
// verified exchange. It fails explicitly when the agent payload lacks the
// expected structure.
func (p ProofExchange) RevealedAttributes() (map[string]string, error) {
	if p.ByFormat == nil || p.ByFormat.Pres == nil || p.ByFormat.Pres.Indy == nil ||
		p.ByFormat.Pres.Indy.RequestedProof == nil {
		return nil, dErrors.New(dErrors.CodeMalformedResponse, "proof exchange is missing revealed attributes")
	}
	revealed := p.ByFormat.Pres.Indy.RequestedProof.RevealedAttrs
	attrs := make(map[string]string, len(revealed))
	for name, v := range revealed {
		attrs[name] = v.Raw
	}
	return attrs, nil
}

// RequestedAttributeNames lists the attribute referents of an incoming proof
// request, used by the holder side to build its presentation.
func (p ProofExchange) RequestedAttributeNames() ([]string, error) {
	if p.ByFormat == nil || p.ByFormat.PresRequest == nil || p.ByFormat.PresRequest.Indy == nil {
		return nil, dErrors.New(dErrors.CodeMalformedResponse, "proof exchange is missing the presentation request")
	}
	names := make([]string, 0, len(p.ByFormat.PresRequest.Indy.RequestedAttributes))
	for name := range p.ByFormat.PresRequest.Indy.RequestedAttributes {
		names = append(names, name)
	}
	return names, nil
}

// Credential exchange states this service consumes.
const (
	CredExStateOfferSent = "offer-sent"
	CredExStateDone      = "done"
	CredExStateAbandoned = "abandoned"
)

// CredentialExchange is the agent-side issuance record, consumed once to
// capture its id into the holder record and then deleted.
type CredentialExchange struct {
	CredExID     string `json:"cred_ex_id"`
	ConnectionID string `json:"connection_id"`
	State        string `json:"state"`
}

// WalletCredential is a credential stored in the holder agent's wallet.
type WalletCredential struct {
	Referent  string `json:"referent"`
	CredDefID string `json:"cred_def_id"`
	SchemaID  string `json:"schema_id"`
}

// Predicate is a zero-knowledge predicate restriction in a proof request,
// e.g. {"age", ">=", 18}.
type Predicate struct {
	Attribute string `json:"attribute"`
	Op        string `json:"op"`
	Value     int    `json:"value"`
}

// Schema describes a registered schema on the ledger.
type Schema struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	Attributes []string `json:"attrNames"`
}
