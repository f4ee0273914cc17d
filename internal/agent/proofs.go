package agent

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

type proofExchangeList struct {
	Results []ProofExchange `json:"results"`
}

// ListProofExchanges returns proof exchange records, optionally filtered by
// connection and state.
func (c *Client) ListProofExchanges(ctx context.Context, connectionID, state string) ([]ProofExchange, error) {
	q := url.Values{}
	if connectionID != "" {
		q.Set("connection_id", connectionID)
	}
	if state != "" {
		q.Set("state", state)
	}
	path := "/present-proof-2.0/records"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var list proofExchangeList
	if err := c.do(ctx, "list_proof_exchanges", http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Results, nil
}

// GetProofExchange fetches one proof exchange by id.
func (c *Client) GetProofExchange(ctx context.Context, presExID string) (*ProofExchange, error) {
	var pe ProofExchange
	if err := c.do(ctx, "get_proof_exchange", http.MethodGet,
		"/present-proof-2.0/records/"+presExID, nil, &pe); err != nil {
		return nil, err
	}
	return &pe, nil
}

// DeleteProofExchange removes a proof exchange record from the agent.
func (c *Client) DeleteProofExchange(ctx context.Context, presExID string) error {
	return c.do(ctx, "delete_proof_exchange", http.MethodDelete,
		"/present-proof-2.0/records/"+presExID, nil, nil)
}

// ProofRequestSpec describes the proof a verifier wants. Every attribute is
// restricted to the given credential definition, and the whole request
// carries a non-revocation interval anchored at now.
type ProofRequestSpec struct {
	Name       string
	CredDefID  string
	Attributes []string
	Predicates []Predicate
	Comment    string
}

type proofRequestAttr struct {
	Name         string           `json:"name"`
	Restrictions []map[string]any `json:"restrictions"`
	NonRevoked   *nonRevoked      `json:"non_revoked,omitempty"`
}

type proofRequestPred struct {
	Name         string           `json:"name"`
	PType        string           `json:"p_type"`
	PValue       int              `json:"p_value"`
	Restrictions []map[string]any `json:"restrictions"`
	NonRevoked   *nonRevoked      `json:"non_revoked,omitempty"`
}

type nonRevoked struct {
	To int64 `json:"to"`
}

type sendProofRequest struct {
	Comment             string `json:"comment,omitempty"`
	ConnectionID        string `json:"connection_id"`
	PresentationRequest struct {
		Indy struct {
			Name                string                      `json:"name"`
			Version             string                      `json:"version"`
			RequestedAttributes map[string]proofRequestAttr `json:"requested_attributes"`
			RequestedPredicates map[string]proofRequestPred `json:"requested_predicates"`
			NonRevoked          *nonRevoked                 `json:"non_revoked,omitempty"`
		} `json:"indy"`
	} `json:"presentation_request"`
}

// SendProofRequest sends a presentation request over the given connection and
// returns the new proof exchange record.
func (c *Client) SendProofRequest(ctx context.Context, connectionID string, spec ProofRequestSpec) (*ProofExchange, error) {
	now := &nonRevoked{To: time.Now().Unix()}
	restrictions := []map[string]any{{"cred_def_id": spec.CredDefID}}

	body := sendProofRequest{
		Comment:      spec.Comment,
		ConnectionID: connectionID,
	}
	body.PresentationRequest.Indy.Name = spec.Name
	body.PresentationRequest.Indy.Version = "1.0"
	body.PresentationRequest.Indy.NonRevoked = now

	attrs := make(map[string]proofRequestAttr, len(spec.Attributes))
	for _, name := range spec.Attributes {
		attrs[name] = proofRequestAttr{
			Name:         name,
			Restrictions: restrictions,
			NonRevoked:   now,
		}
	}
	body.PresentationRequest.Indy.RequestedAttributes = attrs

	preds := make(map[string]proofRequestPred, len(spec.Predicates))
	for _, p := range spec.Predicates {
		preds[p.Attribute] = proofRequestPred{
			Name:         p.Attribute,
			PType:        p.Op,
			PValue:       p.Value,
			Restrictions: restrictions,
			NonRevoked:   now,
		}
	}
	body.PresentationRequest.Indy.RequestedPredicates = preds

	var pe ProofExchange
	if err := c.do(ctx, "send_proof_request", http.MethodPost,
		"/present-proof-2.0/send-request", body, &pe); err != nil {
		return nil, err
	}
	return &pe, nil
}

type sendPresentationRequest struct {
	Indy struct {
		RequestedAttributes map[string]requestedAttr `json:"requested_attributes"`
		RequestedPredicates map[string]any           `json:"requested_predicates"`
		SelfAttestedAttrs   map[string]string        `json:"self_attested_attributes"`
	} `json:"indy"`
}

type requestedAttr struct {
	CredID   string `json:"cred_id"`
	Revealed bool   `json:"revealed"`
}

// SendPresentation answers a received proof request on the holder side,
// revealing each requested attribute from the wallet credential referent.
func (c *Client) SendPresentation(ctx context.Context, presExID, credentialReferent string, attributeNames []string) (*ProofExchange, error) {
	var body sendPresentationRequest
	body.Indy.RequestedAttributes = make(map[string]requestedAttr, len(attributeNames))
	for _, name := range attributeNames {
		body.Indy.RequestedAttributes[name] = requestedAttr{CredID: credentialReferent, Revealed: true}
	}
	body.Indy.RequestedPredicates = map[string]any{}
	body.Indy.SelfAttestedAttrs = map[string]string{}

	var pe ProofExchange
	if err := c.do(ctx, "send_presentation", http.MethodPost,
		"/present-proof-2.0/records/"+presExID+"/send-presentation", body, &pe); err != nil {
		return nil, err
	}
	return &pe, nil
}
