package agent

import (
	"context"
	"net/http"
	"net/url"
)

type credExchangeList struct {
	Results []credExchangeEnvelope `json:"results"`
}

// The records endpoint wraps each exchange in an envelope keyed by protocol.
type credExchangeEnvelope struct {
	CredExRecord CredentialExchange `json:"cred_ex_record"`
}

// ListCredentialExchanges returns issuance records, optionally filtered by
// connection and state.
func (c *Client) ListCredentialExchanges(ctx context.Context, connectionID, state string) ([]CredentialExchange, error) {
	q := url.Values{}
	if connectionID != "" {
		q.Set("connection_id", connectionID)
	}
	if state != "" {
		q.Set("state", state)
	}
	path := "/issue-credential-2.0/records"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var list credExchangeList
	if err := c.do(ctx, "list_credential_exchanges", http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	out := make([]CredentialExchange, 0, len(list.Results))
	for _, env := range list.Results {
		out = append(out, env.CredExRecord)
	}
	return out, nil
}

// DeleteCredentialExchange removes an issuance record from the agent.
func (c *Client) DeleteCredentialExchange(ctx context.Context, credExID string) error {
	return c.do(ctx, "delete_credential_exchange", http.MethodDelete,
		"/issue-credential-2.0/records/"+credExID, nil, nil)
}

type credentialPreview struct {
	Type       string             `json:"@type"`
	Attributes []previewAttribute `json:"attributes"`
}

type previewAttribute struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Value    string `json:"value"`
}

type sendOfferRequest struct {
	AutoRemove        bool              `json:"auto_remove"`
	Comment           string            `json:"comment,omitempty"`
	ConnectionID      string            `json:"connection_id"`
	CredentialPreview credentialPreview `json:"credential_preview"`
	Filter            struct {
		Indy struct {
			SchemaID  string `json:"schema_id"`
			CredDefID string `json:"cred_def_id"`
		} `json:"indy"`
	} `json:"filter"`
}

// SendCredentialOffer offers a credential with the given attribute values
// over the connection. auto_remove stays off so the exchange id survives
// long enough to be captured; the record is deleted explicitly afterwards.
func (c *Client) SendCredentialOffer(ctx context.Context, connectionID, schemaID, credDefID string, attributes map[string]string) (*CredentialExchange, error) {
	body := sendOfferRequest{
		AutoRemove:   false,
		ConnectionID: connectionID,
		CredentialPreview: credentialPreview{
			Type:       "issue-credential/2.0/credential-preview",
			Attributes: make([]previewAttribute, 0, len(attributes)),
		},
	}
	for name, value := range attributes {
		body.CredentialPreview.Attributes = append(body.CredentialPreview.Attributes, previewAttribute{
			Name:     name,
			MimeType: "plain/text",
			Value:    value,
		})
	}
	body.Filter.Indy.SchemaID = schemaID
	body.Filter.Indy.CredDefID = credDefID

	var ce CredentialExchange
	if err := c.do(ctx, "send_credential_offer", http.MethodPost,
		"/issue-credential-2.0/send", body, &ce); err != nil {
		return nil, err
	}
	return &ce, nil
}

type revokeRequest struct {
	CredExID      string `json:"cred_ex_id"`
	Publish       bool   `json:"publish"`
	Notify        bool   `json:"notify"`
	NotifyVersion string `json:"notify_version"`
	Comment       string `json:"comment,omitempty"`
}

// Revoke revokes the credential issued in the given exchange and publishes
// the updated revocation registry entry immediately. The holder's agent is
// notified over the existing connection.
func (c *Client) Revoke(ctx context.Context, credExID, comment string) error {
	body := revokeRequest{
		CredExID:      credExID,
		Publish:       true,
		Notify:        true,
		NotifyVersion: "v1_0",
		Comment:       comment,
	}
	return c.do(ctx, "revoke", http.MethodPost, "/revocation/revoke", body, nil)
}
