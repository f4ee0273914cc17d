package agent

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type connectionList struct {
	Results []Connection `json:"results"`
}

// ListConnections returns connections known to the agent, optionally filtered
// by the counterpart's label.
func (c *Client) ListConnections(ctx context.Context, theirLabel string) ([]Connection, error) {
	path := "/connections"
	if theirLabel != "" {
		path += "?their_label=" + url.QueryEscape(theirLabel)
	}
	var list connectionList
	if err := c.do(ctx, "list_connections", http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Results, nil
}

// GetConnection fetches one connection by id.
func (c *Client) GetConnection(ctx context.Context, connectionID string) (*Connection, error) {
	var conn Connection
	if err := c.do(ctx, "get_connection", http.MethodGet, "/connections/"+connectionID, nil, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// DeleteConnection removes a connection record from the agent.
func (c *Client) DeleteConnection(ctx context.Context, connectionID string) error {
	return c.do(ctx, "delete_connection", http.MethodDelete, "/connections/"+connectionID, nil, nil)
}

// SendTrustPing sends a trust ping over an established connection to confirm
// it is live end to end.
func (c *Client) SendTrustPing(ctx context.Context, connectionID string) error {
	body := map[string]string{"comment": "ping"}
	return c.do(ctx, "send_trust_ping", http.MethodPost,
		fmt.Sprintf("/connections/%s/send-ping", connectionID), body, nil)
}

type createInvitationRequest struct {
	HandshakeProtocols []string `json:"handshake_protocols"`
	UsePublicDID       bool     `json:"use_public_did"`
	MyLabel            string   `json:"my_label,omitempty"`
}

// CreateInvitation asks the agent for a new out-of-band invitation.
func (c *Client) CreateInvitation(ctx context.Context, label string) (*Invitation, error) {
	body := createInvitationRequest{
		HandshakeProtocols: []string{"https://didcomm.org/connections/1.0"},
		UsePublicDID:       false,
		MyLabel:            label,
	}
	var inv Invitation
	if err := c.do(ctx, "create_invitation", http.MethodPost,
		"/out-of-band/create-invitation?auto_accept=true", body, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// ReceiveInvitation hands a raw invitation to the agent, which starts the
// handshake with the inviting party. Returns the new connection record.
func (c *Client) ReceiveInvitation(ctx context.Context, invitation map[string]any) (*Connection, error) {
	var conn Connection
	if err := c.do(ctx, "receive_invitation", http.MethodPost,
		"/out-of-band/receive-invitation?auto_accept=true", invitation, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}
