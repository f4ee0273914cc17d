package agent

import (
	"context"
	"net/http"
)

type createSchemaRequest struct {
	SchemaName    string   `json:"schema_name"`
	SchemaVersion string   `json:"schema_version"`
	Attributes    []string `json:"attributes"`
}

type createSchemaResponse struct {
	SchemaID string `json:"schema_id"`
}

// CreateSchema registers a schema on the ledger and returns its id.
func (c *Client) CreateSchema(ctx context.Context, name, version string, attributes []string) (string, error) {
	body := createSchemaRequest{
		SchemaName:    name,
		SchemaVersion: version,
		Attributes:    attributes,
	}
	var resp createSchemaResponse
	if err := c.do(ctx, "create_schema", http.MethodPost, "/schemas", body, &resp); err != nil {
		return "", err
	}
	return resp.SchemaID, nil
}

type schemaEnvelope struct {
	Schema Schema `json:"schema"`
}

// GetSchema fetches a ledger schema by id.
func (c *Client) GetSchema(ctx context.Context, schemaID string) (*Schema, error) {
	var env schemaEnvelope
	if err := c.do(ctx, "get_schema", http.MethodGet, "/schemas/"+schemaID, nil, &env); err != nil {
		return nil, err
	}
	return &env.Schema, nil
}

type schemaIDList struct {
	SchemaIDs []string `json:"schema_ids"`
}

// ListSchemas lists schema ids created by this agent.
func (c *Client) ListSchemas(ctx context.Context) ([]string, error) {
	var list schemaIDList
	if err := c.do(ctx, "list_schemas", http.MethodGet, "/schemas/created", nil, &list); err != nil {
		return nil, err
	}
	return list.SchemaIDs, nil
}

type createCredDefRequest struct {
	SchemaID               string `json:"schema_id"`
	SupportRevocation      bool   `json:"support_revocation"`
	Tag                    string `json:"tag"`
	RevocationRegistrySize int    `json:"revocation_registry_size,omitempty"`
}

type createCredDefResponse struct {
	CredentialDefinitionID string `json:"credential_definition_id"`
}

// CreateCredentialDefinition publishes a credential definition for the schema.
// registrySize is only sent when revocation support is on.
func (c *Client) CreateCredentialDefinition(ctx context.Context, schemaID, tag string, supportRevocation bool, registrySize int) (string, error) {
	body := createCredDefRequest{
		SchemaID:          schemaID,
		SupportRevocation: supportRevocation,
		Tag:               tag,
	}
	if supportRevocation {
		body.RevocationRegistrySize = registrySize
	}
	var resp createCredDefResponse
	if err := c.do(ctx, "create_credential_definition", http.MethodPost,
		"/credential-definitions", body, &resp); err != nil {
		return "", err
	}
	return resp.CredentialDefinitionID, nil
}

type credDefIDList struct {
	CredentialDefinitionIDs []string `json:"credential_definition_ids"`
}

// ListCredentialDefinitions lists credential definition ids created by this
// agent.
func (c *Client) ListCredentialDefinitions(ctx context.Context) ([]string, error) {
	var list credDefIDList
	if err := c.do(ctx, "list_credential_definitions", http.MethodGet,
		"/credential-definitions/created", nil, &list); err != nil {
		return nil, err
	}
	return list.CredentialDefinitionIDs, nil
}
