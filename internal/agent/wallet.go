package agent

import (
	"context"
	"net/http"
)

type walletCredentialList struct {
	Results []WalletCredential `json:"results"`
}

// ListWalletCredentials lists credentials held in the agent's wallet.
func (c *Client) ListWalletCredentials(ctx context.Context) ([]WalletCredential, error) {
	var list walletCredentialList
	if err := c.do(ctx, "list_wallet_credentials", http.MethodGet, "/credentials", nil, &list); err != nil {
		return nil, err
	}
	return list.Results, nil
}

// DeleteWalletCredential removes a credential from the wallet by referent.
func (c *Client) DeleteWalletCredential(ctx context.Context, referent string) error {
	return c.do(ctx, "delete_wallet_credential", http.MethodDelete, "/credential/"+referent, nil, nil)
}
