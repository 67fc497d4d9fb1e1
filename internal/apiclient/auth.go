package apiclient

import (
	"context"
	"net/http"

	"rollcall/internal/model"
)

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.Token, error) {
	var out model.Token
	err := c.do(ctx, "auth.login", http.MethodPost, "/auth/login", creds, &out)
	return out, err
}

// Me returns the user owning the session token.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var out model.User
	err := c.do(ctx, "auth.me", http.MethodGet, "/auth/me", nil, &out)
	return out, err
}
