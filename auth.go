package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rentdynamics/rd-client-go/signing"
)

// Login authenticates a user and stores the returned session token, which is
// sent as "Authorization: TOKEN <token>" on every later request. The password
// is hashed with SHA-1 before it leaves the process.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	if username == "" {
		return nil, &ValidationError{Field: "username", Message: "must not be empty"}
	}

	raw, err := c.Post(ctx, EndpointLogin, loginRequest{
		Username: username,
		Password: signing.HashPassword(password),
	})
	if err != nil {
		return nil, err
	}

	var out LoginResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("rentdynamics: parsing login response: %w", err)
	}
	if out.Token == "" {
		return nil, &AuthError{Message: "login response did not include a token"}
	}
	out.Raw = raw

	c.SetAuthToken(out.Token)
	c.logger.V(1).Info("logged in", "username", username)
	return &out, nil
}

// Logout ends the current session and clears the stored token. The token is
// kept if the request fails.
func (c *Client) Logout(ctx context.Context) (json.RawMessage, error) {
	raw, err := c.Post(ctx, EndpointLogout, logoutRequest{AuthToken: c.AuthToken()})
	if err != nil {
		return nil, err
	}
	c.SetAuthToken("")
	c.logger.V(1).Info("logged out")
	return raw, nil
}
