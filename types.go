package client

import "encoding/json"

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

// LoginResponse is the body returned by POST /auth/login. Raw keeps the full
// response, which carries user and company fields beyond the token.
type LoginResponse struct {
	Token string          `json:"token"`
	Raw   json.RawMessage `json:"-"`
}

// loginRequest is sent to /auth/login. Password is the SHA-1 hex digest of
// the plaintext password, never the plaintext.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// logoutRequest is sent to /auth/logout. An empty token is omitted, leaving an
// empty object.
type logoutRequest struct {
	AuthToken string `json:"authToken,omitempty"`
}
