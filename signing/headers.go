// Package signing builds the authentication headers of the Rent Dynamics API:
// an HMAC-SHA1 nonce over the request timestamp, endpoint path and canonical
// payload.
package signing

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rentdynamics/rd-client-go/payload"
)

// Header key constants used by the Rent Dynamics API.
const (
	HeaderAPIKey        = "x-rd-api-key"
	HeaderNonce         = "x-rd-api-nonce"
	HeaderTimestamp     = "x-rd-timestamp"
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
)

const (
	// AuthorizationScheme prefixes the session token in the Authorization header.
	AuthorizationScheme = "TOKEN"
	ContentTypeJSON     = "application/json"
)

// Credentials holds the values needed to sign a request.
type Credentials struct {
	APIKey       string
	APISecretKey string
	AuthToken    string // optional session token from login
}

// CanSign reports whether both the API key and secret are set.
func (c Credentials) CanSign() bool {
	return c.APIKey != "" && c.APISecretKey != ""
}

// BuildHeaders returns signed headers for a request to endpoint, timestamped
// with the current wall-clock time. A nil body means the request carries no
// payload.
func BuildHeaders(creds Credentials, endpoint string, body *payload.Value) (http.Header, error) {
	return BuildHeadersAt(creds, endpoint, body, time.Now())
}

// BuildHeadersAt is BuildHeaders with an explicit clock reading.
//
// Without both an API key and secret the result is an empty header set.
// Otherwise the body is normalized and serialized canonically, and the nonce
// and x-rd-timestamp header share the same millisecond timestamp.
func BuildHeadersAt(creds Credentials, endpoint string, body *payload.Value, now time.Time) (http.Header, error) {
	h := http.Header{}
	if !creds.CanSign() {
		return h, nil
	}

	var canonical string
	if body != nil {
		data, err := payload.CanonicalJSON(payload.Normalize(*body))
		if err != nil {
			return nil, fmt.Errorf("signing: serializing payload: %w", err)
		}
		canonical = string(data)
	}

	timestamp := now.UnixMilli()
	nonce := BuildNonce(creds.APISecretKey, timestamp, endpoint, canonical)

	if creds.AuthToken != "" {
		h.Set(HeaderAuthorization, AuthorizationScheme+" "+creds.AuthToken)
	}
	h.Set(HeaderAPIKey, creds.APIKey)
	h.Set(HeaderNonce, nonce)
	h.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	h.Set(HeaderContentType, ContentTypeJSON)
	return h, nil
}
