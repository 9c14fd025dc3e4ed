package signing

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"strconv"
)

// BuildNonce creates the HMAC-SHA1 request nonce.
//
// Parameters:
//   - secret: API secret key, used as raw UTF-8 key material
//   - timestamp: unix time in milliseconds
//   - endpoint: API endpoint path (e.g., "/auth/login")
//   - body: canonical payload JSON, empty when the request has no payload
//
// The message to sign is the concatenation: timestamp + endpoint + body.
//
// Returns the lowercase hex-encoded digest, or "" when secret is empty.
func BuildNonce(secret string, timestamp int64, endpoint, body string) string {
	if secret == "" {
		return ""
	}

	message := strconv.FormatInt(timestamp, 10) + endpoint + body

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(message))

	return hex.EncodeToString(mac.Sum(nil))
}

// HashPassword returns the lowercase hex SHA-1 digest the login endpoint
// expects in place of the plain password.
func HashPassword(password string) string {
	sum := sha1.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}
