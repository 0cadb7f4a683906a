// Package signature implements the HMAC request-authentication scheme.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign computes the lower-case hex HMAC-SHA-256 digest of payload keyed by
// secret. Clients and tests use it to construct valid requests.
func Sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether provided matches the expected digest of payload.
// The provided value is trimmed and compared case-insensitively. Returns
// false, never an error, when secret or provided is empty. The comparison is
// constant-time.
func Verify(secret, payload, provided string) bool {
	if secret == "" {
		return false
	}
	normalized := strings.ToLower(strings.TrimSpace(provided))
	if normalized == "" {
		return false
	}
	expected := Sign(secret, payload)
	return hmac.Equal([]byte(expected), []byte(normalized))
}
