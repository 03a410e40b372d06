package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex HMAC-SHA256 signature of body using the endpoint's
// shared secret. The body must be the exact bytes transmitted: the receiver
// verifies against what it reads off the wire, not a re-serialized copy.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature verifies a delivery signature in constant time
func VerifySignature(body []byte, signature, secret string) bool {
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
