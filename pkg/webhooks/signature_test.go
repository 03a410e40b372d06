package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSign(t *testing.T) {
	body := []byte(`{"event":"meter_reading.created","data":{}}`)

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, expected, Sign(body, "secret"))
}

func TestSign_DependsOnSecretAndBody(t *testing.T) {
	body := []byte(`{"event":"device.offline"}`)

	assert.NotEqual(t, Sign(body, "secret-a"), Sign(body, "secret-b"))
	assert.NotEqual(t, Sign(body, "secret"), Sign([]byte(`{"event":"device.online"}`), "secret"))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"alert.triggered","data":{"severity":"high"}}`)
	sig := Sign(body, "secret")

	assert.True(t, VerifySignature(body, sig, "secret"))
	assert.False(t, VerifySignature(body, sig, "wrong"))
	assert.False(t, VerifySignature([]byte(`tampered`), sig, "secret"))
	assert.False(t, VerifySignature(body, "deadbeef", "secret"))
}
