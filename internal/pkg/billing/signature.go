package billing

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// SignWebhookPayload returns the hex HMAC-SHA512 of payload.
func SignWebhookPayload(payload []byte, webhookSecret string) string {
	mac := hmac.New(sha512.New, []byte(webhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks signatureHeader against the HMAC-SHA512 of the
// raw, undecoded request body.
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" || webhookSecret == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha512.New, []byte(webhookSecret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decodedSig)
}
