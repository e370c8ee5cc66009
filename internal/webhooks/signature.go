package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// sigPrefix names the MAC scheme in the X-Signature header.
const sigPrefix = "sha256="

// Sign returns the X-Signature value for a callback body: "sha256=" followed
// by the lowercase hex HMAC-SHA256 of body keyed with secret.
func Sign(secret string, body []byte) string {
	return sigPrefix + hex.EncodeToString(mac(secret, body))
}

// VerifyHMAC checks an X-Signature header value against body. Receivers of
// run callbacks use it with the callbackSecret they supplied. A bare hex
// digest without the scheme prefix is accepted too.
func VerifyHMAC(secret string, body []byte, provided string) bool {
	got, err := hex.DecodeString(strings.TrimPrefix(provided, sigPrefix))
	if err != nil {
		return false
	}
	return hmac.Equal(mac(secret, body), got)
}

func mac(secret string, body []byte) []byte {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write(body)
	return m.Sum(nil)
}
