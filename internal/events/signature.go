package events

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// webhook headers
const (
	SignatureHeader = "X-Webhook-Signature"
	TimestampHeader = "X-Webhook-Timestamp"
)

const signaturePrefix = "sha256="

// errors
var (
	ErrSignatureMismatch = errors.New("events: signature mismatch")
	ErrMissingSignature  = errors.New("events: missing signature or timestamp")
	ErrStaleTimestamp    = errors.New("events: timestamp out of tolerance")
)

// Sign returns the signature header value of the given body: `sha256=<hex HMAC-SHA256 of "{timestamp}.{body}">`
func Sign(secret, timestamp string, body []byte) string {
	return signaturePrefix + hex.EncodeToString(mac(secret, timestamp, body))
}

// VerifySignature verifies the signature header value of the given body in constant time
func VerifySignature(secret, timestamp, signature string, body []byte) error {
	if signature == "" || timestamp == "" {
		return ErrMissingSignature
	}
	got, err := hex.DecodeString(strings.TrimPrefix(signature, signaturePrefix))
	if err != nil {
		return ErrSignatureMismatch
	}
	if !hmac.Equal(got, mac(secret, timestamp, body)) {
		return ErrSignatureMismatch
	}
	return nil
}

// CheckTimestamp checks that the UNIX timestamp is within maxSkew of now, a maxSkew <= 0 disables the check
func CheckTimestamp(timestamp string, now time.Time, maxSkew time.Duration) error {
	if maxSkew <= 0 {
		return nil
	}
	sec, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrStaleTimestamp
	}
	if d := now.Sub(time.Unix(sec, 0)); d > maxSkew || d < -maxSkew {
		return ErrStaleTimestamp
	}
	return nil
}

func mac(secret, timestamp string, body []byte) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(timestamp))
	h.Write([]byte{'.'})
	h.Write(body)
	return h.Sum(nil)
}
