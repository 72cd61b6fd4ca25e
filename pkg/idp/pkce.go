package idp

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	pkceVerifierLength = 32 // 256 bits of entropy
	stateLength        = 24
)

// GeneratePKCE generates a fresh PKCE code verifier and its S256 code challenge
func GeneratePKCE() (verifier, challenge string, err error) {
	buf := make([]byte, pkceVerifierLength)
	if _, err = rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("idp: error generating PKCE verifier: %w", err)
	}

	verifier = base64.RawURLEncoding.EncodeToString(buf)
	return verifier, ChallengeFromVerifier(verifier), nil
}

// ChallengeFromVerifier returns the S256 code challenge of the given verifier
func ChallengeFromVerifier(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateState generates a random OAuth state, independent of any PKCE verifier
func GenerateState() (string, error) {
	buf := make([]byte, stateLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("idp: error generating state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
