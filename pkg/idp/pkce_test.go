package idp

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func TestGeneratePKCE(t *testing.T) {
	verifier, challenge, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("GeneratePKCE() error = %v", err)
	}

	if len(verifier) != 43 { // 32 bytes, base64url without padding
		t.Errorf("verifier length = %d, want 43", len(verifier))
	}
	if strings.ContainsAny(verifier, "+/=") {
		t.Errorf("verifier %q is not URL-safe unpadded", verifier)
	}

	sum := sha256.Sum256([]byte(verifier))
	if want := base64.RawURLEncoding.EncodeToString(sum[:]); challenge != want {
		t.Errorf("challenge = %q, want %q", challenge, want)
	}
	if want := oauth2.S256ChallengeFromVerifier(verifier); challenge != want {
		t.Errorf("challenge = %q, want x/oauth2 result %q", challenge, want)
	}
}

func TestGeneratePKCE_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		verifier, _, err := GeneratePKCE()
		if err != nil {
			t.Fatal(err)
		}
		if seen[verifier] {
			t.Fatalf("verifier %q generated twice", verifier)
		}
		seen[verifier] = true
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatal(err)
	}
	b, err := GenerateState()
	if err != nil {
		t.Fatal(err)
	}

	if a == b {
		t.Errorf("two states are equal: %q", a)
	}
	raw, err := base64.RawURLEncoding.DecodeString(a)
	if err != nil {
		t.Fatalf("state %q is not base64url: %v", a, err)
	}
	if len(raw) < 18 {
		t.Errorf("state carries %d bytes of entropy, want >= 18", len(raw))
	}
}
