package services

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestPKCE(t *testing.T) {
	t.Run("GenerateCodeVerifier", func(t *testing.T) {
		verifier, err := GenerateCodeVerifier()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(verifier) != 128 {
			t.Errorf("expected 128 characters, got %d", len(verifier))
		}

		for i, c := range verifier {
			ok := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
			if !ok {
				t.Errorf("character %d is not alphanumeric: %q", i, c)
			}
		}
	})

	t.Run("Verifiers Are Unique", func(t *testing.T) {
		a, err := GenerateCodeVerifier()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		b, err := GenerateCodeVerifier()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if a == b {
			t.Error("two generated verifiers should not collide")
		}
	})

	t.Run("GenerateCodeChallenge", func(t *testing.T) {
		verifier := "test_verifier_value"

		first := GenerateCodeChallenge(verifier)
		second := GenerateCodeChallenge(verifier)
		if first != second {
			t.Error("challenge should be deterministic for the same verifier")
		}

		other := GenerateCodeChallenge("different_verifier")
		if first == other {
			t.Error("different verifiers should produce different challenges")
		}

		hash := sha256.Sum256([]byte(verifier))
		want := base64.RawURLEncoding.EncodeToString(hash[:])
		if first != want {
			t.Errorf("expected %s, got %s", want, first)
		}

		decoded, err := base64.RawURLEncoding.DecodeString(first)
		if err != nil {
			t.Fatalf("challenge should be valid base64url without padding: %v", err)
		}
		if len(decoded) != sha256.Size {
			t.Errorf("expected %d hash bytes, got %d", sha256.Size, len(decoded))
		}
	})

	t.Run("GenerateState", func(t *testing.T) {
		state, err := GenerateState()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(state) != 16 {
			t.Errorf("expected 16 characters, got %d", len(state))
		}
		for i, c := range state {
			ok := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
			if !ok {
				t.Errorf("character %d is not alphanumeric: %q", i, c)
			}
		}
	})
}
