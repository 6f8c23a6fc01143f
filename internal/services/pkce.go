package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
)

const (
	verifierLength = 128
	stateLength    = 16
	alphanumeric   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateCodeVerifier returns a 128-character PKCE code verifier drawn
// uniformly from [A-Za-z0-9] using a cryptographically secure source.
func GenerateCodeVerifier() (string, error) {
	return randomAlphanumeric(verifierLength)
}

// GenerateCodeChallenge returns the base64url (no padding) encoding of the
// SHA-256 hash of the verifier. Deterministic; the provider re-derives the
// same value from the verifier sent at exchange time.
func GenerateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// GenerateState returns a 16-character random state token for CSRF protection.
func GenerateState() (string, error) {
	return randomAlphanumeric(stateLength)
}

func randomAlphanumeric(n int) (string, error) {
	max := big.NewInt(int64(len(alphanumeric)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		out[i] = alphanumeric[idx.Int64()]
	}
	return string(out), nil
}
