// Package pkce implements the Proof Key for Code Exchange transform from
// RFC 7636 using the S256 challenge method.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// ChallengeMethodS256 is the only challenge method this service emits.
	ChallengeMethodS256 = "S256"

	// verifierEntropyBytes yields a 43 character verifier once base64url
	// encoded, the RFC 7636 minimum length.
	verifierEntropyBytes = 32

	// stateEntropyBytes yields a 43 character state token.
	stateEntropyBytes = 32
)

// Pair is a freshly generated verifier with its derived challenge. The
// verifier is the secret half and must never be sent to the user agent or
// written to logs.
type Pair struct {
	Verifier  string
	Challenge string
}

// NewPair generates a random code verifier and computes its S256 challenge.
// Every authorization attempt gets its own pair.
func NewPair() (Pair, error) {
	verifier, err := randomToken(verifierEntropyBytes)
	if err != nil {
		return Pair{}, fmt.Errorf("generate code verifier: %w", err)
	}
	return Pair{
		Verifier:  verifier,
		Challenge: ChallengeS256(verifier),
	}, nil
}

// ChallengeS256 computes base64url(SHA-256(verifier)) without padding,
// per RFC 7636 Section 4.2.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NewState generates a random anti-forgery state token.
func NewState() (string, error) {
	state, err := randomToken(stateEntropyBytes)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return state, nil
}

// randomToken returns n bytes of cryptographic randomness encoded with the
// unpadded base64url alphabet, a subset of the unreserved URL character set.
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
