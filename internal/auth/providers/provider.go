package providers

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

var (
	// ErrNotConfigured indicates missing provider credentials
	ErrNotConfigured = errors.New("provider credentials are not configured")

	// ErrMissingAccessToken indicates a token response without an access_token field
	ErrMissingAccessToken = errors.New("token response missing access_token")

	// ErrProfileNotFound indicates the provider returned no usable profile payload
	ErrProfileNotFound = errors.New("user profile not found")
)

// UpstreamError carries the status and body of a rejected provider call so
// callers can log it before mapping the failure to a generic reason.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider request failed with status %d: %s", e.Status, e.Body)
}

// Profile is the authenticated social profile a provider resolves: the
// platform handle plus its public follower count.
type Profile struct {
	ID             string
	Name           string
	Username       string
	FollowersCount int
}

// Provider defines the interface that all social platform providers implement
type Provider interface {
	// Name returns the platform name used as the key in subscriber records
	Name() string

	// Configured reports whether OAuth client credentials are present
	Configured() bool

	// AuthCodeURL returns the provider authorization URL for the given
	// state and S256 code challenge
	AuthCodeURL(state, codeChallenge string) string

	// Exchange trades an authorization code plus its PKCE verifier for an
	// access token
	Exchange(ctx context.Context, code, codeVerifier string) (*oauth2.Token, error)

	// FetchProfile fetches the authenticated user's profile with a user
	// access token
	FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error)

	// LookupHandle resolves a public handle with app-only credentials
	LookupHandle(ctx context.Context, handle string) (*Profile, error)
}
