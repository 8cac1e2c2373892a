// Package session verifies the session tokens issued by the external
// identity provider. The provider signs an HS256 JWT with a shared secret;
// this service only validates it and extracts the caller's stable identity.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prwire/subscriber/internal/config"
)

// ErrInvalidToken indicates a session token that failed verification
var ErrInvalidToken = errors.New("session: invalid token")

// Identity is the verified caller identity extracted from a session token.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// sessionClaims is the internal claims type used for JWT parsing.
type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Verifier validates session JWTs against the shared signing secret.
type Verifier struct {
	secret     []byte
	cookieName string
	issuer     string
	now        func() time.Time
}

// NewVerifier creates a Verifier from configuration.
func NewVerifier(cfg *config.SessionConfig) *Verifier {
	return &Verifier{
		secret:     []byte(cfg.Secret),
		cookieName: cfg.CookieName,
		issuer:     cfg.Issuer,
		now:        time.Now,
	}
}

// Verify parses and validates a session token, returning the caller identity.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	var claims sessionClaims

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Identity{
		UserID: userID,
		Email:  claims.Email,
		Name:   claims.Name,
	}, nil
}
