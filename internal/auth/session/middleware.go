package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/prwire/subscriber/internal/httputil"
)

type identityContextKey struct{}

const bearerPrefix = "Bearer "

// FromContext extracts the verified caller identity from the request context.
func FromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*Identity)
	return identity, ok
}

// WithIdentity stores an identity on the context, mainly for tests.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// Require rejects requests without a valid session token with a 401 JSON
// error and otherwise injects the caller identity into the context.
func (v *Verifier) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := v.identify(r)
		if err != nil {
			httputil.WriteError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// Optional injects the caller identity when a valid session token is present
// and passes the request through unchanged otherwise.
func (v *Verifier) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, err := v.identify(r); err == nil {
			r = r.WithContext(WithIdentity(r.Context(), identity))
		}
		next.ServeHTTP(w, r)
	})
}

func (v *Verifier) identify(r *http.Request) (*Identity, error) {
	token := v.extractToken(r)
	if token == "" {
		return nil, ErrInvalidToken
	}
	return v.Verify(token)
}

// extractToken reads the session token from the session cookie or the
// Authorization header.
func (v *Verifier) extractToken(r *http.Request) string {
	if v.cookieName != "" {
		if cookie, err := r.Cookie(v.cookieName); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimPrefix(authHeader, bearerPrefix)
	}
	return ""
}

// CORS sets permissive cross-origin headers and short-circuits preflight
// requests.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
