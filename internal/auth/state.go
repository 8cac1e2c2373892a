package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/prwire/subscriber/internal/store"
)

// StateStore persists the state → code verifier mapping for in-flight
// authorization attempts. Entries expire after a bounded TTL and are
// consumed exactly once, so a replayed state cannot resolve a verifier.
type StateStore struct {
	store    store.Store
	platform string
	ttl      time.Duration
}

// NewStateStore creates a StateStore for the given platform.
func NewStateStore(st store.Store, platform string, ttl time.Duration) *StateStore {
	return &StateStore{
		store:    st,
		platform: platform,
		ttl:      ttl,
	}
}

func (s *StateStore) key(state string) string {
	return fmt.Sprintf("oauth:%s:state:%s", s.platform, state)
}

// Save stores the verifier under the state token with the configured TTL.
func (s *StateStore) Save(ctx context.Context, state, verifier string) error {
	if err := s.store.Set(ctx, s.key(state), []byte(verifier), s.ttl); err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	return nil
}

// Consume returns the verifier for state and removes it in the same
// operation. A second call for the same state returns store.ErrNotFound.
func (s *StateStore) Consume(ctx context.Context, state string) (string, error) {
	verifier, err := s.store.ConsumeOnce(ctx, s.key(state))
	if err != nil {
		return "", err
	}
	return string(verifier), nil
}
