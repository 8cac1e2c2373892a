package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prwire/subscriber/internal/store"
)

// Service reads and updates subscriber records. All writes go through the
// store's optimistic Update so concurrent platform connections for the same
// user cannot drop each other's changes.
type Service struct {
	store     store.Store
	threshold int
	now       func() time.Time
}

// NewService creates a Service. threshold is the follower count at which the
// verified badge is granted.
func NewService(st store.Store, threshold int) *Service {
	return &Service{
		store:     st,
		threshold: threshold,
		now:       time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Threshold returns the verified badge follower threshold.
func (s *Service) Threshold() int {
	return s.threshold
}

// Get returns the user's record, or store.ErrNotFound if the user never
// connected a platform.
func (s *Service) Get(ctx context.Context, userID string) (*Record, error) {
	raw, err := s.store.Get(ctx, Key(userID))
	if err != nil {
		return nil, err
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode record for %s: %w", userID, err)
	}
	return &record, nil
}

// ConnectPlatform merges freshly fetched platform data into the user's
// record, creating the record on first connection, and recomputes the
// aggregate follower total and verified badge.
func (s *Service) ConnectPlatform(ctx context.Context, userID, platform, handle string, followersCount int) (*Record, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if followersCount < 0 {
		return nil, fmt.Errorf("follower count must be non-negative, got %d", followersCount)
	}

	var updated *Record
	_, err := s.store.Update(ctx, Key(userID), func(current []byte) ([]byte, error) {
		now := s.now().UTC()

		record := newRecord(userID, now)
		if current != nil {
			if err := json.Unmarshal(current, record); err != nil {
				return nil, fmt.Errorf("decode record for %s: %w", userID, err)
			}
		}
		if record.Platforms == nil {
			record.Platforms = make(map[string]Platform)
		}

		record.Platforms[platform] = Platform{
			Handle:         handle,
			FollowersCount: followersCount,
			VerifiedAt:     now,
		}
		record.recompute(s.threshold)

		// lastUpdated never moves backwards, even under clock skew
		if now.After(record.LastUpdated) {
			record.LastUpdated = now
		}

		updated = record
		return json.Marshal(record)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
