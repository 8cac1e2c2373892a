// Package subscriber owns the per-user verification record: which platforms
// a user connected, their cached follower counts, and the derived aggregate
// totals and verified badge.
package subscriber

import (
	"time"
)

// keyPrefix namespaces subscriber records in the key-value store.
const keyPrefix = "subscriber:"

// Key returns the store key for a user's record.
func Key(userID string) string {
	return keyPrefix + userID
}

// Platform is the cached state of one connected platform account.
type Platform struct {
	Handle         string    `json:"handle"`
	FollowersCount int       `json:"followersCount"`
	VerifiedAt     time.Time `json:"verifiedAt"`
}

// Record is the persisted per-user verification record. TotalFollowers and
// VerifiedBadge are derived fields, recomputed on every write so they are
// never stale relative to the platform map.
type Record struct {
	UserID         string              `json:"userId"`
	Platforms      map[string]Platform `json:"platforms"`
	TotalFollowers int                 `json:"totalFollowers"`
	VerifiedBadge  bool                `json:"verifiedBadge"`
	JoinDate       time.Time           `json:"joinDate"`
	LastUpdated    time.Time           `json:"lastUpdated"`
}

// newRecord initializes an empty record; records are created lazily on the
// first successful platform connection.
func newRecord(userID string, now time.Time) *Record {
	return &Record{
		UserID:      userID,
		Platforms:   make(map[string]Platform),
		JoinDate:    now,
		LastUpdated: now,
	}
}

// Platform returns the stored state for a platform, if connected.
func (r *Record) Platform(name string) (Platform, bool) {
	p, ok := r.Platforms[name]
	return p, ok
}

// recompute refreshes the derived fields from the platform map.
func (r *Record) recompute(threshold int) {
	total := 0
	for _, p := range r.Platforms {
		total += p.FollowersCount
	}
	r.TotalFollowers = total
	r.VerifiedBadge = total >= threshold
}
