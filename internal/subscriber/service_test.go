package subscriber

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prwire/subscriber/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, func() time.Time) {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(store.NewMemoryStore(), 10000)
	svc.SetClock(func() time.Time { return now })
	return svc, func() time.Time { return now }
}

func TestConnectPlatformCreatesRecord(t *testing.T) {
	ctx := context.Background()
	svc, now := newTestService(t)

	_, err := svc.Get(ctx, "user-1")
	assert.ErrorIs(t, err, store.ErrNotFound, "no record exists before the first connection")

	record, err := svc.ConnectPlatform(ctx, "user-1", "twitter", "alice", 1200)
	require.NoError(t, err)

	want := &Record{
		UserID: "user-1",
		Platforms: map[string]Platform{
			"twitter": {Handle: "alice", FollowersCount: 1200, VerifiedAt: now()},
		},
		TotalFollowers: 1200,
		VerifiedBadge:  false,
		JoinDate:       now(),
		LastUpdated:    now(),
	}
	if diff := cmp.Diff(want, record); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	stored, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	if diff := cmp.Diff(want, stored); diff != "" {
		t.Errorf("stored record mismatch (-want +got):\n%s", diff)
	}
}

func TestConnectPlatformAggregatesAcrossPlatforms(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.ConnectPlatform(ctx, "user-1", "youtube", "alice-channel", 500)
	require.NoError(t, err)

	record, err := svc.ConnectPlatform(ctx, "user-1", "twitter", "alice", 15000)
	require.NoError(t, err)

	assert.Equal(t, 15500, record.TotalFollowers)
	assert.True(t, record.VerifiedBadge)
	assert.Len(t, record.Platforms, 2)
}

func TestConnectPlatformRecomputesBadgeBothWays(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	record, err := svc.ConnectPlatform(ctx, "user-1", "twitter", "alice", 12000)
	require.NoError(t, err)
	assert.True(t, record.VerifiedBadge)

	// a refresh below the threshold revokes the badge
	record, err = svc.ConnectPlatform(ctx, "user-1", "twitter", "alice", 9000)
	require.NoError(t, err)
	assert.False(t, record.VerifiedBadge)
	assert.Equal(t, 9000, record.TotalFollowers)
}

func TestConnectPlatformOverwritesSamePlatform(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.ConnectPlatform(ctx, "user-1", "twitter", "alice", 100)
	require.NoError(t, err)

	record, err := svc.ConnectPlatform(ctx, "user-1", "twitter", "alice_renamed", 250)
	require.NoError(t, err)

	assert.Len(t, record.Platforms, 1)
	assert.Equal(t, "alice_renamed", record.Platforms["twitter"].Handle)
	assert.Equal(t, 250, record.TotalFollowers)
}

func TestConnectPlatformRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.ConnectPlatform(ctx, "", "twitter", "alice", 1)
	assert.Error(t, err)

	_, err = svc.ConnectPlatform(ctx, "user-1", "twitter", "alice", -1)
	assert.Error(t, err)
}

func TestConnectPlatformDerivedFieldsInvariant(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	counts := []int{0, 1, 9999, 10000, 10001, 250000}
	for _, c := range counts {
		record, err := svc.ConnectPlatform(ctx, "user-1", "twitter", "alice", c)
		require.NoError(t, err)

		sum := 0
		for _, p := range record.Platforms {
			sum += p.FollowersCount
		}
		assert.Equal(t, sum, record.TotalFollowers)
		assert.Equal(t, record.TotalFollowers >= 10000, record.VerifiedBadge)
	}
}

func TestLastUpdatedMonotone(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base

	svc := NewService(store.NewMemoryStore(), 10000)
	svc.SetClock(func() time.Time { return current })

	_, err := svc.ConnectPlatform(ctx, "user-1", "twitter", "alice", 1)
	require.NoError(t, err)

	// clock skew backwards must not move lastUpdated backwards
	current = base.Add(-time.Hour)
	record, err := svc.ConnectPlatform(ctx, "user-1", "twitter", "alice", 2)
	require.NoError(t, err)
	assert.Equal(t, base, record.LastUpdated)
}
