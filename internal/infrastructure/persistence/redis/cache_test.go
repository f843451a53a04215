package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcrew/trainer-hub/internal/domain/leaderboard"
	"github.com/fitcrew/trainer-hub/internal/domain/member"
)

// newTestCache connects to TRAINER_TEST_REDIS_ADDR or skips.
func newTestCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("TRAINER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TRAINER_TEST_REDIS_ADDR not set")
	}
	cfg := DefaultConfig()
	cfg.Addr = addr
	cfg.KeyPrefix = "test:" + uuid.NewString()[:8] + ":"

	c, err := NewCache(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.DeleteByPattern(context.Background(), cfg.KeyPrefix+"*")
		_ = c.Close()
	})
	return c
}

func TestRankingCache_Key(t *testing.T) {
	rc := NewRankingCache(NewCacheFromClient(nil, "trainer:"))
	assert.Equal(t, "trainer:ranking:badges:5", rc.badgeKey(5))
}

func TestRankingCache_RoundTripAndInvalidate(t *testing.T) {
	ctx := context.Background()
	rc := NewRankingCache(newTestCache(t))

	_, hit, err := rc.GetBadgeTop(ctx, 5)
	require.NoError(t, err)
	assert.False(t, hit)

	entries := []leaderboard.Entry{
		{Rank: 1, MemberID: "a", Nickname: "A", Score: 3, Badges: &member.Badges{Weekly: 2, Monthly: 1}},
		{Rank: 2, MemberID: "b", Score: 1, Badges: &member.Badges{Bikini: 1}},
	}
	require.NoError(t, rc.SetBadgeTop(ctx, 5, entries, time.Minute))
	require.NoError(t, rc.SetBadgeTop(ctx, 10, entries, time.Minute))

	got, hit, err := rc.GetBadgeTop(ctx, 5)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, entries, got)

	require.NoError(t, rc.InvalidateBadgeTop(ctx))
	for _, limit := range []int{5, 10} {
		_, hit, err = rc.GetBadgeTop(ctx, limit)
		require.NoError(t, err)
		assert.False(t, hit)
	}
}

func TestLocker_Exclusive(t *testing.T) {
	ctx := context.Background()
	locker := NewLocker(newTestCache(t), time.Minute)

	release, err := locker.Acquire(ctx, "weekly")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "weekly")
	assert.ErrorIs(t, err, ErrLockHeld)

	release()
	release2, err := locker.Acquire(ctx, "weekly")
	require.NoError(t, err)
	release2()
}
