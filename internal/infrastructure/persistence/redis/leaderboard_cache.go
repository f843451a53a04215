package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fitcrew/trainer-hub/internal/domain/leaderboard"
)

// RankingCache caches badge rankings as JSON, one key per limit:
//
//	{prefix}ranking:badges:{limit}
//
// Award events drop every limit at once via InvalidateBadgeTop.
type RankingCache struct {
	cache *Cache
}

var _ leaderboard.Cache = (*RankingCache)(nil)

func NewRankingCache(cache *Cache) *RankingCache {
	return &RankingCache{cache: cache}
}

func (r *RankingCache) badgeKey(limit int) string {
	return r.cache.Key(PrefixRanking, "badges:", strconv.Itoa(limit))
}

func (r *RankingCache) GetBadgeTop(ctx context.Context, limit int) ([]leaderboard.Entry, bool, error) {
	var entries []leaderboard.Entry
	err := r.cache.Get(ctx, r.badgeKey(limit), &entries)
	if errors.Is(err, ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read badge ranking: %w", err)
	}
	return entries, true, nil
}

func (r *RankingCache) SetBadgeTop(ctx context.Context, limit int, entries []leaderboard.Entry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = TTLRankingCache
	}
	if err := r.cache.Set(ctx, r.badgeKey(limit), entries, ttl); err != nil {
		return fmt.Errorf("failed to store badge ranking: %w", err)
	}
	return nil
}

func (r *RankingCache) InvalidateBadgeTop(ctx context.Context) error {
	return r.cache.DeleteByPattern(ctx, r.cache.Key(PrefixRanking, "badges:*"))
}
