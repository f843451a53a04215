// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
package query

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fitcrew/trainer-hub/internal/domain/leaderboard"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
	"github.com/fitcrew/trainer-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET RANKING QUERY
// Топ участников по значкам или по активности за окно.
// Рейтинг по значкам может обслуживаться из кеша (Redis).
// ══════════════════════════════════════════════════════════════════════════════

// GetRankingQuery содержит параметры запроса рейтинга.
type GetRankingQuery struct {
	Kind leaderboard.Kind

	// Window - окно для рейтингов активности (по умолчанию текущая неделя).
	// Для рейтинга по значкам игнорируется.
	Window calendar.Range

	// Limit - количество записей (0 = значение из конфигурации).
	Limit int
}

// GetRankingHandlerConfig - настройки обработчика.
type GetRankingHandlerConfig struct {
	DefaultLimit int
	CacheTTL     time.Duration
}

// GetRankingHandler обрабатывает запросы рейтингов.
type GetRankingHandler struct {
	repo   leaderboard.Repository
	cache  leaderboard.Cache // nil - без кеша
	cal    *calendar.Calendar
	config GetRankingHandlerConfig
	group  singleflight.Group
	log    *logger.Logger
}

// NewGetRankingHandler создаёт новый обработчик запроса рейтинга.
func NewGetRankingHandler(
	repo leaderboard.Repository,
	cache leaderboard.Cache,
	cal *calendar.Calendar,
	config GetRankingHandlerConfig,
	log *logger.Logger,
) *GetRankingHandler {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = leaderboard.DefaultLimit
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 30 * time.Second
	}
	return &GetRankingHandler{
		repo:   repo,
		cache:  cache,
		cal:    cal,
		config: config,
		log:    logger.OrNop(log).Named("ranking"),
	}
}

// Handle выполняет запрос.
func (h *GetRankingHandler) Handle(ctx context.Context, q GetRankingQuery) (*leaderboard.Ranking, error) {
	kind, err := leaderboard.ParseKind(string(q.Kind))
	if err != nil {
		return nil, err
	}
	limit := leaderboard.NormalizeLimit(q.Limit, h.config.DefaultLimit)

	ranking := &leaderboard.Ranking{Kind: kind, GeneratedAt: h.cal.Now()}

	if ak, ok := kind.ActivityKind(); ok {
		window, err := resolveWindow(h.cal, q.Window)
		if err != nil {
			return nil, err
		}
		entries, err := h.repo.TopByActivity(ctx, ak, window, limit)
		if err != nil {
			return nil, fmt.Errorf("get_ranking: %w", err)
		}
		ranking.Window = &window
		ranking.Entries = entries
		return ranking, nil
	}

	entries, err := h.badgeTop(ctx, limit)
	if err != nil {
		return nil, err
	}
	ranking.Entries = entries
	return ranking, nil
}

// badgeTop читает из кеша; одновременные промахи сворачиваются в один
// запрос к базе.
func (h *GetRankingHandler) badgeTop(ctx context.Context, limit int) ([]leaderboard.Entry, error) {
	if h.cache != nil {
		entries, hit, err := h.cache.GetBadgeTop(ctx, limit)
		if err != nil {
			h.log.Warn("ranking cache read failed", logger.Err(err))
		} else if hit {
			return entries, nil
		}
	}

	v, err, _ := h.group.Do(strconv.Itoa(limit), func() (any, error) {
		entries, err := h.repo.TopByBadges(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("get_ranking: %w", err)
		}
		if h.cache != nil {
			if err := h.cache.SetBadgeTop(ctx, limit, entries, h.config.CacheTTL); err != nil {
				h.log.Warn("ranking cache write failed", logger.Err(err))
			}
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]leaderboard.Entry), nil
}
