package leaderboard

import (
	"context"
	"time"

	"github.com/fitcrew/trainer-hub/internal/domain/activity"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository строит рейтинги прямо из хранилища.
type Repository interface {
	// TopByBadges возвращает топ по weekly + monthly + bikini.
	TopByBadges(ctx context.Context, limit int) ([]Entry, error)

	// TopByActivity возвращает топ по сумме счётчика за окно.
	// Участники без записей попадают в рейтинг с нулём (outer join).
	TopByActivity(ctx context.Context, kind activity.Kind, window calendar.Range, limit int) ([]Entry, error)
}

// Cache - кеш рейтинга по значкам (Redis). Отделён от репозитория,
// чтобы работать и без Redis.
type Cache interface {
	// GetBadgeTop возвращает (nil, false, nil) при промахе.
	GetBadgeTop(ctx context.Context, limit int) ([]Entry, bool, error)

	// SetBadgeTop сохраняет топ с TTL.
	SetBadgeTop(ctx context.Context, limit int, entries []Entry, ttl time.Duration) error

	// InvalidateBadgeTop сбрасывает все закешированные топы.
	InvalidateBadgeTop(ctx context.Context) error
}
