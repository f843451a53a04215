// Package eventhandler содержит обработчики доменных событий.
// Обработчики реагируют на уже закоммиченные изменения и запускают
// побочные эффекты: сброс кешей, аудит.
package eventhandler

import (
	"context"
	"time"

	"github.com/fitcrew/trainer-hub/internal/domain/leaderboard"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON AWARD HANDLER
// Сбрасывает закешированный рейтинг по значкам, когда у участника
// изменились счётчики значков.
// ═══════════════════════════════════════════════════════════════════════════

// OnAwardHandler обрабатывает badge.awarded и trophy.awarded.
type OnAwardHandler struct {
	cache   leaderboard.Cache
	timeout time.Duration
	logger  *logger.Logger
}

// NewOnAwardHandler создаёт обработчик. cache может быть nil - тогда
// обработчик ничего не делает.
func NewOnAwardHandler(cache leaderboard.Cache, log *logger.Logger) *OnAwardHandler {
	return &OnAwardHandler{
		cache:   cache,
		timeout: 5 * time.Second,
		logger:  logger.OrNop(log).Named("on_award"),
	}
}

// Handle реализует shared.EventHandler.
func (h *OnAwardHandler) Handle(event shared.Event) error {
	award, ok := event.(shared.AwardEvent)
	if !ok {
		h.logger.Warn("received non-award event", "event_type", event.EventType())
		return nil
	}
	if h.cache == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	if err := h.cache.InvalidateBadgeTop(ctx); err != nil {
		h.logger.Warn("failed to invalidate badge ranking",
			logger.MemberID(award.AggregateID()),
			"badge", award.Badge,
			logger.Err(err),
		)
		return err
	}
	h.logger.Debug("badge ranking invalidated", logger.MemberID(award.AggregateID()), "badge", award.Badge)
	return nil
}

// EventTypes - события, на которые подписывается обработчик.
func (h *OnAwardHandler) EventTypes() []shared.EventType {
	return []shared.EventType{shared.EventBadgeAwarded, shared.EventTrophyAwarded}
}
