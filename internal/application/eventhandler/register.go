package eventhandler

import (
	"fmt"

	"github.com/fitcrew/trainer-hub/internal/domain/leaderboard"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/logger"
)

// Register подписывает все обработчики на шину. forward получает каждое
// событие (например, Kafka); nil - без пересылки.
func Register(bus shared.EventSubscriber, cache leaderboard.Cache, forward shared.EventPublisher, log *logger.Logger) error {
	award := NewOnAwardHandler(cache, log)
	for _, t := range award.EventTypes() {
		if err := bus.Subscribe(t, award.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", t, err)
		}
	}
	if err := bus.SubscribeAll(NewAuditLogHandler(log).Handle); err != nil {
		return fmt.Errorf("subscribe audit: %w", err)
	}
	if forward != nil {
		if err := bus.SubscribeAll(forward.Publish); err != nil {
			return fmt.Errorf("subscribe forwarder: %w", err)
		}
	}
	return nil
}
