package eventhandler

import (
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/logger"
)

// AuditLogHandler пишет каждое доменное событие одной строкой лога.
type AuditLogHandler struct {
	logger *logger.Logger
}

func NewAuditLogHandler(log *logger.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.OrNop(log).Named("audit")}
}

func (h *AuditLogHandler) Handle(event shared.Event) error {
	h.logger.Info("domain event",
		"event_id", event.EventID(),
		"event_type", string(event.EventType()),
		logger.MemberID(event.AggregateID()),
		"occurred_at", event.OccurredAt(),
		"payload", event.Payload(),
	)
	return nil
}
