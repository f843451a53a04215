package command

import (
	"context"
	"fmt"

	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/internal/domain/member"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// DeleteGoalCommand deactivates the member's active goal of Kind.
type DeleteGoalCommand struct {
	MemberID string
	Kind     goal.Kind
}

// DeleteGoalResult reports whether a goal was active. Deleting a kind with
// no active goal is not an error.
type DeleteGoalResult struct {
	Deactivated bool
	Events      []shared.Event
}

type DeleteGoalHandler struct {
	goals          goal.Repository
	cal            *calendar.Calendar
	eventPublisher shared.EventPublisher
}

func NewDeleteGoalHandler(goals goal.Repository, cal *calendar.Calendar, eventPublisher shared.EventPublisher) *DeleteGoalHandler {
	return &DeleteGoalHandler{
		goals:          goals,
		cal:            cal,
		eventPublisher: shared.PublisherOrNop(eventPublisher),
	}
}

func (h *DeleteGoalHandler) Handle(ctx context.Context, cmd DeleteGoalCommand) (*DeleteGoalResult, error) {
	if err := member.ValidateID(cmd.MemberID); err != nil {
		return nil, err
	}
	kind, err := goal.ParseKind(string(cmd.Kind))
	if err != nil {
		return nil, err
	}

	at := h.cal.Now()
	ok, err := h.goals.Deactivate(ctx, cmd.MemberID, kind, at)
	if err != nil {
		return nil, fmt.Errorf("delete_goal: %w", err)
	}

	result := &DeleteGoalResult{Deactivated: ok}
	if ok {
		event := shared.NewGoalDeactivatedEvent(cmd.MemberID, string(kind), at)
		result.Events = append(result.Events, event)
		_ = h.eventPublisher.Publish(event)
	}
	return result, nil
}
