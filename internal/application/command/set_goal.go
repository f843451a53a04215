package command

import (
	"context"
	"fmt"

	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/internal/domain/member"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET GOAL COMMANDS
// A new goal deactivates the previous active goal of the same kind; the old
// row stays as history.
// ══════════════════════════════════════════════════════════════════════════════

// SetWeightGoalCommand sets the member's weight goal. The end date is taken
// from EndDate, or derived from Weeks when EndDate is zero.
type SetWeightGoalCommand struct {
	MemberID      string
	Nickname      string
	StartDate     calendar.Date // zero means today
	EndDate       calendar.Date
	Weeks         int
	TargetWeight  float64
	CurrentWeight float64
}

// SetFrequencyGoalCommand sets a weekly exercise or diet target.
type SetFrequencyGoalCommand struct {
	MemberID string
	Nickname string
	Kind     goal.Kind
	PerWeek  int
}

// SetGoalResult contains the new active goal.
type SetGoalResult struct {
	Goal   *goal.Goal
	Events []shared.Event
}

// SetGoalHandler handles both goal-setting commands.
type SetGoalHandler struct {
	members        *RegisterMemberHandler
	goals          goal.Repository
	cal            *calendar.Calendar
	eventPublisher shared.EventPublisher
}

// NewSetGoalHandler creates a new SetGoalHandler.
func NewSetGoalHandler(members *RegisterMemberHandler, goals goal.Repository, cal *calendar.Calendar, eventPublisher shared.EventPublisher) *SetGoalHandler {
	return &SetGoalHandler{
		members:        members,
		goals:          goals,
		cal:            cal,
		eventPublisher: shared.PublisherOrNop(eventPublisher),
	}
}

// weightSpec builds and validates the weight variant.
func (h *SetGoalHandler) weightSpec(cmd SetWeightGoalCommand) (goal.Weight, error) {
	start := cmd.StartDate
	if start.IsZero() {
		start = h.cal.Today()
	}
	if cmd.EndDate.IsZero() {
		return goal.NewWeightForWeeks(start, cmd.Weeks, cmd.CurrentWeight, cmd.TargetWeight)
	}
	w := goal.Weight{
		StartDate:     start,
		EndDate:       cmd.EndDate,
		StartWeight:   cmd.CurrentWeight,
		TargetWeight:  cmd.TargetWeight,
		CurrentWeight: cmd.CurrentWeight,
	}
	return w, w.Validate()
}

// HandleWeight executes the set weight goal command.
func (h *SetGoalHandler) HandleWeight(ctx context.Context, cmd SetWeightGoalCommand) (*SetGoalResult, error) {
	if err := member.ValidateID(cmd.MemberID); err != nil {
		return nil, err
	}
	spec, err := h.weightSpec(cmd)
	if err != nil {
		return nil, err
	}
	return h.replace(ctx, cmd.MemberID, cmd.Nickname, spec, spec.StartDate)
}

// HandleFrequency executes the set frequency goal command.
func (h *SetGoalHandler) HandleFrequency(ctx context.Context, cmd SetFrequencyGoalCommand) (*SetGoalResult, error) {
	if err := member.ValidateID(cmd.MemberID); err != nil {
		return nil, err
	}
	spec, err := goal.NewFrequency(cmd.Kind, cmd.PerWeek)
	if err != nil {
		return nil, err
	}
	return h.replace(ctx, cmd.MemberID, cmd.Nickname, spec, h.cal.Today())
}

func (h *SetGoalHandler) replace(ctx context.Context, memberID, nickname string, spec goal.Spec, start calendar.Date) (*SetGoalResult, error) {
	if err := h.members.ensure(ctx, memberID, nickname); err != nil {
		return nil, err
	}

	at := h.cal.Now()
	g, err := h.goals.Replace(ctx, memberID, spec, start, at)
	if err != nil {
		return nil, fmt.Errorf("set_goal: %w", err)
	}

	event := shared.NewGoalSetEvent(memberID, g.ID, string(g.Kind()), goal.Describe(g.Spec), at)
	_ = h.eventPublisher.Publish(event)
	return &SetGoalResult{Goal: g, Events: []shared.Event{event}}, nil
}
