package command

import (
	"context"
	"fmt"

	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/internal/domain/member"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// ReportWeightCommand updates the current weight of the active weight goal.
type ReportWeightCommand struct {
	MemberID string
	Weight   float64
}

// ReportWeightResult has Updated=false when the member has no active weight
// goal; the report is then dropped without error.
type ReportWeightResult struct {
	Updated  bool
	Goal     *goal.Goal
	Achieved bool
	Events   []shared.Event
}

type ReportWeightHandler struct {
	goals          goal.Repository
	cal            *calendar.Calendar
	eventPublisher shared.EventPublisher
}

func NewReportWeightHandler(goals goal.Repository, cal *calendar.Calendar, eventPublisher shared.EventPublisher) *ReportWeightHandler {
	return &ReportWeightHandler{
		goals:          goals,
		cal:            cal,
		eventPublisher: shared.PublisherOrNop(eventPublisher),
	}
}

func (h *ReportWeightHandler) Handle(ctx context.Context, cmd ReportWeightCommand) (*ReportWeightResult, error) {
	if err := member.ValidateID(cmd.MemberID); err != nil {
		return nil, err
	}
	if err := goal.ValidateWeight(cmd.Weight); err != nil {
		return nil, err
	}

	at := h.cal.Now()
	g, err := h.goals.UpdateCurrentWeight(ctx, cmd.MemberID, cmd.Weight, at)
	if err != nil {
		return nil, fmt.Errorf("report_weight: %w", err)
	}
	if g == nil {
		return &ReportWeightResult{}, nil
	}

	w, _ := g.Weight()
	result := &ReportWeightResult{Updated: true, Goal: g, Achieved: w.Achieved()}
	event := shared.NewWeightReportedEvent(cmd.MemberID, w.CurrentWeight, w.TargetWeight, result.Achieved, at)
	result.Events = append(result.Events, event)
	_ = h.eventPublisher.Publish(event)
	return result, nil
}
