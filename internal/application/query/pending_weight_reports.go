package query

import (
	"context"
	"fmt"
	"time"

	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// PendingWeightReport - участник, чья цель по весу ещё не достигнута.
type PendingWeightReport struct {
	MemberID      string        `json:"member_id"`
	TargetWeight  float64       `json:"target_weight"`
	CurrentWeight float64       `json:"current_weight"`
	EndDate       calendar.Date `json:"end_date"`
	LastModified  time.Time     `json:"last_modified"`

	// ReportedThisWeek - вес обновлялся на текущей неделе.
	ReportedThisWeek bool `json:"reported_this_week"`
}

// PendingWeightReportsHandler отдаёт список для напоминаний о взвешивании.
type PendingWeightReportsHandler struct {
	goals goal.Repository
	cal   *calendar.Calendar
}

// NewPendingWeightReportsHandler создаёт новый обработчик.
func NewPendingWeightReportsHandler(goals goal.Repository, cal *calendar.Calendar) *PendingWeightReportsHandler {
	return &PendingWeightReportsHandler{goals: goals, cal: cal}
}

// Handle выполняет запрос.
func (h *PendingWeightReportsHandler) Handle(ctx context.Context) ([]PendingWeightReport, error) {
	goals, err := h.goals.PendingWeightReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending_weight_reports: %w", err)
	}
	week := h.cal.CurrentWeek()
	out := make([]PendingWeightReport, 0, len(goals))
	for _, g := range goals {
		w, ok := g.Weight()
		if !ok {
			continue
		}
		out = append(out, PendingWeightReport{
			MemberID:         g.MemberID,
			TargetWeight:     w.TargetWeight,
			CurrentWeight:    w.CurrentWeight,
			EndDate:          w.EndDate,
			LastModified:     g.LastModified,
			ReportedThisWeek: week.Contains(h.cal.DateOf(g.LastModified)),
		})
	}
	return out, nil
}
