package query

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/fitcrew/trainer-hub/internal/domain/activity"
	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/internal/domain/member"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET WEEK PROGRESS QUERY
// Прогресс участника за окно дат относительно активных целей.
// Ничего не записывает: недельные статусы пишет только reconciliation.
// ══════════════════════════════════════════════════════════════════════════════

// GetWeekProgressQuery содержит параметры запроса прогресса.
type GetWeekProgressQuery struct {
	MemberID string

	// Window - окно дат (пустое = текущая неделя, Пн-Вс).
	Window calendar.Range
}

// Validate проверяет корректность параметров.
func (q *GetWeekProgressQuery) Validate() error {
	return member.ValidateID(q.MemberID)
}

// FrequencyProgress - прогресс по частотной цели.
type FrequencyProgress struct {
	Goal     int  `json:"goal"`
	Done     int  `json:"done"`
	Achieved bool `json:"achieved"`
}

// WeightProgress - прогресс по цели снижения веса.
type WeightProgress struct {
	Goal            goal.Weight `json:"goal"`
	Achieved        bool        `json:"achieved"`
	ProgressPercent float64     `json:"progress_percent"`
	Remaining       float64     `json:"remaining"`
	LastModified    time.Time   `json:"last_modified"`
}

// WeekProgress - результат запроса. Поля целей равны nil, если цели
// такого типа нет.
type WeekProgress struct {
	MemberID string             `json:"member_id"`
	Window   calendar.Range     `json:"window"`
	Exercise *FrequencyProgress `json:"exercise,omitempty"`
	Diet     *FrequencyProgress `json:"diet,omitempty"`
	Weight   *WeightProgress    `json:"weight,omitempty"`

	// Daily - разбивка по дням окна, дни без записей заполнены нулями.
	Daily iter.Seq[activity.DayCount] `json:"-"`
}

// DailySlice собирает Daily в срез (для JSON-ответа).
func (p *WeekProgress) DailySlice() []activity.DayCount {
	if p.Daily == nil {
		return nil
	}
	return slices.Collect(p.Daily)
}

// GetWeekProgressHandler обрабатывает запрос прогресса.
type GetWeekProgressHandler struct {
	goals  goal.Repository
	ledger activity.Repository
	cal    *calendar.Calendar
}

// NewGetWeekProgressHandler создаёт новый обработчик.
func NewGetWeekProgressHandler(goals goal.Repository, ledger activity.Repository, cal *calendar.Calendar) *GetWeekProgressHandler {
	return &GetWeekProgressHandler{goals: goals, ledger: ledger, cal: cal}
}

// Handle выполняет запрос. Без активных целей возвращает ErrNoActiveGoals.
func (h *GetWeekProgressHandler) Handle(ctx context.Context, q GetWeekProgressQuery) (*WeekProgress, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	window, err := resolveWindow(h.cal, q.Window)
	if err != nil {
		return nil, err
	}

	active, err := h.goals.Active(ctx, q.MemberID)
	if err != nil {
		return nil, fmt.Errorf("week_progress: %w", err)
	}
	if active.Empty() {
		return nil, shared.ErrNoActiveGoals
	}

	rows, err := h.ledger.Days(ctx, q.MemberID, window)
	if err != nil {
		return nil, fmt.Errorf("week_progress: %w", err)
	}

	p := &WeekProgress{
		MemberID: q.MemberID,
		Window:   window,
		Daily:    activity.Breakdown(window, rows),
	}

	var exercise, diet int
	for dc := range p.Daily {
		exercise += dc.Exercise
		diet += dc.Diet
	}
	p.Exercise = frequencyProgress(active.Exercise, exercise)
	p.Diet = frequencyProgress(active.Diet, diet)

	if g := active.Weight; g != nil {
		if w, ok := g.Weight(); ok {
			p.Weight = &WeightProgress{
				Goal:            w,
				Achieved:        w.Achieved(),
				ProgressPercent: w.ProgressPercent(),
				Remaining:       w.Remaining(),
				LastModified:    g.LastModified,
			}
		}
	}
	return p, nil
}

func frequencyProgress(g *goal.Goal, done int) *FrequencyProgress {
	if g == nil {
		return nil
	}
	n, ok := g.PerWeek()
	if !ok {
		return nil
	}
	return &FrequencyProgress{Goal: n, Done: done, Achieved: done >= n}
}
