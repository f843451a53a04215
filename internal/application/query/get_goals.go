package query

import (
	"context"
	"fmt"

	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/internal/domain/member"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET GOALS QUERY
// Активные цели участника и, по запросу, история замен.
// ══════════════════════════════════════════════════════════════════════════════

// GetGoalsQuery содержит параметры запроса целей.
type GetGoalsQuery struct {
	MemberID string

	// IncludeHistory - добавить все цели (в том числе неактивные) по типам.
	IncludeHistory bool
}

// Validate проверяет корректность параметров.
func (q *GetGoalsQuery) Validate() error {
	return member.ValidateID(q.MemberID)
}

// GetGoalsResult - результат запроса.
type GetGoalsResult struct {
	MemberID string                  `json:"member_id"`
	Active   goal.Active             `json:"active"`
	History  map[string][]*goal.Goal `json:"history,omitempty"`
}

// GetGoalsHandler обрабатывает запрос целей.
type GetGoalsHandler struct {
	goals goal.Repository
}

// NewGetGoalsHandler создаёт новый обработчик.
func NewGetGoalsHandler(goals goal.Repository) *GetGoalsHandler {
	return &GetGoalsHandler{goals: goals}
}

// Handle выполняет запрос. Отсутствие целей - не ошибка.
func (h *GetGoalsHandler) Handle(ctx context.Context, q GetGoalsQuery) (*GetGoalsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	active, err := h.goals.Active(ctx, q.MemberID)
	if err != nil {
		return nil, fmt.Errorf("get_goals: %w", err)
	}
	result := &GetGoalsResult{MemberID: q.MemberID, Active: active}
	if !q.IncludeHistory {
		return result, nil
	}

	result.History = make(map[string][]*goal.Goal, len(goal.Kinds))
	for _, kind := range goal.Kinds {
		history, err := h.goals.History(ctx, q.MemberID, kind)
		if err != nil {
			return nil, fmt.Errorf("get_goals: %w", err)
		}
		if len(history) > 0 {
			result.History[kind.Short()] = history
		}
	}
	return result, nil
}

// History возвращает все цели одного типа, новые первыми.
func (h *GetGoalsHandler) History(ctx context.Context, memberID string, kind goal.Kind) ([]*goal.Goal, error) {
	if err := member.ValidateID(memberID); err != nil {
		return nil, err
	}
	kind, err := goal.ParseKind(string(kind))
	if err != nil {
		return nil, err
	}
	history, err := h.goals.History(ctx, memberID, kind)
	if err != nil {
		return nil, fmt.Errorf("get_goals: %w", err)
	}
	return history, nil
}
