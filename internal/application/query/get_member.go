package query

import (
	"context"

	"github.com/fitcrew/trainer-hub/internal/domain/member"
	"github.com/fitcrew/trainer-hub/internal/domain/reconciliation"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET MEMBER QUERY
// Карточка участника: значки и итоги reconciliation.
// ══════════════════════════════════════════════════════════════════════════════

// GetMemberHandler отдаёт участника и его записи reconciliation.
type GetMemberHandler struct {
	members member.Repository
	results reconciliation.Repository
}

// NewGetMemberHandler создаёт новый обработчик.
func NewGetMemberHandler(members member.Repository, results reconciliation.Repository) *GetMemberHandler {
	return &GetMemberHandler{members: members, results: results}
}

// Member возвращает ErrMemberNotFound для неизвестного id.
func (h *GetMemberHandler) Member(ctx context.Context, memberID string) (*member.Member, error) {
	if err := member.ValidateID(memberID); err != nil {
		return nil, err
	}
	return h.members.Get(ctx, memberID)
}

// WeeklyStatus возвращает запись за неделю, начинающуюся в weekStart.
// weekStart обязан быть понедельником.
func (h *GetMemberHandler) WeeklyStatus(ctx context.Context, memberID string, weekStart calendar.Date) (*reconciliation.WeeklyStatus, error) {
	if err := member.ValidateID(memberID); err != nil {
		return nil, err
	}
	if !calendar.WeekOf(weekStart).Start.Equal(weekStart) {
		return nil, shared.ErrWeekStartNotMonday
	}
	return h.results.WeeklyStatus(ctx, memberID, weekStart)
}

// MonthlyTrophy возвращает итог месяца.
func (h *GetMemberHandler) MonthlyTrophy(ctx context.Context, memberID string, ym calendar.YearMonth) (*reconciliation.MonthlyTrophy, error) {
	if err := member.ValidateID(memberID); err != nil {
		return nil, err
	}
	return h.results.MonthlyTrophy(ctx, memberID, ym)
}
