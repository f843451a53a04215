package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fitcrew/trainer-hub/internal/domain/reconciliation"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// ReconciliationRepository implements reconciliation.Repository and
// reconciliation.MarkerStore.
type ReconciliationRepository struct {
	db *gorm.DB
}

func NewReconciliationRepository(db *gorm.DB) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

// RecordWeek inserts the status row if absent and, only then, adds the
// badges it earns. Row and counters commit together.
func (r *ReconciliationRepository) RecordWeek(ctx context.Context, st reconciliation.WeeklyStatus) (bool, error) {
	row := weeklyStatusModel{
		MemberID:         st.MemberID,
		WeekStart:        st.WeekStart.String(),
		AchievedExercise: st.AchievedExercise,
		AchievedDiet:     st.AchievedDiet,
		AchievedWeight:   st.AchievedWeight,
		WeightUpdated:    st.WeightUpdated,
		RecordedAt:       st.RecordedAt,
	}

	var inserted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		inserted = true
		return addBadges(tx, st.MemberID, map[string]int{
			"badge_weekly": boolInt(st.EarnsWeeklyBadge()),
			"badge_bikini": boolInt(st.EarnsBikiniBadge()),
		})
	})
	if err != nil {
		return false, fmt.Errorf("failed to record weekly status: %w", err)
	}
	return inserted, nil
}

func (r *ReconciliationRepository) WeeklyStatus(ctx context.Context, memberID string, weekStart calendar.Date) (*reconciliation.WeeklyStatus, error) {
	var row weeklyStatusModel
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND week_start = ?", memberID, weekStart.String()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrWeeklyStatusNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get weekly status: %w", err)
	}
	return row.toDomain()
}

func (r *ReconciliationRepository) WeeklyStatuses(ctx context.Context, memberID string, rng calendar.Range) ([]reconciliation.WeeklyStatus, error) {
	if rng.Empty() {
		return nil, nil
	}
	var rows []weeklyStatusModel
	if err := r.db.WithContext(ctx).
		Where("member_id = ? AND week_start BETWEEN ? AND ?", memberID, rng.Start.String(), rng.End.String()).
		Order("week_start").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list weekly statuses: %w", err)
	}
	out := make([]reconciliation.WeeklyStatus, 0, len(rows))
	for _, row := range rows {
		st, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, nil
}

// RecordTrophy inserts the month row if absent; a won row that was
// inserted adds one monthly badge.
func (r *ReconciliationRepository) RecordTrophy(ctx context.Context, t reconciliation.MonthlyTrophy) (bool, error) {
	row := monthlyTrophyModel{
		MemberID:  t.MemberID,
		YearMonth: t.YearMonth.String(),
		Won:       t.Won,
		AwardedAt: t.AwardedAt,
	}

	var inserted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		inserted = true
		return addBadges(tx, t.MemberID, map[string]int{"badge_monthly": boolInt(t.Won)})
	})
	if err != nil {
		return false, fmt.Errorf("failed to record monthly trophy: %w", err)
	}
	return inserted, nil
}

func (r *ReconciliationRepository) MonthlyTrophy(ctx context.Context, memberID string, ym calendar.YearMonth) (*reconciliation.MonthlyTrophy, error) {
	var row monthlyTrophyModel
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND year_month = ?", memberID, ym.String()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrMonthlyTrophyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly trophy: %w", err)
	}
	parsed, err := calendar.ParseYearMonth(row.YearMonth)
	if err != nil {
		return nil, err
	}
	return &reconciliation.MonthlyTrophy{
		MemberID:  row.MemberID,
		YearMonth: parsed,
		Won:       row.Won,
		AwardedAt: row.AwardedAt,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Run markers
// ─────────────────────────────────────────────────────────────────────────────

func (r *ReconciliationRepository) LastRun(ctx context.Context, job string) (*reconciliation.RunMarker, error) {
	var row jobRunModel
	err := r.db.WithContext(ctx).Where("job = ?", job).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run marker: %w", err)
	}
	return &reconciliation.RunMarker{Job: row.Job, Period: row.Period, RanAt: row.RanAt}, nil
}

func (r *ReconciliationRepository) SaveRun(ctx context.Context, m reconciliation.RunMarker) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job"}},
		DoUpdates: clause.AssignmentColumns([]string{"period", "ran_at"}),
	}).Create(&jobRunModel{Job: m.Job, Period: m.Period, RanAt: m.RanAt}).Error
	if err != nil {
		return fmt.Errorf("failed to save run marker: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

// addBadges increments the given counters. A missing member fails the
// transaction so no orphan status row is left behind.
func addBadges(tx *gorm.DB, memberID string, inc map[string]int) error {
	updates := make(map[string]any, len(inc))
	for col, n := range inc {
		if n > 0 {
			updates[col] = gorm.Expr(col+" + ?", n)
		}
	}
	var res *gorm.DB
	if len(updates) == 0 {
		res = tx.Model(&memberModel{}).Where("member_id = ?", memberID).Limit(1).Find(&memberModel{})
	} else {
		res = tx.Model(&memberModel{}).Where("member_id = ?", memberID).UpdateColumns(updates)
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("member %q: %w", memberID, shared.ErrMemberNotFound)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (m weeklyStatusModel) toDomain() (*reconciliation.WeeklyStatus, error) {
	ws, err := calendar.ParseDate(m.WeekStart)
	if err != nil {
		return nil, err
	}
	return &reconciliation.WeeklyStatus{
		MemberID:         m.MemberID,
		WeekStart:        ws,
		AchievedExercise: m.AchievedExercise,
		AchievedDiet:     m.AchievedDiet,
		AchievedWeight:   m.AchievedWeight,
		WeightUpdated:    m.WeightUpdated,
		RecordedAt:       m.RecordedAt,
	}, nil
}
