package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// GoalRepository implements goal.Repository.
type GoalRepository struct {
	db *gorm.DB
}

func NewGoalRepository(db *gorm.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

// Replace deactivates the current goal of the kind and inserts the new one
// in a single transaction.
func (r *GoalRepository) Replace(ctx context.Context, memberID string, spec goal.Spec, startDate calendar.Date, at time.Time) (*goal.Goal, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	row := goalRowOf(goal.RecordOf(memberID, spec, startDate, at))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&goalModel{}).
			Where("member_id = ? AND kind = ? AND active = ?", memberID, string(spec.Kind()), true).
			Updates(map[string]any{"active": false, "last_modified": at}).Error; err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace goal: %w", err)
	}
	return row.toDomain()
}

func (r *GoalRepository) Deactivate(ctx context.Context, memberID string, kind goal.Kind, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&goalModel{}).
		Where("member_id = ? AND kind = ? AND active = ?", memberID, string(kind), true).
		Updates(map[string]any{"active": false, "last_modified": at})
	if res.Error != nil {
		return false, fmt.Errorf("failed to deactivate goal: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *GoalRepository) Active(ctx context.Context, memberID string) (goal.Active, error) {
	var rows []goalModel
	if err := r.db.WithContext(ctx).
		Where("member_id = ? AND active = ?", memberID, true).
		Find(&rows).Error; err != nil {
		return goal.Active{}, fmt.Errorf("failed to load active goals: %w", err)
	}
	var active goal.Active
	for _, row := range rows {
		g, err := row.toDomain()
		if err != nil {
			return goal.Active{}, err
		}
		active.Put(g)
	}
	return active, nil
}

func (r *GoalRepository) UpdateCurrentWeight(ctx context.Context, memberID string, weight float64, at time.Time) (*goal.Goal, error) {
	if err := goal.ValidateWeight(weight); err != nil {
		return nil, err
	}
	var (
		row   goalModel
		found bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("member_id = ? AND kind = ? AND active = ?", memberID, string(goal.KindWeight), true).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		row.CurrentWeight = &weight
		row.LastModified = at
		return tx.Model(&goalModel{}).Where("id = ?", row.ID).
			Updates(map[string]any{"current_weight": weight, "last_modified": at}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update current weight: %w", err)
	}
	if !found {
		return nil, nil
	}
	return row.toDomain()
}

func (r *GoalRepository) History(ctx context.Context, memberID string, kind goal.Kind) ([]*goal.Goal, error) {
	var rows []goalModel
	if err := r.db.WithContext(ctx).
		Where("member_id = ? AND kind = ?", memberID, string(kind)).
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load goal history: %w", err)
	}
	return goalsOf(rows)
}

func (r *GoalRepository) MembersWithActiveGoals(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&goalModel{}).
		Where("active = ?", true).
		Distinct().
		Order("member_id").
		Pluck("member_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list members with goals: %w", err)
	}
	return ids, nil
}

func (r *GoalRepository) PendingWeightReports(ctx context.Context) ([]*goal.Goal, error) {
	var rows []goalModel
	if err := r.db.WithContext(ctx).
		Where("kind = ? AND active = ? AND current_weight > target_weight", string(goal.KindWeight), true).
		Order("member_id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending weight reports: %w", err)
	}
	return goalsOf(rows)
}

func goalsOf(rows []goalModel) ([]*goal.Goal, error) {
	out := make([]*goal.Goal, 0, len(rows))
	for _, row := range rows {
		g, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func goalRowOf(rec goal.Record) goalModel {
	row := goalModel{
		ID:            rec.ID,
		MemberID:      rec.MemberID,
		Kind:          string(rec.Kind),
		StartDate:     rec.StartDate.String(),
		StartWeight:   rec.StartWeight,
		TargetWeight:  rec.TargetWeight,
		CurrentWeight: rec.CurrentWeight,
		FreqPerWeek:   rec.FreqPerWeek,
		Active:        rec.Active,
		LastModified:  rec.LastModified,
	}
	if !rec.EndDate.IsZero() {
		end := rec.EndDate.String()
		row.EndDate = &end
	}
	return row
}

func (m goalModel) toDomain() (*goal.Goal, error) {
	rec := goal.Record{
		ID:            m.ID,
		MemberID:      m.MemberID,
		Kind:          goal.Kind(m.Kind),
		StartWeight:   m.StartWeight,
		TargetWeight:  m.TargetWeight,
		CurrentWeight: m.CurrentWeight,
		FreqPerWeek:   m.FreqPerWeek,
		Active:        m.Active,
		LastModified:  m.LastModified,
	}
	var err error
	if rec.StartDate, err = calendar.ParseDate(m.StartDate); err != nil {
		return nil, fmt.Errorf("goal %d: %w", m.ID, err)
	}
	if m.EndDate != nil {
		if rec.EndDate, err = calendar.ParseDate(*m.EndDate); err != nil {
			return nil, fmt.Errorf("goal %d: %w", m.ID, err)
		}
	}
	return rec.Goal()
}
