package sqlite

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/fitcrew/trainer-hub/internal/domain/activity"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// ActivityRepository implements activity.Repository. Both counters are
// written with one upsert statement, so the cap check and the write cannot
// interleave with a concurrent credit.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) RecordExercise(ctx context.Context, memberID string, date calendar.Date) (int, error) {
	query := `
		INSERT INTO exercise_log (member_id, date, count) VALUES (?, ?, 1)
		ON CONFLICT (member_id, date) DO UPDATE SET count = exercise_log.count
		RETURNING count`
	var n int
	if err := r.db.WithContext(ctx).Raw(query, memberID, date.String()).Row().Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to record exercise: %w", err)
	}
	return n, nil
}

func (r *ActivityRepository) RecordDiet(ctx context.Context, memberID string, date calendar.Date) (int, error) {
	query := `
		INSERT INTO diet_log (member_id, date, count) VALUES (?, ?, 1)
		ON CONFLICT (member_id, date) DO UPDATE SET count = diet_log.count + 1
		RETURNING count`
	var n int
	if err := r.db.WithContext(ctx).Raw(query, memberID, date.String()).Row().Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to record diet: %w", err)
	}
	return n, nil
}

func (r *ActivityRepository) Count(ctx context.Context, memberID string, kind activity.Kind, date calendar.Date) (int, error) {
	return r.Sum(ctx, memberID, kind, calendar.NewRange(date, date))
}

func (r *ActivityRepository) Sum(ctx context.Context, memberID string, kind activity.Kind, rng calendar.Range) (int, error) {
	if rng.Empty() {
		return 0, nil
	}
	table, err := logTable(kind)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`SELECT COALESCE(SUM(count), 0) FROM %s WHERE member_id = ? AND date BETWEEN ? AND ?`, table)
	var n int
	if err := r.db.WithContext(ctx).Raw(query, memberID, rng.Start.String(), rng.End.String()).Row().Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to sum %s: %w", kind, err)
	}
	return n, nil
}

// Days reads both series for the window in one statement.
func (r *ActivityRepository) Days(ctx context.Context, memberID string, rng calendar.Range) ([]activity.DayCount, error) {
	if rng.Empty() {
		return nil, nil
	}
	query := `
		SELECT date, SUM(exercise) AS exercise, SUM(diet) AS diet FROM (
			SELECT date, count AS exercise, 0 AS diet FROM exercise_log
			WHERE member_id = ? AND date BETWEEN ? AND ?
			UNION ALL
			SELECT date, 0 AS exercise, count AS diet FROM diet_log
			WHERE member_id = ? AND date BETWEEN ? AND ?
		) GROUP BY date ORDER BY date`
	start, end := rng.Start.String(), rng.End.String()

	var rows []struct {
		Date     string
		Exercise int
		Diet     int
	}
	if err := r.db.WithContext(ctx).Raw(query, memberID, start, end, memberID, start, end).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load daily counts: %w", err)
	}

	out := make([]activity.DayCount, 0, len(rows))
	for _, row := range rows {
		d, err := calendar.ParseDate(row.Date)
		if err != nil {
			return nil, err
		}
		out = append(out, activity.DayCount{Date: d, Exercise: row.Exercise, Diet: row.Diet})
	}
	return out, nil
}

func logTable(kind activity.Kind) (string, error) {
	switch kind {
	case activity.KindExercise:
		return "exercise_log", nil
	case activity.KindDiet:
		return "diet_log", nil
	}
	return "", fmt.Errorf("unknown activity kind %q", kind)
}
