package postgres

import (
	"context"
	"fmt"

	"github.com/fitcrew/trainer-hub/internal/domain/activity"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// ActivityRepository implements activity.Repository using PostgreSQL.
// Each credit is one INSERT ... ON CONFLICT statement, so row locking on
// (member_id, date) serializes concurrent credits.
type ActivityRepository struct {
	conn *Connection
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(conn *Connection) *ActivityRepository {
	return &ActivityRepository{conn: conn}
}

func (r *ActivityRepository) RecordExercise(ctx context.Context, memberID string, date calendar.Date) (int, error) {
	var n int
	err := r.conn.QueryRow(ctx, `
		INSERT INTO exercise_log (member_id, date, count) VALUES ($1, $2::date, 1)
		ON CONFLICT (member_id, date) DO UPDATE SET count = exercise_log.count
		RETURNING count`, memberID, date.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to record exercise: %w", err)
	}
	return n, nil
}

func (r *ActivityRepository) RecordDiet(ctx context.Context, memberID string, date calendar.Date) (int, error) {
	var n int
	err := r.conn.QueryRow(ctx, `
		INSERT INTO diet_log (member_id, date, count) VALUES ($1, $2::date, 1)
		ON CONFLICT (member_id, date) DO UPDATE SET count = diet_log.count + 1
		RETURNING count`, memberID, date.String()).Scan(&n)
	if err != nil {
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
	var n int
	err = r.conn.QueryRow(ctx,
		fmt.Sprintf(`SELECT COALESCE(SUM(count), 0) FROM %s WHERE member_id = $1 AND date BETWEEN $2::date AND $3::date`, table),
		memberID, rng.Start.String(), rng.End.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to sum %s: %w", kind, err)
	}
	return n, nil
}

func (r *ActivityRepository) Days(ctx context.Context, memberID string, rng calendar.Range) ([]activity.DayCount, error) {
	if rng.Empty() {
		return nil, nil
	}
	rows, err := r.conn.Query(ctx, `
		SELECT COALESCE(e.date, d.date) AS date,
		       COALESCE(e.count, 0) AS exercise,
		       COALESCE(d.count, 0) AS diet
		FROM (SELECT date, count FROM exercise_log WHERE member_id = $1 AND date BETWEEN $2::date AND $3::date) e
		FULL OUTER JOIN
		     (SELECT date, count FROM diet_log WHERE member_id = $1 AND date BETWEEN $2::date AND $3::date) d
		ON e.date = d.date
		ORDER BY 1`, memberID, rng.Start.String(), rng.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load daily counts: %w", err)
	}
	defer rows.Close()

	var out []activity.DayCount
	for rows.Next() {
		var dc activity.DayCount
		if err := rows.Scan(&dc.Date, &dc.Exercise, &dc.Diet); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		out = append(out, dc)
	}
	return out, rows.Err()
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
