package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// GoalRepository implements goal.Repository using PostgreSQL.
type GoalRepository struct {
	conn *Connection
}

// NewGoalRepository creates a new GoalRepository.
func NewGoalRepository(conn *Connection) *GoalRepository {
	return &GoalRepository{conn: conn}
}

const goalColumns = `id, member_id, kind, start_date, end_date, start_weight, target_weight,
	current_weight, freq_per_week, active, last_modified`

// Replace locks the member row so two concurrent replacements of the same
// kind serialize instead of tripping the one-active index.
func (r *GoalRepository) Replace(ctx context.Context, memberID string, spec goal.Spec, startDate calendar.Date, at time.Time) (*goal.Goal, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	rec := goal.RecordOf(memberID, spec, startDate, at)

	var g *goal.Goal
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT member_id FROM members WHERE member_id = $1 FOR UPDATE`, memberID).Scan(&locked)
		if IsNoRows(err) {
			return fmt.Errorf("member %q: %w", memberID, shared.ErrMemberNotFound)
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE goals SET active = FALSE, last_modified = $3
			WHERE member_id = $1 AND kind = $2 AND active`,
			memberID, string(rec.Kind), at); err != nil {
			return err
		}

		var endDate any
		if !rec.EndDate.IsZero() {
			endDate = rec.EndDate.String()
		}
		g, err = scanGoal(tx.QueryRow(ctx, `
			INSERT INTO goals (member_id, kind, start_date, end_date, start_weight, target_weight,
				current_weight, freq_per_week, active, last_modified)
			VALUES ($1, $2, $3::date, $4::date, $5, $6, $7, $8, TRUE, $9)
			RETURNING `+goalColumns,
			memberID, string(rec.Kind), rec.StartDate.String(), endDate,
			rec.StartWeight, rec.TargetWeight, rec.CurrentWeight, rec.FreqPerWeek, at))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace goal: %w", err)
	}
	return g, nil
}

func (r *GoalRepository) Deactivate(ctx context.Context, memberID string, kind goal.Kind, at time.Time) (bool, error) {
	tag, err := r.conn.Exec(ctx, `
		UPDATE goals SET active = FALSE, last_modified = $3
		WHERE member_id = $1 AND kind = $2 AND active`,
		memberID, string(kind), at)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate goal: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *GoalRepository) Active(ctx context.Context, memberID string) (goal.Active, error) {
	goals, err := r.list(ctx, `SELECT `+goalColumns+` FROM goals WHERE member_id = $1 AND active`, memberID)
	if err != nil {
		return goal.Active{}, fmt.Errorf("failed to load active goals: %w", err)
	}
	var active goal.Active
	for _, g := range goals {
		active.Put(g)
	}
	return active, nil
}

// UpdateCurrentWeight is a single UPDATE ... RETURNING; no row means no
// active weight goal.
func (r *GoalRepository) UpdateCurrentWeight(ctx context.Context, memberID string, weight float64, at time.Time) (*goal.Goal, error) {
	if err := goal.ValidateWeight(weight); err != nil {
		return nil, err
	}
	g, err := scanGoal(r.conn.QueryRow(ctx, `
		UPDATE goals SET current_weight = $3, last_modified = $4
		WHERE member_id = $1 AND kind = $2 AND active
		RETURNING `+goalColumns,
		memberID, string(goal.KindWeight), weight, at))
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update current weight: %w", err)
	}
	return g, nil
}

func (r *GoalRepository) History(ctx context.Context, memberID string, kind goal.Kind) ([]*goal.Goal, error) {
	goals, err := r.list(ctx, `
		SELECT `+goalColumns+` FROM goals
		WHERE member_id = $1 AND kind = $2
		ORDER BY id DESC`, memberID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to load goal history: %w", err)
	}
	return goals, nil
}

func (r *GoalRepository) MembersWithActiveGoals(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Query(ctx, `SELECT DISTINCT member_id FROM goals WHERE active ORDER BY member_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list members with goals: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list members with goals: %w", err)
	}
	return ids, nil
}

func (r *GoalRepository) PendingWeightReports(ctx context.Context) ([]*goal.Goal, error) {
	goals, err := r.list(ctx, `
		SELECT `+goalColumns+` FROM goals
		WHERE kind = $1 AND active AND current_weight > target_weight
		ORDER BY member_id`, string(goal.KindWeight))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending weight reports: %w", err)
	}
	return goals, nil
}

func (r *GoalRepository) list(ctx context.Context, query string, args ...any) ([]*goal.Goal, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*goal.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanGoal(row pgx.Row) (*goal.Goal, error) {
	var (
		rec  goal.Record
		kind string
	)
	if err := row.Scan(
		&rec.ID, &rec.MemberID, &kind, &rec.StartDate, &rec.EndDate,
		&rec.StartWeight, &rec.TargetWeight, &rec.CurrentWeight, &rec.FreqPerWeek,
		&rec.Active, &rec.LastModified,
	); err != nil {
		return nil, err
	}
	rec.Kind = goal.Kind(kind)
	return rec.Goal()
}
