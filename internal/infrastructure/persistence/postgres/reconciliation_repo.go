package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fitcrew/trainer-hub/internal/domain/reconciliation"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// ReconciliationRepository implements reconciliation.Repository and
// reconciliation.MarkerStore using PostgreSQL.
type ReconciliationRepository struct {
	conn *Connection
}

// NewReconciliationRepository creates a new ReconciliationRepository.
func NewReconciliationRepository(conn *Connection) *ReconciliationRepository {
	return &ReconciliationRepository{conn: conn}
}

const weeklyStatusColumns = `member_id, week_start, achieved_exercise, achieved_diet,
	achieved_weight, weight_updated, recorded_at`

// RecordWeek inserts the row if absent; the badge update runs in the same
// transaction and only when the insert happened.
func (r *ReconciliationRepository) RecordWeek(ctx context.Context, st reconciliation.WeeklyStatus) (bool, error) {
	var inserted bool
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO weekly_status (`+weeklyStatusColumns+`)
			VALUES ($1, $2::date, $3, $4, $5, $6, $7)
			ON CONFLICT (member_id, week_start) DO NOTHING`,
			st.MemberID, st.WeekStart.String(),
			st.AchievedExercise, st.AchievedDiet, st.AchievedWeight, st.WeightUpdated,
			st.RecordedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		inserted = true
		return addBadges(ctx, tx, st.MemberID, boolInt(st.EarnsWeeklyBadge()), 0, boolInt(st.EarnsBikiniBadge()))
	})
	if err != nil {
		return false, fmt.Errorf("failed to record weekly status: %w", err)
	}
	return inserted, nil
}

func (r *ReconciliationRepository) WeeklyStatus(ctx context.Context, memberID string, weekStart calendar.Date) (*reconciliation.WeeklyStatus, error) {
	st, err := scanWeeklyStatus(r.conn.QueryRow(ctx, `
		SELECT `+weeklyStatusColumns+` FROM weekly_status
		WHERE member_id = $1 AND week_start = $2::date`, memberID, weekStart.String()))
	if IsNoRows(err) {
		return nil, shared.ErrWeeklyStatusNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get weekly status: %w", err)
	}
	return st, nil
}

func (r *ReconciliationRepository) WeeklyStatuses(ctx context.Context, memberID string, rng calendar.Range) ([]reconciliation.WeeklyStatus, error) {
	if rng.Empty() {
		return nil, nil
	}
	rows, err := r.conn.Query(ctx, `
		SELECT `+weeklyStatusColumns+` FROM weekly_status
		WHERE member_id = $1 AND week_start BETWEEN $2::date AND $3::date
		ORDER BY week_start`, memberID, rng.Start.String(), rng.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list weekly statuses: %w", err)
	}
	defer rows.Close()

	var out []reconciliation.WeeklyStatus
	for rows.Next() {
		st, err := scanWeeklyStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan weekly status: %w", err)
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func (r *ReconciliationRepository) RecordTrophy(ctx context.Context, t reconciliation.MonthlyTrophy) (bool, error) {
	var inserted bool
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO monthly_trophy (member_id, year_month, won, awarded_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (member_id, year_month) DO NOTHING`,
			t.MemberID, t.YearMonth.String(), t.Won, t.AwardedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		inserted = true
		return addBadges(ctx, tx, t.MemberID, 0, boolInt(t.Won), 0)
	})
	if err != nil {
		return false, fmt.Errorf("failed to record monthly trophy: %w", err)
	}
	return inserted, nil
}

func (r *ReconciliationRepository) MonthlyTrophy(ctx context.Context, memberID string, ym calendar.YearMonth) (*reconciliation.MonthlyTrophy, error) {
	var (
		t   reconciliation.MonthlyTrophy
		raw string
	)
	err := r.conn.QueryRow(ctx, `
		SELECT member_id, year_month, won, awarded_at FROM monthly_trophy
		WHERE member_id = $1 AND year_month = $2`, memberID, ym.String()).
		Scan(&t.MemberID, &raw, &t.Won, &t.AwardedAt)
	if IsNoRows(err) {
		return nil, shared.ErrMonthlyTrophyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly trophy: %w", err)
	}
	if t.YearMonth, err = calendar.ParseYearMonth(raw); err != nil {
		return nil, err
	}
	return &t, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Run markers
// ─────────────────────────────────────────────────────────────────────────────

func (r *ReconciliationRepository) LastRun(ctx context.Context, job string) (*reconciliation.RunMarker, error) {
	var m reconciliation.RunMarker
	err := r.conn.QueryRow(ctx, `SELECT job, period, ran_at FROM job_runs WHERE job = $1`, job).
		Scan(&m.Job, &m.Period, &m.RanAt)
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run marker: %w", err)
	}
	return &m, nil
}

func (r *ReconciliationRepository) SaveRun(ctx context.Context, m reconciliation.RunMarker) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO job_runs (job, period, ran_at) VALUES ($1, $2, $3)
		ON CONFLICT (job) DO UPDATE SET period = EXCLUDED.period, ran_at = EXCLUDED.ran_at`,
		m.Job, m.Period, m.RanAt)
	if err != nil {
		return fmt.Errorf("failed to save run marker: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

// addBadges fails when the member row is missing so the status insert in
// the same transaction rolls back.
func addBadges(ctx context.Context, q Querier, memberID string, weekly, monthly, bikini int) error {
	tag, err := q.Exec(ctx, `
		UPDATE members SET
			badge_weekly = badge_weekly + $2,
			badge_monthly = badge_monthly + $3,
			badge_bikini = badge_bikini + $4
		WHERE member_id = $1`, memberID, weekly, monthly, bikini)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
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

func scanWeeklyStatus(row pgx.Row) (*reconciliation.WeeklyStatus, error) {
	var st reconciliation.WeeklyStatus
	if err := row.Scan(
		&st.MemberID, &st.WeekStart,
		&st.AchievedExercise, &st.AchievedDiet, &st.AchievedWeight, &st.WeightUpdated,
		&st.RecordedAt,
	); err != nil {
		return nil, err
	}
	return &st, nil
}
