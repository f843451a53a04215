package postgres

import (
	"context"
	"fmt"

	"github.com/fitcrew/trainer-hub/internal/domain/activity"
	"github.com/fitcrew/trainer-hub/internal/domain/leaderboard"
	"github.com/fitcrew/trainer-hub/internal/domain/member"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// LeaderboardRepository implements leaderboard.Repository using PostgreSQL.
type LeaderboardRepository struct {
	conn *Connection
}

// NewLeaderboardRepository creates a new LeaderboardRepository.
func NewLeaderboardRepository(conn *Connection) *LeaderboardRepository {
	return &LeaderboardRepository{conn: conn}
}

func (r *LeaderboardRepository) TopByBadges(ctx context.Context, limit int) ([]leaderboard.Entry, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT member_id, nickname, badge_weekly, badge_monthly, badge_bikini,
		       badge_weekly + badge_monthly + badge_bikini AS score
		FROM members
		ORDER BY score DESC, member_id ASC
		LIMIT $1`, leaderboard.NormalizeLimit(limit, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to rank by badges: %w", err)
	}
	defer rows.Close()

	var entries []leaderboard.Entry
	for rows.Next() {
		var (
			e      leaderboard.Entry
			badges member.Badges
		)
		if err := rows.Scan(&e.MemberID, &e.Nickname, &badges.Weekly, &badges.Monthly, &badges.Bikini, &e.Score); err != nil {
			return nil, fmt.Errorf("failed to scan ranking row: %w", err)
		}
		e.Badges = &badges
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to rank by badges: %w", err)
	}
	leaderboard.AssignRanks(entries)
	return entries, nil
}

func (r *LeaderboardRepository) TopByActivity(ctx context.Context, kind activity.Kind, window calendar.Range, limit int) ([]leaderboard.Entry, error) {
	table, err := logTable(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn.Query(ctx, fmt.Sprintf(`
		SELECT m.member_id, m.nickname, COALESCE(SUM(l.count), 0)::int AS score
		FROM members m
		LEFT JOIN %s l ON l.member_id = m.member_id AND l.date BETWEEN $1::date AND $2::date
		GROUP BY m.member_id, m.nickname
		ORDER BY score DESC, m.member_id ASC
		LIMIT $3`, table),
		window.Start.String(), window.End.String(), leaderboard.NormalizeLimit(limit, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to rank by %s: %w", kind, err)
	}
	defer rows.Close()

	var entries []leaderboard.Entry
	for rows.Next() {
		var e leaderboard.Entry
		if err := rows.Scan(&e.MemberID, &e.Nickname, &e.Score); err != nil {
			return nil, fmt.Errorf("failed to scan ranking row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to rank by %s: %w", kind, err)
	}
	leaderboard.AssignRanks(entries)
	return entries, nil
}
