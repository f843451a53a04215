package sqlite

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/fitcrew/trainer-hub/internal/domain/activity"
	"github.com/fitcrew/trainer-hub/internal/domain/leaderboard"
	"github.com/fitcrew/trainer-hub/internal/domain/member"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// LeaderboardRepository implements leaderboard.Repository.
type LeaderboardRepository struct {
	db *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

type rankingRow struct {
	MemberID     string
	Nickname     string
	Score        int
	BadgeWeekly  int
	BadgeMonthly int
	BadgeBikini  int
}

func (r *LeaderboardRepository) TopByBadges(ctx context.Context, limit int) ([]leaderboard.Entry, error) {
	query := `
		SELECT member_id, nickname, badge_weekly, badge_monthly, badge_bikini,
		       badge_weekly + badge_monthly + badge_bikini AS score
		FROM members
		ORDER BY score DESC, member_id ASC
		LIMIT ?`
	var rows []rankingRow
	if err := r.db.WithContext(ctx).Raw(query, leaderboard.NormalizeLimit(limit, 0)).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to rank by badges: %w", err)
	}
	entries := make([]leaderboard.Entry, len(rows))
	for i, row := range rows {
		entries[i] = leaderboard.Entry{
			MemberID: row.MemberID,
			Nickname: row.Nickname,
			Score:    row.Score,
			Badges: &member.Badges{
				Weekly:  row.BadgeWeekly,
				Monthly: row.BadgeMonthly,
				Bikini:  row.BadgeBikini,
			},
		}
	}
	leaderboard.AssignRanks(entries)
	return entries, nil
}

// TopByActivity left-joins the log so members without rows rank with 0.
func (r *LeaderboardRepository) TopByActivity(ctx context.Context, kind activity.Kind, window calendar.Range, limit int) ([]leaderboard.Entry, error) {
	table, err := logTable(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT m.member_id, m.nickname, COALESCE(SUM(l.count), 0) AS score
		FROM members m
		LEFT JOIN %s l ON l.member_id = m.member_id AND l.date BETWEEN ? AND ?
		GROUP BY m.member_id, m.nickname
		ORDER BY score DESC, m.member_id ASC
		LIMIT ?`, table)

	var rows []rankingRow
	if err := r.db.WithContext(ctx).
		Raw(query, window.Start.String(), window.End.String(), leaderboard.NormalizeLimit(limit, 0)).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to rank by %s: %w", kind, err)
	}
	entries := make([]leaderboard.Entry, len(rows))
	for i, row := range rows {
		entries[i] = leaderboard.Entry{MemberID: row.MemberID, Nickname: row.Nickname, Score: row.Score}
	}
	leaderboard.AssignRanks(entries)
	return entries, nil
}
