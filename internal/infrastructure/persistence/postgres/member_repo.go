package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fitcrew/trainer-hub/internal/domain/member"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
)

// MemberRepository implements member.Repository using PostgreSQL.
type MemberRepository struct {
	conn *Connection
}

// NewMemberRepository creates a new MemberRepository.
func NewMemberRepository(conn *Connection) *MemberRepository {
	return &MemberRepository{conn: conn}
}

const memberColumns = `member_id, nickname, badge_weekly, badge_monthly, badge_bikini, created_at`

func (r *MemberRepository) Register(ctx context.Context, id, nickname string, at time.Time) (*member.Member, bool, error) {
	var (
		m       *member.Member
		created bool
	)
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO members (member_id, nickname, created_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (member_id) DO NOTHING`, id, nickname, at)
		if err != nil {
			return err
		}
		created = tag.RowsAffected() == 1

		if !created && nickname != "" {
			if _, err := tx.Exec(ctx,
				`UPDATE members SET nickname = $2 WHERE member_id = $1`, id, nickname); err != nil {
				return err
			}
		}
		m, err = scanMember(tx.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE member_id = $1`, id))
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to register member: %w", err)
	}
	return m, created, nil
}

func (r *MemberRepository) Get(ctx context.Context, id string) (*member.Member, error) {
	m, err := scanMember(r.conn.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE member_id = $1`, id))
	if IsNoRows(err) {
		return nil, fmt.Errorf("member %q: %w", id, shared.ErrMemberNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

func (r *MemberRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Query(ctx, `SELECT member_id FROM members ORDER BY member_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return ids, nil
}

func scanMember(row pgx.Row) (*member.Member, error) {
	var m member.Member
	if err := row.Scan(
		&m.ID, &m.Nickname,
		&m.Badges.Weekly, &m.Badges.Monthly, &m.Badges.Bikini,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}
