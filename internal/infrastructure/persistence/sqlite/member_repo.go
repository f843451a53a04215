package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fitcrew/trainer-hub/internal/domain/member"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
)

// MemberRepository implements member.Repository.
type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// Register inserts the member if absent and refreshes a non-empty nickname.
func (r *MemberRepository) Register(ctx context.Context, id, nickname string, at time.Time) (*member.Member, bool, error) {
	var (
		row     memberModel
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&memberModel{
			MemberID:  id,
			Nickname:  nickname,
			CreatedAt: at,
		})
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected == 1

		if !created && nickname != "" {
			if err := tx.Model(&memberModel{}).
				Where("member_id = ?", id).
				Update("nickname", nickname).Error; err != nil {
				return err
			}
		}
		return tx.Where("member_id = ?", id).First(&row).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to register member: %w", err)
	}
	return row.toDomain(), created, nil
}

func (r *MemberRepository) Get(ctx context.Context, id string) (*member.Member, error) {
	var row memberModel
	err := r.db.WithContext(ctx).Where("member_id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("member %q: %w", id, shared.ErrMemberNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return row.toDomain(), nil
}

func (r *MemberRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&memberModel{}).
		Order("member_id").
		Pluck("member_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return ids, nil
}

func (m memberModel) toDomain() *member.Member {
	return &member.Member{
		ID:       m.MemberID,
		Nickname: m.Nickname,
		Badges: member.Badges{
			Weekly:  m.BadgeWeekly,
			Monthly: m.BadgeMonthly,
			Bikini:  m.BadgeBikini,
		},
		CreatedAt: m.CreatedAt,
	}
}
