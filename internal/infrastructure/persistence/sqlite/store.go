package sqlite

import (
	"context"

	"gorm.io/gorm"

	"github.com/fitcrew/trainer-hub/internal/domain/activity"
	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/internal/domain/leaderboard"
	"github.com/fitcrew/trainer-hub/internal/domain/member"
	"github.com/fitcrew/trainer-hub/internal/domain/reconciliation"
)

// Store bundles the sqlite repositories over one gorm handle.
type Store struct {
	db             *gorm.DB
	members        *MemberRepository
	goals          *GoalRepository
	activity       *ActivityRepository
	reconciliation *ReconciliationRepository
	leaderboard    *LeaderboardRepository
}

// NewStore wraps an opened and migrated database.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:             db,
		members:        NewMemberRepository(db),
		goals:          NewGoalRepository(db),
		activity:       NewActivityRepository(db),
		reconciliation: NewReconciliationRepository(db),
		leaderboard:    NewLeaderboardRepository(db),
	}
}

// OpenStore opens the database at path and returns a ready store.
func OpenStore(path string) (*Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return NewStore(db), nil
}

func (s *Store) DB() *gorm.DB                              { return s.db }
func (s *Store) Members() member.Repository                { return s.members }
func (s *Store) Goals() goal.Repository                    { return s.goals }
func (s *Store) Activity() activity.Repository             { return s.activity }
func (s *Store) Reconciliation() reconciliation.Repository { return s.reconciliation }
func (s *Store) Markers() reconciliation.MarkerStore       { return s.reconciliation }
func (s *Store) Leaderboard() leaderboard.Repository       { return s.leaderboard }
func (s *Store) Ping(ctx context.Context) error            { return Ping(ctx, s.db) }

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
