package postgres

import (
	"context"

	"github.com/fitcrew/trainer-hub/internal/domain/activity"
	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/internal/domain/leaderboard"
	"github.com/fitcrew/trainer-hub/internal/domain/member"
	"github.com/fitcrew/trainer-hub/internal/domain/reconciliation"
)

// Store bundles the PostgreSQL repositories over one pool.
type Store struct {
	conn           *Connection
	members        *MemberRepository
	goals          *GoalRepository
	activity       *ActivityRepository
	reconciliation *ReconciliationRepository
	leaderboard    *LeaderboardRepository
}

// NewStore wraps an open connection.
func NewStore(conn *Connection) *Store {
	return &Store{
		conn:           conn,
		members:        NewMemberRepository(conn),
		goals:          NewGoalRepository(conn),
		activity:       NewActivityRepository(conn),
		reconciliation: NewReconciliationRepository(conn),
		leaderboard:    NewLeaderboardRepository(conn),
	}
}

// OpenStore connects and, when migrate is set, applies pending migrations.
func OpenStore(ctx context.Context, cfg Config, migrate bool) (*Store, error) {
	conn, err := NewConnection(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := NewMigrator(conn).Migrate(ctx); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return NewStore(conn), nil
}

func (s *Store) Connection() *Connection                   { return s.conn }
func (s *Store) Members() member.Repository                { return s.members }
func (s *Store) Goals() goal.Repository                    { return s.goals }
func (s *Store) Activity() activity.Repository             { return s.activity }
func (s *Store) Reconciliation() reconciliation.Repository { return s.reconciliation }
func (s *Store) Markers() reconciliation.MarkerStore       { return s.reconciliation }
func (s *Store) Leaderboard() leaderboard.Repository       { return s.leaderboard }
func (s *Store) Ping(ctx context.Context) error            { return s.conn.Ping(ctx) }

func (s *Store) Close() error {
	s.conn.Close()
	return nil
}
