package reconciliation

import (
	"context"

	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// Repository stores pass results. Each Record* call is one per-member
// transaction: the row and the badge increments commit together or not at
// all, and an existing row wins over a new one.
type Repository interface {
	// RecordWeek inserts the status unless one exists for
	// (member, week_start). Badges are incremented only on insert.
	RecordWeek(ctx context.Context, status WeeklyStatus) (inserted bool, err error)

	// WeeklyStatus returns ErrWeeklyStatusNotFound when absent.
	WeeklyStatus(ctx context.Context, memberID string, weekStart calendar.Date) (*WeeklyStatus, error)

	// WeeklyStatuses lists the member's rows whose week_start lies in r.
	WeeklyStatuses(ctx context.Context, memberID string, r calendar.Range) ([]WeeklyStatus, error)

	// RecordTrophy inserts the month row unless present and increments the
	// monthly badge when it inserted a winning row.
	RecordTrophy(ctx context.Context, trophy MonthlyTrophy) (inserted bool, err error)

	// MonthlyTrophy returns ErrMonthlyTrophyNotFound when absent.
	MonthlyTrophy(ctx context.Context, memberID string, ym calendar.YearMonth) (*MonthlyTrophy, error)
}

// MarkerStore persists scheduler run markers.
type MarkerStore interface {
	// LastRun returns nil, nil when the job has never completed.
	LastRun(ctx context.Context, job string) (*RunMarker, error)
	SaveRun(ctx context.Context, marker RunMarker) error
}
