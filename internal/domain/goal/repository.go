package goal

import (
	"context"
	"time"

	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// Repository is the goal store. Implementations make Replace atomic so that
// a concurrent reader never sees zero active goals of a kind mid-switch.
type Repository interface {
	// Replace deactivates the member's active goal of spec.Kind() (if any)
	// and inserts spec as the new active goal, in one transaction.
	Replace(ctx context.Context, memberID string, spec Spec, startDate calendar.Date, at time.Time) (*Goal, error)

	// Deactivate clears the active goal of kind. It reports whether a goal
	// was active; no active goal is not an error.
	Deactivate(ctx context.Context, memberID string, kind Kind, at time.Time) (bool, error)

	// Active returns the active goal per kind.
	Active(ctx context.Context, memberID string) (Active, error)

	// UpdateCurrentWeight sets the current weight of the active weight goal.
	// It returns (nil, nil) when the member has no active weight goal.
	UpdateCurrentWeight(ctx context.Context, memberID string, weight float64, at time.Time) (*Goal, error)

	// History lists all goals of kind for the member, newest first.
	History(ctx context.Context, memberID string, kind Kind) ([]*Goal, error)

	// MembersWithActiveGoals returns the ids of members with at least one
	// active goal, ascending.
	MembersWithActiveGoals(ctx context.Context) ([]string, error)

	// PendingWeightReports returns active weight goals not yet achieved.
	PendingWeightReports(ctx context.Context) ([]*Goal, error)
}
