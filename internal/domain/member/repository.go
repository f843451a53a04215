package member

import (
	"context"
	"time"
)

// Repository persists members. Badge counters are not written through this
// port; they change only inside the reconciliation repository's per-member
// transactions.
type Repository interface {
	// Register inserts the member if absent. A non-empty nickname replaces
	// the stored one. created reports whether a new row was inserted.
	Register(ctx context.Context, id, nickname string, at time.Time) (m *Member, created bool, err error)

	// Get returns ErrMemberNotFound for unknown ids.
	Get(ctx context.Context, id string) (*Member, error)

	// ListIDs returns every member id in ascending order.
	ListIDs(ctx context.Context) ([]string, error)
}
