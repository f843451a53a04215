package activity

import (
	"context"

	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// Repository is the event ledger. Both record operations are single atomic
// statements so concurrent triggers for the same (member, day) never lose
// an update or exceed the exercise cap.
type Repository interface {
	// RecordExercise credits one exercise day. A second credit on the same
	// day is a no-op returning the existing count.
	RecordExercise(ctx context.Context, memberID string, date calendar.Date) (int, error)

	// RecordDiet increments the diet counter and returns the new count.
	RecordDiet(ctx context.Context, memberID string, date calendar.Date) (int, error)

	// Count returns one day's counter, 0 if there is no row.
	Count(ctx context.Context, memberID string, kind Kind, date calendar.Date) (int, error)

	// Sum aggregates a counter over a closed range; empty ranges sum to 0.
	Sum(ctx context.Context, memberID string, kind Kind, r calendar.Range) (int, error)

	// Days returns the stored rows inside r (days with no rows are absent).
	Days(ctx context.Context, memberID string, r calendar.Range) ([]DayCount, error)
}
