package goal

import (
	"fmt"
	"time"

	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// Record is the flat, nullable row shape shared by the store adapters.
// Variant-specific columns are nil for the other kinds.
type Record struct {
	ID            int64
	MemberID      string
	Kind          Kind
	StartDate     calendar.Date
	EndDate       calendar.Date
	StartWeight   *float64
	TargetWeight  *float64
	CurrentWeight *float64
	FreqPerWeek   *int
	Active        bool
	LastModified  time.Time
}

// RecordOf flattens a spec into the row shape.
func RecordOf(memberID string, spec Spec, startDate calendar.Date, at time.Time) Record {
	r := Record{
		MemberID:     memberID,
		Kind:         spec.Kind(),
		StartDate:    startDate,
		Active:       true,
		LastModified: at,
	}
	switch v := spec.(type) {
	case Weight:
		r.StartDate = v.StartDate
		r.EndDate = v.EndDate
		r.StartWeight = &v.StartWeight
		r.TargetWeight = &v.TargetWeight
		r.CurrentWeight = &v.CurrentWeight
	case FrequencyExercise:
		r.FreqPerWeek = &v.PerWeek
	case FrequencyDiet:
		r.FreqPerWeek = &v.PerWeek
	}
	return r
}

// Goal rebuilds the variant from a row. Rows missing their variant columns
// are reported as corrupt rather than defaulted.
func (r Record) Goal() (*Goal, error) {
	var spec Spec
	switch r.Kind {
	case KindWeight:
		if r.TargetWeight == nil || r.CurrentWeight == nil {
			return nil, fmt.Errorf("goal %d: weight goal without weights", r.ID)
		}
		start := *r.CurrentWeight
		if r.StartWeight != nil {
			start = *r.StartWeight
		}
		spec = Weight{
			StartDate:     r.StartDate,
			EndDate:       r.EndDate,
			StartWeight:   start,
			TargetWeight:  *r.TargetWeight,
			CurrentWeight: *r.CurrentWeight,
		}
	case KindExercise, KindDiet:
		if r.FreqPerWeek == nil {
			return nil, fmt.Errorf("goal %d: frequency goal without freq_per_week", r.ID)
		}
		if r.Kind == KindExercise {
			spec = FrequencyExercise{PerWeek: *r.FreqPerWeek}
		} else {
			spec = FrequencyDiet{PerWeek: *r.FreqPerWeek}
		}
	default:
		return nil, shared.WrapError("goal", "Decode", shared.ErrInvalidArgument, fmt.Sprintf("unknown goal kind %q", r.Kind), nil)
	}
	return &Goal{
		ID:           r.ID,
		MemberID:     r.MemberID,
		Spec:         spec,
		StartDate:    r.StartDate,
		Active:       r.Active,
		LastModified: r.LastModified,
	}, nil
}
