// Package goal models member goals as a closed set of variants and
// the at-most-one-active-per-kind rule the store enforces.
package goal

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// ══════════════════════════════════════════════════════════════════════════════
// KIND
// ══════════════════════════════════════════════════════════════════════════════

// Kind identifies a goal variant. Values match the stored column.
type Kind string

const (
	KindWeight   Kind = "weight"
	KindExercise Kind = "freq_exercise"
	KindDiet     Kind = "freq_diet"
)

// Kinds lists every goal kind in display order.
var Kinds = []Kind{KindExercise, KindDiet, KindWeight}

// Frequency bounds, inclusive.
const (
	MinFrequency = 1
	MaxFrequency = 7
)

// ParseKind accepts stored names and the short forms used by the API.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weight":
		return KindWeight, nil
	case "exercise", "freq_exercise":
		return KindExercise, nil
	case "diet", "freq_diet":
		return KindDiet, nil
	default:
		return "", shared.WrapError("goal", "ParseKind", shared.ErrInvalidArgument, fmt.Sprintf("unknown goal kind %q", s), nil)
	}
}

// Short returns the API form of the kind (weight, exercise, diet).
func (k Kind) Short() string {
	return strings.TrimPrefix(string(k), "freq_")
}

func (k Kind) IsFrequency() bool { return k == KindExercise || k == KindDiet }

// ══════════════════════════════════════════════════════════════════════════════
// SPEC (tagged union)
// ══════════════════════════════════════════════════════════════════════════════

// Spec is the variant payload of a goal. The set of implementations is closed.
type Spec interface {
	Kind() Kind
	Validate() error
	isSpec()
}

// Weight is a weight-loss goal over a date window.
type Weight struct {
	StartDate     calendar.Date `json:"start_date"`
	EndDate       calendar.Date `json:"end_date"`
	StartWeight   float64       `json:"start_weight"`
	TargetWeight  float64       `json:"target_weight"`
	CurrentWeight float64       `json:"current_weight"`
}

// NewWeightForWeeks builds a weight goal lasting the given number of weeks
// from start, with the current weight equal to the starting weight.
func NewWeightForWeeks(start calendar.Date, weeks int, startWeight, target float64) (Weight, error) {
	if weeks < 1 {
		return Weight{}, shared.InvalidArgument("goal", "SetWeight", "duration must be at least one week, got %d", weeks)
	}
	w := Weight{
		StartDate:     start,
		EndDate:       start.AddDays(7*weeks - 1),
		StartWeight:   startWeight,
		TargetWeight:  target,
		CurrentWeight: startWeight,
	}
	return w, w.Validate()
}

func (Weight) Kind() Kind { return KindWeight }
func (Weight) isSpec()    {}

func (w Weight) Validate() error {
	for _, v := range []float64{w.StartWeight, w.TargetWeight, w.CurrentWeight} {
		if err := ValidateWeight(v); err != nil {
			return err
		}
	}
	if w.StartDate.IsZero() || w.EndDate.IsZero() || w.EndDate.Before(w.StartDate) {
		return shared.ErrInvalidGoalDates
	}
	return nil
}

// Achieved reports whether the current weight has reached the target.
func (w Weight) Achieved() bool {
	return w.CurrentWeight <= w.TargetWeight
}

// ProgressPercent is how far the member has moved from the starting weight
// towards the target, clamped to 0..100.
func (w Weight) ProgressPercent() float64 {
	span := w.StartWeight - w.TargetWeight
	if span <= 0 {
		return 100
	}
	pct := (w.StartWeight - w.CurrentWeight) / span * 100
	return math.Max(0, math.Min(100, pct))
}

// Remaining is the weight still to lose, never negative.
func (w Weight) Remaining() float64 {
	return math.Max(0, w.CurrentWeight-w.TargetWeight)
}

// FrequencyExercise asks for a number of exercise days per week.
type FrequencyExercise struct {
	PerWeek int `json:"freq_per_week"`
}

func (FrequencyExercise) Kind() Kind        { return KindExercise }
func (FrequencyExercise) isSpec()           {}
func (f FrequencyExercise) Validate() error { return ValidateFrequency(f.PerWeek) }

// FrequencyDiet asks for a number of diet posts per week.
type FrequencyDiet struct {
	PerWeek int `json:"freq_per_week"`
}

func (FrequencyDiet) Kind() Kind        { return KindDiet }
func (FrequencyDiet) isSpec()           {}
func (f FrequencyDiet) Validate() error { return ValidateFrequency(f.PerWeek) }

// NewFrequency builds the frequency variant for kind.
func NewFrequency(kind Kind, perWeek int) (Spec, error) {
	var s Spec
	switch kind {
	case KindExercise:
		s = FrequencyExercise{PerWeek: perWeek}
	case KindDiet:
		s = FrequencyDiet{PerWeek: perWeek}
	default:
		return nil, shared.InvalidArgument("goal", "SetFrequency", "%q is not a frequency goal", kind)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ValidateFrequency enforces MinFrequency..MaxFrequency.
func ValidateFrequency(n int) error {
	if n < MinFrequency || n > MaxFrequency {
		return shared.WrapError("goal", "Validate", shared.ErrInvalidArgument,
			fmt.Sprintf("frequency per week must be between %d and %d, got %d", MinFrequency, MaxFrequency, n), nil)
	}
	return nil
}

// ValidateWeight rejects non-positive and non-finite weights.
func ValidateWeight(w float64) error {
	if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return shared.ErrInvalidWeight
	}
	return nil
}

// PerWeekOf returns the weekly target of a frequency spec.
func PerWeekOf(s Spec) (int, bool) {
	switch v := s.(type) {
	case FrequencyExercise:
		return v.PerWeek, true
	case FrequencyDiet:
		return v.PerWeek, true
	default:
		return 0, false
	}
}

// Describe flattens a spec for event payloads.
func Describe(s Spec) map[string]any {
	switch v := s.(type) {
	case Weight:
		return map[string]any{
			"start_date":     v.StartDate.String(),
			"end_date":       v.EndDate.String(),
			"start_weight":   v.StartWeight,
			"target_weight":  v.TargetWeight,
			"current_weight": v.CurrentWeight,
		}
	case FrequencyExercise:
		return map[string]any{"freq_per_week": v.PerWeek}
	case FrequencyDiet:
		return map[string]any{"freq_per_week": v.PerWeek}
	default:
		return nil
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// GOAL
// ══════════════════════════════════════════════════════════════════════════════

// Goal is one stored goal row. Superseded goals stay with Active=false.
type Goal struct {
	ID           int64         `json:"id"`
	MemberID     string        `json:"member_id"`
	Spec         Spec          `json:"spec"`
	StartDate    calendar.Date `json:"start_date"`
	Active       bool          `json:"active"`
	LastModified time.Time     `json:"last_modified"`
}

func (g *Goal) Kind() Kind { return g.Spec.Kind() }

// MarshalJSON adds "kind" next to the spec so history entries are
// self-describing.
func (g Goal) MarshalJSON() ([]byte, error) {
	type plain Goal
	var kind Kind
	if g.Spec != nil {
		kind = g.Spec.Kind()
	}
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		plain
	}{kind, plain(g)})
}

// Weight returns the weight variant, if this is a weight goal.
func (g *Goal) Weight() (Weight, bool) {
	w, ok := g.Spec.(Weight)
	return w, ok
}

// PerWeek returns the weekly target, if this is a frequency goal.
func (g *Goal) PerWeek() (int, bool) {
	return PerWeekOf(g.Spec)
}

// Active groups the active goal per kind; each slot may be nil.
type Active struct {
	Weight   *Goal `json:"weight,omitempty"`
	Exercise *Goal `json:"exercise,omitempty"`
	Diet     *Goal `json:"diet,omitempty"`
}

// Get returns the slot for kind.
func (a Active) Get(kind Kind) *Goal {
	switch kind {
	case KindWeight:
		return a.Weight
	case KindExercise:
		return a.Exercise
	case KindDiet:
		return a.Diet
	}
	return nil
}

// Put stores g in its kind's slot.
func (a *Active) Put(g *Goal) {
	switch g.Kind() {
	case KindWeight:
		a.Weight = g
	case KindExercise:
		a.Exercise = g
	case KindDiet:
		a.Diet = g
	}
}

func (a Active) Empty() bool {
	return a.Weight == nil && a.Exercise == nil && a.Diet == nil
}

// List returns the non-nil goals in Kinds order.
func (a Active) List() []*Goal {
	out := make([]*Goal, 0, 3)
	for _, k := range Kinds {
		if g := a.Get(k); g != nil {
			out = append(out, g)
		}
	}
	return out
}
