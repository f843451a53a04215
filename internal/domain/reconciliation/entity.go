// Package reconciliation derives weekly achievement and monthly trophies
// from the goal store and the event ledger, and defines the write-once
// records the passes leave behind.
package reconciliation

import (
	"time"

	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// Badge names as stored in award events.
const (
	BadgeWeekly  = "weekly"
	BadgeBikini  = "bikini"
	BadgeMonthly = "monthly"
)

// WeeklyStatus is written once per member per week and never changed.
type WeeklyStatus struct {
	MemberID         string        `json:"member_id"`
	WeekStart        calendar.Date `json:"week_start"`
	AchievedExercise bool          `json:"achieved_exercise"`
	AchievedDiet     bool          `json:"achieved_diet"`
	AchievedWeight   bool          `json:"achieved_weight"`
	WeightUpdated    bool          `json:"weight_updated"`
	RecordedAt       time.Time     `json:"recorded_at"`
}

// EarnsWeeklyBadge is true when both frequency goals were met.
func (s WeeklyStatus) EarnsWeeklyBadge() bool {
	return s.AchievedExercise && s.AchievedDiet
}

// EarnsBikiniBadge is true when the weight target was reached.
func (s WeeklyStatus) EarnsBikiniBadge() bool {
	return s.AchievedWeight
}

// MonthlyTrophy is written at most once per member per month.
type MonthlyTrophy struct {
	MemberID  string             `json:"member_id"`
	YearMonth calendar.YearMonth `json:"year_month"`
	Won       bool               `json:"won"`
	AwardedAt time.Time          `json:"awarded_at"`
}

// WeekInput is everything the weekly evaluation reads for one member.
type WeekInput struct {
	Week          calendar.Range
	Goals         goal.Active
	ExerciseDone  int
	DietDone      int
	LastWeightDay calendar.Date // local date of the weight goal's last_modified
}

// EvaluateWeek computes the status row for one member. A frequency kind
// without an active goal is never achieved.
func EvaluateWeek(memberID string, in WeekInput, at time.Time) WeeklyStatus {
	st := WeeklyStatus{
		MemberID:   memberID,
		WeekStart:  in.Week.Start,
		RecordedAt: at,
	}
	if g := in.Goals.Exercise; g != nil {
		if n, ok := g.PerWeek(); ok {
			st.AchievedExercise = in.ExerciseDone >= n
		}
	}
	if g := in.Goals.Diet; g != nil {
		if n, ok := g.PerWeek(); ok {
			st.AchievedDiet = in.DietDone >= n
		}
	}
	if g := in.Goals.Weight; g != nil {
		if w, ok := g.Weight(); ok {
			st.AchievedWeight = w.Achieved()
		}
		st.WeightUpdated = in.Week.Contains(in.LastWeightDay)
	}
	return st
}

// EvaluateMonth decides a trophy: every Monday of the month needs a status
// row with both frequency goals achieved. A month without Mondays is never
// won.
func EvaluateMonth(mondays []calendar.Date, statuses []WeeklyStatus) bool {
	if len(mondays) == 0 {
		return false
	}
	byWeek := make(map[calendar.Date]WeeklyStatus, len(statuses))
	for _, s := range statuses {
		byWeek[s.WeekStart] = s
	}
	for _, m := range mondays {
		s, ok := byWeek[m]
		if !ok || !s.EarnsWeeklyBadge() {
			return false
		}
	}
	return true
}

// RunMarker records the last period a scheduled job completed.
type RunMarker struct {
	Job    string    `json:"job"`
	Period string    `json:"period"`
	RanAt  time.Time `json:"ran_at"`
}
