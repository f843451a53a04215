package reconciliation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

var now = time.Date(2024, 1, 7, 23, 0, 0, 0, time.UTC)

func TestEvaluateWeek(t *testing.T) {
	week := calendar.WeekOf(calendar.MustParseDate("2024-01-07"))
	active := goal.Active{
		Exercise: &goal.Goal{Spec: goal.FrequencyExercise{PerWeek: 3}},
		Diet:     &goal.Goal{Spec: goal.FrequencyDiet{PerWeek: 5}},
		Weight: &goal.Goal{Spec: goal.Weight{
			StartWeight: 70, TargetWeight: 60, CurrentWeight: 59,
		}},
	}

	st := EvaluateWeek("m1", WeekInput{
		Week: week, Goals: active, ExerciseDone: 3, DietDone: 4,
		LastWeightDay: calendar.MustParseDate("2024-01-03"),
	}, now)

	assert.True(t, st.AchievedExercise)
	assert.False(t, st.AchievedDiet)
	assert.True(t, st.AchievedWeight)
	assert.True(t, st.WeightUpdated)
	assert.False(t, st.EarnsWeeklyBadge())
	assert.True(t, st.EarnsBikiniBadge())
	assert.Equal(t, week.Start, st.WeekStart)
}

func TestEvaluateWeek_MissingGoalsNeverAchieve(t *testing.T) {
	week := calendar.WeekOf(calendar.MustParseDate("2024-01-07"))
	st := EvaluateWeek("m1", WeekInput{Week: week, ExerciseDone: 7, DietDone: 20}, now)

	assert.False(t, st.AchievedExercise)
	assert.False(t, st.AchievedDiet)
	assert.False(t, st.AchievedWeight)
	assert.False(t, st.WeightUpdated)
}

func TestEvaluateMonth(t *testing.T) {
	feb := calendar.YearMonth{Year: 2024, Month: time.February}
	mondays := feb.Mondays()

	var all []WeeklyStatus
	for _, m := range mondays {
		all = append(all, WeeklyStatus{WeekStart: m, AchievedExercise: true, AchievedDiet: true})
	}
	assert.True(t, EvaluateMonth(mondays, all))

	// a missing week fails the month
	assert.False(t, EvaluateMonth(mondays, all[1:]))

	// one half-achieved week fails the month
	broken := append([]WeeklyStatus(nil), all...)
	broken[2].AchievedDiet = false
	assert.False(t, EvaluateMonth(mondays, broken))

	assert.False(t, EvaluateMonth(nil, all))
}
