package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcrew/trainer-hub/internal/application/reconcile"
	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/internal/infrastructure/scheduler/jobs"
	"github.com/fitcrew/trainer-hub/internal/testutil"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

type weeklyRunner struct{ weeks []calendar.Date }

func (r *weeklyRunner) Run(_ context.Context, weekStart calendar.Date) (*reconcile.Report, error) {
	r.weeks = append(r.weeks, weekStart)
	return &reconcile.Report{Pass: "weekly", Period: weekStart.String()}, nil
}

type monthlyRunner struct{ months []calendar.YearMonth }

func (r *monthlyRunner) Run(_ context.Context, ym calendar.YearMonth) (*reconcile.Report, error) {
	r.months = append(r.months, ym)
	return &reconcile.Report{Pass: "monthly", Period: ym.String()}, nil
}

func TestWeeklyJob_Period(t *testing.T) {
	cal, _ := testutil.Calendar(testutil.At(2024, time.February, 11, 23, 0))
	job := jobs.NewWeeklyReconciliationJob(&weeklyRunner{}, nil, cal, nil)
	assert.Equal(t, "2024-02-05", job.Period(testutil.At(2024, time.February, 11, 23, 0)))
	// 15:00 UTC Sunday is already Monday 00:00 in KST.
	assert.Equal(t, "2024-02-12", job.Period(time.Date(2024, time.February, 11, 15, 0, 0, 0, time.UTC)))
}

func TestWeeklyJob_StraddlingWeekRerunsMonth(t *testing.T) {
	ctx := context.Background()
	cal, clock := testutil.Calendar(testutil.At(2024, time.January, 28, 23, 0))
	w, m := &weeklyRunner{}, &monthlyRunner{}
	job := jobs.NewWeeklyReconciliationJob(w, m, cal, nil)

	require.NoError(t, job.Run(ctx, "2024-01-22"))
	assert.Empty(t, m.months)

	clock.Set(testutil.At(2024, time.February, 4, 23, 0))
	require.NoError(t, job.Run(ctx, "2024-01-29"))
	assert.Equal(t, []calendar.YearMonth{{Year: 2024, Month: time.January}}, m.months)
	assert.Len(t, w.weeks, 2)
	require.NotNil(t, job.LastReport())
	assert.Equal(t, "2024-01-29", job.LastReport().Period)

	assert.Error(t, job.Run(ctx, "not-a-date"))
}

// January 2024 has Mondays 1, 8, 15, 22 and 29. The week of the 29th is only
// reconciled on Feb 4, after January's monthly fire.
func TestStraddlingWeek_WinsJanuaryOnStore(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	cal, clock := testutil.Calendar(testutil.At(2024, time.January, 1, 9, 0))
	deps := reconcile.Deps{
		Members:  store.Members(),
		Goals:    store.Goals(),
		Activity: store.Activity(),
		Results:  store.Reconciliation(),
		Calendar: cal,
	}
	weeklyPass, err := reconcile.NewWeeklyPass(deps)
	require.NoError(t, err)
	monthlyPass, err := reconcile.NewMonthlyPass(deps)
	require.NoError(t, err)
	weeklyJob := jobs.NewWeeklyReconciliationJob(weeklyPass, monthlyPass, cal, nil)
	monthlyJob := jobs.NewMonthlyReconciliationJob(monthlyPass, cal)

	_, _, err = store.Members().Register(ctx, "a", "alice", clock.Now())
	require.NoError(t, err)
	start := testutil.Date("2024-01-01")
	_, err = store.Goals().Replace(ctx, "a", goal.FrequencyExercise{PerWeek: 1}, start, clock.Now())
	require.NoError(t, err)
	_, err = store.Goals().Replace(ctx, "a", goal.FrequencyDiet{PerWeek: 1}, start, clock.Now())
	require.NoError(t, err)

	for _, monday := range []string{"2024-01-01", "2024-01-08", "2024-01-15", "2024-01-22", "2024-01-29"} {
		d := testutil.Date(monday)
		_, err := store.Activity().RecordExercise(ctx, "a", d)
		require.NoError(t, err)
		_, err = store.Activity().RecordDiet(ctx, "a", d)
		require.NoError(t, err)
		if monday == "2024-01-29" {
			break
		}
		clock.Set(d.AddDays(6).In(testutil.KST).Add(23 * time.Hour))
		require.NoError(t, weeklyJob.Run(ctx, monday))
	}

	clock.Set(testutil.At(2024, time.February, 1, 0, 10))
	require.NoError(t, monthlyJob.Run(ctx, "2024-01"))
	january := calendar.YearMonth{Year: 2024, Month: time.January}
	_, err = store.Reconciliation().MonthlyTrophy(ctx, "a", january)
	assert.ErrorIs(t, err, shared.ErrMonthlyTrophyNotFound, "week of the 29th not reconciled yet")

	clock.Set(testutil.At(2024, time.February, 4, 23, 0))
	require.NoError(t, weeklyJob.Run(ctx, "2024-01-29"))

	trophy, err := store.Reconciliation().MonthlyTrophy(ctx, "a", january)
	require.NoError(t, err)
	assert.True(t, trophy.Won)
	m, err := store.Members().Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 5, m.Badges.Weekly)
	assert.Equal(t, 1, m.Badges.Monthly)
}

func TestMonthlyJob(t *testing.T) {
	ctx := context.Background()
	cal, _ := testutil.Calendar(testutil.At(2024, time.March, 1, 0, 10))
	m := &monthlyRunner{}
	job := jobs.NewMonthlyReconciliationJob(m, cal)

	period := job.Period(testutil.At(2024, time.March, 1, 0, 10))
	assert.Equal(t, "2024-02", period)
	require.NoError(t, job.Run(ctx, period))
	assert.Equal(t, []calendar.YearMonth{{Year: 2024, Month: time.February}}, m.months)
	assert.Equal(t, jobs.MonthlyReconciliationName, job.Name())
}
