package sqlite_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcrew/trainer-hub/internal/domain/activity"
	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/internal/domain/reconciliation"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/internal/testutil"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

var (
	ctx = context.Background()
	t0  = testutil.At(2024, time.January, 1, 9, 0)
)

func TestMemberRepository(t *testing.T) {
	store := testutil.NewStore(t)
	members := store.Members()

	m, created, err := members.Register(ctx, "u1", "alice", t0)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "alice", m.Nickname)
	assert.Zero(t, m.Badges.Total())

	m, created, err = members.Register(ctx, "u1", "", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "alice", m.Nickname, "empty nickname keeps the stored one")

	m, _, err = members.Register(ctx, "u1", "alice2", t0)
	require.NoError(t, err)
	assert.Equal(t, "alice2", m.Nickname)

	_, err = members.Get(ctx, "nobody")
	assert.True(t, shared.IsNotFound(err))

	_, _, err = members.Register(ctx, "u0", "bob", t0)
	require.NoError(t, err)
	ids, err := members.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u0", "u1"}, ids)
}

func TestGoalRepository_OneActivePerKind(t *testing.T) {
	store := testutil.NewStore(t)
	goals := store.Goals()
	start := testutil.Date("2024-01-01")

	for i, n := range []int{3, 4, 5} {
		g, err := goals.Replace(ctx, "u1", goal.FrequencyExercise{PerWeek: n}, start, t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		assert.True(t, g.Active)
	}
	_, err := goals.Replace(ctx, "u1", goal.FrequencyDiet{PerWeek: 2}, start, t0)
	require.NoError(t, err)

	active, err := goals.Active(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, active.Exercise)
	n, _ := active.Exercise.PerWeek()
	assert.Equal(t, 5, n)
	assert.NotNil(t, active.Diet)
	assert.Nil(t, active.Weight)

	history, err := goals.History(ctx, "u1", goal.KindExercise)
	require.NoError(t, err)
	require.Len(t, history, 3)
	activeCount := 0
	for _, g := range history {
		if g.Active {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)
	assert.True(t, history[0].Active, "newest first")

	ok, err := goals.Deactivate(ctx, "u1", goal.KindExercise, t0)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = goals.Deactivate(ctx, "u1", goal.KindExercise, t0)
	require.NoError(t, err)
	assert.False(t, ok, "deactivating twice is a no-op")

	active, err = goals.Active(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, active.Exercise)
}

func TestGoalRepository_RejectsInvalidSpec(t *testing.T) {
	store := testutil.NewStore(t)
	_, err := store.Goals().Replace(ctx, "u1", goal.FrequencyDiet{PerWeek: 8}, testutil.Date("2024-01-01"), t0)
	assert.True(t, shared.IsInvalidArgument(err))

	history, err := store.Goals().History(ctx, "u1", goal.KindDiet)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestGoalRepository_Weight(t *testing.T) {
	store := testutil.NewStore(t)
	goals := store.Goals()

	g, err := goals.UpdateCurrentWeight(ctx, "u1", 62, t0)
	require.NoError(t, err)
	assert.Nil(t, g, "no weight goal is a silent no-op")

	spec, err := goal.NewWeightForWeeks(testutil.Date("2024-01-01"), 8, 65, 60)
	require.NoError(t, err)
	_, err = goals.Replace(ctx, "u1", spec, spec.StartDate, t0)
	require.NoError(t, err)

	pending, err := goals.PendingWeightReports(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = goals.UpdateCurrentWeight(ctx, "u1", 62, t0.Add(time.Hour))
	require.NoError(t, err)
	g, err = goals.UpdateCurrentWeight(ctx, "u1", 59, t0.Add(2*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, g)

	w, ok := g.Weight()
	require.True(t, ok)
	assert.Equal(t, 59.0, w.CurrentWeight)
	assert.Equal(t, 65.0, w.StartWeight)
	assert.True(t, w.Achieved())

	active, err := goals.Active(ctx, "u1")
	require.NoError(t, err)
	w, _ = active.Weight.Weight()
	assert.Equal(t, 59.0, w.CurrentWeight)
	assert.True(t, active.Weight.LastModified.Equal(t0.Add(2*time.Hour)))

	pending, err = goals.PendingWeightReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = goals.UpdateCurrentWeight(ctx, "u1", 0, t0)
	assert.True(t, shared.IsInvalidArgument(err))

	ids, err := goals.MembersWithActiveGoals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ids)
}

func TestActivityRepository_Caps(t *testing.T) {
	store := testutil.NewStore(t)
	ledger := store.Activity()
	day := testutil.Date("2024-01-02")

	for i := 0; i < 3; i++ {
		n, err := ledger.RecordExercise(ctx, "u1", day)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
	for i := 1; i <= 3; i++ {
		n, err := ledger.RecordDiet(ctx, "u1", day)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	n, err := ledger.Count(ctx, "u1", activity.KindExercise, day)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestActivityRepository_ConcurrentExercise(t *testing.T) {
	store := testutil.NewStore(t)
	day := testutil.Date("2024-01-02")

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := store.Activity().RecordExercise(ctx, "u1", day)
			assert.NoError(t, err)
			results[i] = n
		}(i)
	}
	wg.Wait()

	for _, n := range results {
		assert.Equal(t, 1, n)
	}
}

func TestActivityRepository_SumsAndDays(t *testing.T) {
	store := testutil.NewStore(t)
	ledger := store.Activity()
	week := calendar.WeekOf(testutil.Date("2024-01-03"))

	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-08"} {
		_, err := ledger.RecordExercise(ctx, "u1", testutil.Date(d))
		require.NoError(t, err)
	}
	for _, d := range []string{"2024-01-02", "2024-01-02", "2024-01-07"} {
		_, err := ledger.RecordDiet(ctx, "u1", testutil.Date(d))
		require.NoError(t, err)
	}

	sum, err := ledger.Sum(ctx, "u1", activity.KindExercise, week)
	require.NoError(t, err)
	assert.Equal(t, 3, sum)

	sum, err = ledger.Sum(ctx, "u1", activity.KindDiet, week)
	require.NoError(t, err)
	assert.Equal(t, 3, sum)

	one := calendar.NewRange(testutil.Date("2024-01-02"), testutil.Date("2024-01-02"))
	sum, err = ledger.Sum(ctx, "u1", activity.KindDiet, one)
	require.NoError(t, err)
	assert.Equal(t, 2, sum)

	empty := calendar.NewRange(testutil.Date("2024-01-05"), testutil.Date("2024-01-01"))
	sum, err = ledger.Sum(ctx, "u1", activity.KindExercise, empty)
	require.NoError(t, err)
	assert.Zero(t, sum)

	none := calendar.NewRange(testutil.Date("2023-01-01"), testutil.Date("2023-01-31"))
	sum, err = ledger.Sum(ctx, "u1", activity.KindExercise, none)
	require.NoError(t, err)
	assert.Zero(t, sum)

	days, err := ledger.Days(ctx, "u1", week)
	require.NoError(t, err)
	require.Len(t, days, 4)
	assert.Equal(t, activity.DayCount{Date: testutil.Date("2024-01-02"), Exercise: 1, Diet: 2}, days[1])
	assert.Equal(t, activity.DayCount{Date: testutil.Date("2024-01-07"), Diet: 1}, days[3])
}

func TestReconciliationRepository_WeekIsInsertOnly(t *testing.T) {
	store := testutil.NewStore(t)
	_, _, err := store.Members().Register(ctx, "u1", "alice", t0)
	require.NoError(t, err)

	rec := store.Reconciliation()
	st := reconciliation.WeeklyStatus{
		MemberID:         "u1",
		WeekStart:        testutil.Date("2024-01-01"),
		AchievedExercise: true,
		AchievedDiet:     true,
		AchievedWeight:   true,
		RecordedAt:       t0,
	}

	inserted, err := rec.RecordWeek(ctx, st)
	require.NoError(t, err)
	assert.True(t, inserted)

	changed := st
	changed.AchievedDiet = false
	inserted, err = rec.RecordWeek(ctx, changed)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := rec.WeeklyStatus(ctx, "u1", st.WeekStart)
	require.NoError(t, err)
	assert.True(t, got.AchievedDiet, "first write wins")

	m, err := store.Members().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Badges.Weekly)
	assert.Equal(t, 1, m.Badges.Bikini)

	_, err = rec.WeeklyStatus(ctx, "u1", testutil.Date("2024-01-08"))
	assert.True(t, shared.IsNotFound(err))
}

func TestReconciliationRepository_UnknownMemberRollsBack(t *testing.T) {
	store := testutil.NewStore(t)
	rec := store.Reconciliation()

	_, err := rec.RecordWeek(ctx, reconciliation.WeeklyStatus{
		MemberID: "ghost", WeekStart: testutil.Date("2024-01-01"), RecordedAt: t0,
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = rec.WeeklyStatus(ctx, "ghost", testutil.Date("2024-01-01"))
	assert.True(t, shared.IsNotFound(err), "status row must not survive the failed transaction")
}

func TestReconciliationRepository_Trophy(t *testing.T) {
	store := testutil.NewStore(t)
	_, _, err := store.Members().Register(ctx, "u1", "alice", t0)
	require.NoError(t, err)
	rec := store.Reconciliation()
	jan := calendar.YearMonth{Year: 2024, Month: time.January}

	for i := 0; i < 3; i++ {
		_, err := rec.RecordTrophy(ctx, reconciliation.MonthlyTrophy{MemberID: "u1", YearMonth: jan, Won: true, AwardedAt: t0})
		require.NoError(t, err)
	}
	m, err := store.Members().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Badges.Monthly)

	tr, err := rec.MonthlyTrophy(ctx, "u1", jan)
	require.NoError(t, err)
	assert.True(t, tr.Won)
	assert.Equal(t, jan, tr.YearMonth)

	statuses, err := rec.WeeklyStatuses(ctx, "u1", jan.Range())
	require.NoError(t, err)
	assert.Empty(t, statuses)
}

func TestRunMarkers(t *testing.T) {
	store := testutil.NewStore(t)
	markers := store.Markers()

	m, err := markers.LastRun(ctx, "weekly")
	require.NoError(t, err)
	assert.Nil(t, m)

	require.NoError(t, markers.SaveRun(ctx, reconciliation.RunMarker{Job: "weekly", Period: "2024-01-01", RanAt: t0}))
	require.NoError(t, markers.SaveRun(ctx, reconciliation.RunMarker{Job: "weekly", Period: "2024-01-08", RanAt: t0}))

	m, err = markers.LastRun(ctx, "weekly")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "2024-01-08", m.Period)
}

func TestLeaderboardRepository(t *testing.T) {
	store := testutil.NewStore(t)
	for _, id := range []string{"c", "a", "b", "d"} {
		_, _, err := store.Members().Register(ctx, id, "nick-"+id, t0)
		require.NoError(t, err)
	}
	week := calendar.WeekOf(testutil.Date("2024-01-03"))

	for _, d := range []string{"2024-01-01", "2024-01-02"} {
		_, err := store.Activity().RecordExercise(ctx, "b", testutil.Date(d))
		require.NoError(t, err)
	}
	_, err := store.Activity().RecordExercise(ctx, "c", testutil.Date("2024-01-01"))
	require.NoError(t, err)
	_, err = store.Activity().RecordExercise(ctx, "a", testutil.Date("2024-01-03"))
	require.NoError(t, err)
	// outside the window
	_, err = store.Activity().RecordExercise(ctx, "d", testutil.Date("2024-01-09"))
	require.NoError(t, err)

	top, err := store.Leaderboard().TopByActivity(ctx, activity.KindExercise, week, 5)
	require.NoError(t, err)
	require.Len(t, top, 4, "members without rows appear with zero")
	assert.Equal(t, "b", top[0].MemberID)
	assert.Equal(t, 2, top[0].Score)
	assert.Equal(t, "a", top[1].MemberID, "ties break by member id")
	assert.Equal(t, "c", top[2].MemberID)
	assert.Equal(t, 2, top[2].Rank)
	assert.Equal(t, "d", top[3].MemberID)
	assert.Zero(t, top[3].Score)

	top, err = store.Leaderboard().TopByActivity(ctx, activity.KindDiet, week, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	_, err = store.Reconciliation().RecordWeek(ctx, reconciliation.WeeklyStatus{
		MemberID: "d", WeekStart: week.Start, AchievedExercise: true, AchievedDiet: true, AchievedWeight: true, RecordedAt: t0,
	})
	require.NoError(t, err)

	badges, err := store.Leaderboard().TopByBadges(ctx, 5)
	require.NoError(t, err)
	require.Len(t, badges, 4)
	assert.Equal(t, "d", badges[0].MemberID)
	assert.Equal(t, 2, badges[0].Score)
	require.NotNil(t, badges[0].Badges)
	assert.Equal(t, 1, badges[0].Badges.Bikini)
	assert.Equal(t, "a", badges[1].MemberID)
}
