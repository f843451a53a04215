package command_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcrew/trainer-hub/internal/application/command"
	"github.com/fitcrew/trainer-hub/internal/domain/activity"
	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/internal/infrastructure/persistence/sqlite"
	"github.com/fitcrew/trainer-hub/internal/testutil"
)

var ctx = context.Background()

// Wednesday 2024-01-03 10:00 KST.
var now = testutil.At(2024, time.January, 3, 10, 0)

type recorder struct {
	mu     sync.Mutex
	events []shared.Event
}

func (r *recorder) Publish(e shared.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []shared.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

type fixture struct {
	store    *sqlite.Store
	pub      *recorder
	register *command.RegisterMemberHandler
	setGoal  *command.SetGoalHandler
	delGoal  *command.DeleteGoalHandler
	weight   *command.ReportWeightHandler
	activity *command.RecordActivityHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewStore(t)
	cal, _ := testutil.Calendar(now)
	pub := &recorder{}
	register := command.NewRegisterMemberHandler(store.Members(), cal, pub)
	return &fixture{
		store:    store,
		pub:      pub,
		register: register,
		setGoal:  command.NewSetGoalHandler(register, store.Goals(), cal, pub),
		delGoal:  command.NewDeleteGoalHandler(store.Goals(), cal, pub),
		weight:   command.NewReportWeightHandler(store.Goals(), cal, pub),
		activity: command.NewRecordActivityHandler(register, store.Activity(), cal, pub,
			command.DefaultRecordActivityHandlerConfig()),
	}
}

func TestRegisterMember(t *testing.T) {
	f := newFixture(t)

	res, err := f.register.Handle(ctx, command.RegisterMemberCommand{MemberID: "u1", Nickname: "  alice "})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "alice", res.Member.Nickname)

	res, err = f.register.Handle(ctx, command.RegisterMemberCommand{MemberID: "u1", Nickname: "alicia"})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "alicia", res.Member.Nickname)
	assert.Empty(t, res.Events, "renaming publishes nothing")

	assert.Equal(t, []shared.EventType{shared.EventMemberRegistered}, f.pub.types())

	_, err = f.register.Handle(ctx, command.RegisterMemberCommand{MemberID: " "})
	assert.True(t, shared.IsInvalidArgument(err))
}

func TestSetGoal_ReplacesActiveGoal(t *testing.T) {
	f := newFixture(t)

	first, err := f.setGoal.HandleFrequency(ctx, command.SetFrequencyGoalCommand{
		MemberID: "u1", Nickname: "alice", Kind: goal.KindExercise, PerWeek: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, testutil.Date("2024-01-03"), first.Goal.StartDate)

	second, err := f.setGoal.HandleFrequency(ctx, command.SetFrequencyGoalCommand{
		MemberID: "u1", Kind: goal.KindExercise, PerWeek: 5,
	})
	require.NoError(t, err)
	perWeek, ok := second.Goal.PerWeek()
	require.True(t, ok)
	assert.Equal(t, 5, perWeek)

	active, err := f.store.Goals().Active(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, active.Exercise)
	assert.Equal(t, second.Goal.ID, active.Exercise.ID)

	history, err := f.store.Goals().History(ctx, "u1", goal.KindExercise)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[1].Active)

	assert.Equal(t, []shared.EventType{
		shared.EventMemberRegistered, shared.EventGoalSet, shared.EventGoalSet,
	}, f.pub.types())
}

func TestSetGoal_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.setGoal.HandleFrequency(ctx, command.SetFrequencyGoalCommand{MemberID: "u1", Kind: goal.KindDiet, PerWeek: 8})
	assert.True(t, shared.IsInvalidArgument(err))

	_, err = f.setGoal.HandleWeight(ctx, command.SetWeightGoalCommand{MemberID: "u1", Weeks: 0, CurrentWeight: 80, TargetWeight: 75})
	assert.True(t, shared.IsInvalidArgument(err))

	_, err = f.setGoal.HandleWeight(ctx, command.SetWeightGoalCommand{
		MemberID: "u1", StartDate: testutil.Date("2024-01-10"), EndDate: testutil.Date("2024-01-01"),
		CurrentWeight: 80, TargetWeight: 75,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidGoalDates)

	_, err = f.setGoal.HandleWeight(ctx, command.SetWeightGoalCommand{MemberID: "u1", Weeks: 4, CurrentWeight: -1, TargetWeight: 75})
	assert.ErrorIs(t, err, shared.ErrInvalidWeight)

	assert.Empty(t, f.pub.types(), "nothing is written or published for invalid goals")
}

func TestSetWeightGoal_Weeks(t *testing.T) {
	f := newFixture(t)

	res, err := f.setGoal.HandleWeight(ctx, command.SetWeightGoalCommand{
		MemberID: "u1", Weeks: 4, CurrentWeight: 80, TargetWeight: 75,
	})
	require.NoError(t, err)

	w, ok := res.Goal.Weight()
	require.True(t, ok)
	assert.Equal(t, testutil.Date("2024-01-03"), w.StartDate)
	assert.Equal(t, testutil.Date("2024-01-30"), w.EndDate)
	assert.Equal(t, 80.0, w.StartWeight)
	assert.Equal(t, 80.0, w.CurrentWeight)
}

func TestReportWeight(t *testing.T) {
	f := newFixture(t)

	res, err := f.weight.Handle(ctx, command.ReportWeightCommand{MemberID: "u1", Weight: 70})
	require.NoError(t, err)
	assert.False(t, res.Updated, "no active weight goal drops the report")

	_, err = f.setGoal.HandleWeight(ctx, command.SetWeightGoalCommand{
		MemberID: "u1", Weeks: 4, CurrentWeight: 80, TargetWeight: 75,
	})
	require.NoError(t, err)

	res, err = f.weight.Handle(ctx, command.ReportWeightCommand{MemberID: "u1", Weight: 77.5})
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.False(t, res.Achieved)

	res, err = f.weight.Handle(ctx, command.ReportWeightCommand{MemberID: "u1", Weight: 75})
	require.NoError(t, err)
	assert.True(t, res.Achieved)

	_, err = f.weight.Handle(ctx, command.ReportWeightCommand{MemberID: "u1", Weight: 0})
	assert.ErrorIs(t, err, shared.ErrInvalidWeight)
}

func TestDeleteGoal(t *testing.T) {
	f := newFixture(t)

	res, err := f.delGoal.Handle(ctx, command.DeleteGoalCommand{MemberID: "u1", Kind: goal.KindDiet})
	require.NoError(t, err)
	assert.False(t, res.Deactivated)

	_, err = f.setGoal.HandleFrequency(ctx, command.SetFrequencyGoalCommand{MemberID: "u1", Kind: goal.KindDiet, PerWeek: 2})
	require.NoError(t, err)

	res, err = f.delGoal.Handle(ctx, command.DeleteGoalCommand{MemberID: "u1", Kind: "diet"})
	require.NoError(t, err)
	assert.True(t, res.Deactivated)

	active, err := f.store.Goals().Active(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, active.Diet)

	_, err = f.delGoal.Handle(ctx, command.DeleteGoalCommand{MemberID: "u1", Kind: "sleep"})
	assert.True(t, shared.IsInvalidArgument(err))
}

func TestRecordExercise_CappedPerDay(t *testing.T) {
	f := newFixture(t)

	res, err := f.activity.HandleExercise(ctx, command.RecordExerciseCommand{MemberID: "u1", Nickname: "alice"})
	require.NoError(t, err)
	assert.Equal(t, testutil.Date("2024-01-03"), res.Date)
	assert.Equal(t, 1, res.Count)
	assert.True(t, res.Credited)

	res, err = f.activity.HandleExercise(ctx, command.RecordExerciseCommand{MemberID: "u1", Source: activity.SourceForum})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.False(t, res.Credited)

	res, err = f.activity.HandleExercise(ctx, command.RecordExerciseCommand{MemberID: "u1", Date: testutil.Date("2024-01-02")})
	require.NoError(t, err)
	assert.True(t, res.Credited)

	m, err := f.store.Members().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", m.Nickname, "activity registers unknown members")
}

func TestRecordDiet_Accumulates(t *testing.T) {
	f := newFixture(t)

	for want := 1; want <= 3; want++ {
		res, err := f.activity.HandleDiet(ctx, command.RecordDietCommand{MemberID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, want, res.Count)
		assert.True(t, res.Credited)
	}
}

func TestRecordVoiceSession(t *testing.T) {
	f := newFixture(t)
	joined := testutil.At(2024, time.January, 3, 23, 50)

	short, err := f.activity.HandleVoiceSession(ctx, command.RecordVoiceSessionCommand{
		MemberID: "u1", JoinedAt: joined, LeftAt: joined.Add(10 * time.Minute),
	})
	require.NoError(t, err)
	assert.False(t, short.Credited)
	assert.Equal(t, 0, short.Count)

	// Crosses local midnight: credited on the day the member left.
	long, err := f.activity.HandleVoiceSession(ctx, command.RecordVoiceSessionCommand{
		MemberID: "u1", JoinedAt: joined, LeftAt: joined.Add(20 * time.Minute),
	})
	require.NoError(t, err)
	assert.True(t, long.Credited)
	assert.Equal(t, testutil.Date("2024-01-04"), long.Date)

	_, err = f.activity.HandleVoiceSession(ctx, command.RecordVoiceSessionCommand{
		MemberID: "u1", JoinedAt: joined, LeftAt: joined.Add(-time.Minute),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidVoiceSession)
}
