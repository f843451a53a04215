package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcrew/trainer-hub/config"
	"github.com/fitcrew/trainer-hub/internal/app"
	"github.com/fitcrew/trainer-hub/internal/application/command"
	"github.com/fitcrew/trainer-hub/internal/application/query"
	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/pkg/logger"
)

const testConfig = `
app:
  log_level: debug
  log_format: console
database:
  driver: sqlite
  sqlite_path: ":memory:"
scheduler:
  poll_interval: 5s
ledger:
  voice_min_duration: 20m
`

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestNew_WiresSQLiteGraph(t *testing.T) {
	ctx := context.Background()
	cfg := loadConfig(t)

	a, err := app.New(ctx, cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	assert.Nil(t, a.Cache, "redis is disabled by default")
	assert.Nil(t, a.Locker)
	assert.Equal(t, "Asia/Seoul", a.Calendar.Location().String())

	_, err = a.Commands.SetGoal.HandleFrequency(ctx, command.SetFrequencyGoalCommand{
		MemberID: "u1", Nickname: "alice", Kind: goal.KindExercise, PerWeek: 1,
	})
	require.NoError(t, err)
	_, err = a.Commands.RecordActivity.HandleExercise(ctx, command.RecordExerciseCommand{MemberID: "u1"})
	require.NoError(t, err)

	res, err := a.Queries.GetGoals.Handle(ctx, query.GetGoalsQuery{MemberID: "u1"})
	require.NoError(t, err)
	require.NotNil(t, res.Active.Exercise)

	status := a.HealthChecker().Check(ctx)
	assert.True(t, status.Healthy)
	assert.Contains(t, status.Checks, "store")
	assert.NotContains(t, status.Checks, "redis")

	sc := a.SchedulerConfig()
	assert.Equal(t, 5*time.Second, sc.PollInterval)
	assert.NotNil(t, sc.Markers)
	assert.Nil(t, sc.Locker)
}

func TestClose_Twice(t *testing.T) {
	a, err := app.New(context.Background(), loadConfig(t), nil)
	require.NoError(t, err)
	require.NoError(t, a.Close(context.Background()))
	assert.NoError(t, a.Close(context.Background()))
}

func TestNewLogger(t *testing.T) {
	cfg := loadConfig(t)
	log := app.NewLogger(cfg.App)
	require.NotNil(t, log)
	log.Debug("logger built", "format", cfg.App.LogFormat)
}
