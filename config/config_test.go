package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "trainer-hub", cfg.App.Name)
	assert.Equal(t, "Asia/Seoul", cfg.Calendar.Timezone)
	require.NotNil(t, cfg.Location)
	assert.Equal(t, "Asia/Seoul", cfg.Location.String())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "0 23 * * 0", cfg.Scheduler.WeeklyCron)
	assert.Equal(t, "10 0 1 * *", cfg.Scheduler.MonthlyCron)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.PollInterval)
	assert.Equal(t, 15*time.Minute, cfg.Ledger.VoiceMinDuration)
	assert.Equal(t, 5, cfg.Ledger.RankingLimit)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  log_level: debug
database:
  driver: postgres
  url: postgres://localhost/trainer
ledger:
  ranking_limit: 10
kafka:
  brokers: [a:9092, b:9092]
`), 0o600))

	t.Setenv("TRAINER_LEDGER_RANKING_LIMIT", "3")
	t.Setenv("TRAINER_SCHEDULER_POLL_INTERVAL", "1m")
	t.Setenv("TRAINER_CALENDAR_TIMEZONE", "UTC")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Ledger.RankingLimit, "env wins over file")
	assert.Equal(t, time.Minute, cfg.Scheduler.PollInterval)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.UTC.String(), cfg.Location.String())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_AggregatesErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Calendar.Timezone = "Mars/Olympus"
	cfg.Database.Driver = "mysql"
	cfg.Scheduler.WeeklyCron = "every sunday"
	cfg.Scheduler.PollInterval = 0
	cfg.Ledger.RankingLimit = 0

	err = cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"calendar.timezone",
		"database.driver",
		"scheduler.weekly_cron",
		"scheduler.poll_interval",
		"ledger.ranking_limit",
	} {
		assert.Contains(t, err.Error(), want)
	}
}
