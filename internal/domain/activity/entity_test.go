package activity

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

func TestBreakdown_ZeroFills(t *testing.T) {
	week := calendar.WeekOf(calendar.MustParseDate("2024-01-03"))
	rows := []DayCount{
		{Date: calendar.MustParseDate("2024-01-01"), Exercise: 1},
		{Date: calendar.MustParseDate("2024-01-01"), Diet: 2},
		{Date: calendar.MustParseDate("2024-01-05"), Diet: 3},
		{Date: calendar.MustParseDate("2024-02-01"), Exercise: 1}, // outside
	}

	seq := Breakdown(week, rows)
	days := slices.Collect(seq)
	require.Len(t, days, 7)
	assert.Equal(t, DayCount{Date: week.Start, Exercise: 1, Diet: 2}, days[0])
	assert.Equal(t, 0, days[1].Exercise+days[1].Diet)
	assert.Equal(t, 3, days[4].Diet)

	// restartable
	again := slices.Collect(seq)
	assert.Equal(t, days, again)

	// early break
	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestBreakdown_EmptyRange(t *testing.T) {
	r := calendar.NewRange(calendar.MustParseDate("2024-01-05"), calendar.MustParseDate("2024-01-01"))
	assert.Empty(t, slices.Collect(Breakdown(r, nil)))
}

func TestVoiceSession(t *testing.T) {
	joined := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)

	s := VoiceSession{JoinedAt: joined, LeftAt: joined.Add(15 * time.Minute)}
	require.NoError(t, s.Validate())
	assert.True(t, s.Qualifies(DefaultVoiceMinDuration))

	s.LeftAt = joined.Add(14*time.Minute + 59*time.Second)
	assert.False(t, s.Qualifies(0))

	s.LeftAt = joined.Add(-time.Minute)
	assert.ErrorIs(t, s.Validate(), shared.ErrInvalidArgument)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Diet")
	require.NoError(t, err)
	assert.Equal(t, KindDiet, k)

	_, err = ParseKind("sleep")
	assert.True(t, shared.IsInvalidArgument(err))
}
