package calendar

import (
	"encoding/json"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var kst = time.FixedZone("KST", 9*3600)

func TestWeekOf(t *testing.T) {
	tests := []struct {
		day       string
		wantStart string
		wantEnd   string
	}{
		{"2024-01-01", "2024-01-01", "2024-01-07"}, // Monday
		{"2024-01-07", "2024-01-01", "2024-01-07"}, // Sunday
		{"2024-01-03", "2024-01-01", "2024-01-07"},
		{"2024-03-01", "2024-02-26", "2024-03-03"}, // leap-year straddle
	}
	for _, tt := range tests {
		t.Run(tt.day, func(t *testing.T) {
			w := WeekOf(MustParseDate(tt.day))
			assert.Equal(t, tt.wantStart, w.Start.String())
			assert.Equal(t, tt.wantEnd, w.End.String())
			assert.Equal(t, time.Monday, w.Start.Weekday())
			assert.Equal(t, 7, w.Len())
		})
	}
}

func TestRange(t *testing.T) {
	r := NewRange(MustParseDate("2024-01-30"), MustParseDate("2024-02-02"))
	assert.Equal(t, 4, r.Len())
	assert.True(t, r.Contains(MustParseDate("2024-02-01")))
	assert.False(t, r.Contains(MustParseDate("2024-02-03")))

	days := slices.Collect(r.Days())
	require.Len(t, days, 4)
	assert.Equal(t, "2024-01-31", days[1].String())

	// restartable
	assert.Len(t, slices.Collect(r.Days()), 4)

	empty := NewRange(MustParseDate("2024-02-02"), MustParseDate("2024-01-30"))
	assert.True(t, empty.Empty())
	assert.Equal(t, 0, empty.Len())
	assert.Empty(t, slices.Collect(empty.Days()))
}

func TestYearMonth(t *testing.T) {
	ym, err := ParseYearMonth("2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", ym.Last().String())
	assert.Equal(t, "2024-01", ym.Prev().String())
	assert.Equal(t, "2024-03", ym.Next().String())
	assert.Equal(t, "2023-12", YearMonth{Year: 2024, Month: time.January}.Prev().String())

	mondays := ym.Mondays()
	require.Len(t, mondays, 4)
	assert.Equal(t, "2024-02-05", mondays[0].String())
	assert.Equal(t, "2024-02-26", mondays[3].String())

	// January 2024 starts on a Monday and has five of them.
	assert.Len(t, YearMonth{Year: 2024, Month: time.January}.Mondays(), 5)

	_, err = ParseYearMonth("2024-13")
	assert.Error(t, err)
}

func TestDate_TextAndSQL(t *testing.T) {
	d := MustParseDate("2024-05-06")

	b, err := json.Marshal(struct {
		D Date `json:"d"`
	}{d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2024-05-06"}`, string(b))

	var back Date
	require.NoError(t, back.UnmarshalText([]byte("2024-05-06")))
	assert.True(t, back.Equal(d))

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-05-06", v)

	var scanned Date
	require.NoError(t, scanned.Scan(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)))
	assert.True(t, scanned.Equal(d))
	require.NoError(t, scanned.Scan([]byte("2024-05-06T00:00:00Z")))
	assert.True(t, scanned.Equal(d))
	require.NoError(t, scanned.Scan(nil))
	assert.True(t, scanned.IsZero())

	_, err = ParseDate("06/05/2024")
	assert.Error(t, err)
}

func TestCalendar_LocalDay(t *testing.T) {
	// 2024-01-07 15:30 UTC is already Monday 00:30 in Seoul.
	clock := NewManualClock(time.Date(2024, 1, 7, 15, 30, 0, 0, time.UTC))
	cal := New(kst, clock)

	assert.Equal(t, "2024-01-08", cal.Today().String())
	assert.Equal(t, "2024-01-08", cal.CurrentWeek().Start.String())
	assert.Equal(t, "2023-12", cal.PreviousMonth().String())

	clock.Advance(-time.Hour)
	assert.Equal(t, "2024-01-07", cal.Today().String())
	assert.Equal(t, "2024-01-01", cal.CurrentWeek().Start.String())
}

func TestNewInZone(t *testing.T) {
	cal, err := NewInZone("UTC", nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, cal.Location())

	_, err = NewInZone("Mars/Olympus", nil)
	assert.Error(t, err)
}
