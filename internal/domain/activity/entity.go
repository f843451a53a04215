// Package activity holds the daily event ledger: per-member, per-day
// exercise and diet counters, and the voice-session rule that turns
// presence into exercise credit.
package activity

import (
	"iter"
	"strings"
	"time"

	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// Kind identifies one of the two counter series.
type Kind string

const (
	KindExercise Kind = "exercise"
	KindDiet     Kind = "diet"
)

// ExerciseDailyCap is the most exercise credit one day can hold.
const ExerciseDailyCap = 1

// DefaultVoiceMinDuration is how long a voice session must last to count
// as a workout.
const DefaultVoiceMinDuration = 15 * time.Minute

// ParseKind accepts "exercise" and "diet".
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindExercise:
		return KindExercise, nil
	case KindDiet:
		return KindDiet, nil
	}
	return "", shared.ErrUnknownActivity
}

// Source tags where an exercise credit came from.
type Source string

const (
	SourceManual Source = "manual"
	SourceVoice  Source = "voice"
	SourceForum  Source = "forum"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY COUNTS
// ══════════════════════════════════════════════════════════════════════════════

// DayCount is one day of the breakdown.
type DayCount struct {
	Date     calendar.Date `json:"date"`
	Exercise int           `json:"exercise"`
	Diet     int           `json:"diet"`
}

// Breakdown yields one DayCount per day of r, taking counts from rows and
// zero-filling the rest. Rows outside r are ignored. The sequence can be
// ranged over any number of times.
func Breakdown(r calendar.Range, rows []DayCount) iter.Seq[DayCount] {
	byDate := make(map[calendar.Date]DayCount, len(rows))
	for _, row := range rows {
		if !r.Contains(row.Date) {
			continue
		}
		cur := byDate[row.Date]
		cur.Exercise += row.Exercise
		cur.Diet += row.Diet
		byDate[row.Date] = cur
	}
	return func(yield func(DayCount) bool) {
		for d := range r.Days() {
			c := byDate[d]
			c.Date = d
			if !yield(c) {
				return
			}
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// VOICE SESSIONS
// ══════════════════════════════════════════════════════════════════════════════

// VoiceSession is one stay in a workout voice channel.
type VoiceSession struct {
	JoinedAt time.Time
	LeftAt   time.Time
}

// Validate rejects sessions without both ends or ending before they start.
func (s VoiceSession) Validate() error {
	if s.JoinedAt.IsZero() || s.LeftAt.IsZero() || s.LeftAt.Before(s.JoinedAt) {
		return shared.ErrInvalidVoiceSession
	}
	return nil
}

func (s VoiceSession) Duration() time.Duration {
	return s.LeftAt.Sub(s.JoinedAt)
}

// Qualifies reports whether the session lasted at least min.
func (s VoiceSession) Qualifies(min time.Duration) bool {
	if min <= 0 {
		min = DefaultVoiceMinDuration
	}
	return s.Duration() >= min
}
