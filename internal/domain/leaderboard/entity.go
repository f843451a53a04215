// Package leaderboard содержит read-only проекции рейтингов участников:
// по значкам и по активности (упражнения, питание) за окно дат.
package leaderboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/fitcrew/trainer-hub/internal/domain/activity"
	"github.com/fitcrew/trainer-hub/internal/domain/member"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// DefaultLimit - размер топа по умолчанию.
const DefaultLimit = 5

// Kind - тип рейтинга.
type Kind string

const (
	KindBadges   Kind = "badges"
	KindExercise Kind = "exercise"
	KindDiet     Kind = "diet"
)

// ParseKind разбирает тип рейтинга из строки запроса.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBadges, KindExercise, KindDiet:
		return Kind(s), nil
	}
	return "", shared.InvalidArgument("leaderboard", "ParseKind", "unknown ranking %q", s)
}

// ActivityKind возвращает серию счётчиков для рейтинга активности.
func (k Kind) ActivityKind() (activity.Kind, bool) {
	switch k {
	case KindExercise:
		return activity.KindExercise, true
	case KindDiet:
		return activity.KindDiet, true
	}
	return "", false
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry - одна строка рейтинга.
type Entry struct {
	Rank     int    `json:"rank"`
	MemberID string `json:"member_id"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`

	// Badges заполнен только для рейтинга по значкам.
	Badges *member.Badges `json:"badges,omitempty"`
}

func (e Entry) String() string {
	return fmt.Sprintf("#%d %s (%d)", e.Rank, e.Nickname, e.Score)
}

// Ranking - готовый топ для ответа клиенту.
type Ranking struct {
	Kind        Kind            `json:"kind"`
	Window      *calendar.Range `json:"window,omitempty"`
	Entries     []Entry         `json:"entries"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// Sort упорядочивает записи по убыванию очков; при равенстве - по member_id.
// Одинаковые очки получают одинаковый ранг.
func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].MemberID < entries[j].MemberID
	})
	AssignRanks(entries)
}

// AssignRanks проставляет ранги уже отсортированным записям.
func AssignRanks(entries []Entry) {
	for i := range entries {
		if i > 0 && entries[i].Score == entries[i-1].Score {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}
}

// NormalizeLimit заменяет неположительный лимит значением по умолчанию.
func NormalizeLimit(limit, fallback int) int {
	if limit > 0 {
		return limit
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultLimit
}
