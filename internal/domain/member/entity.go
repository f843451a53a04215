// Package member holds the community member and their lifetime badge
// counters. Counters only ever grow, and only the reconciliation passes
// grow them.
package member

import (
	"strings"
	"time"

	"github.com/fitcrew/trainer-hub/internal/domain/shared"
)

// MaxNicknameLength bounds stored display names.
const MaxNicknameLength = 64

// Badges are the lifetime recognition counters of a member.
type Badges struct {
	Weekly  int `json:"weekly"`
	Monthly int `json:"monthly"`
	Bikini  int `json:"bikini"`
}

// Total is the score used by the badge ranking.
func (b Badges) Total() int {
	return b.Weekly + b.Monthly + b.Bikini
}

// Member is a community member as known to the ledger.
type Member struct {
	ID        string    `json:"id"`
	Nickname  string    `json:"nickname"`
	Badges    Badges    `json:"badges"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidateID rejects blank member ids.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return shared.ErrInvalidMemberID
	}
	return nil
}

// NormalizeNickname trims and truncates a display name.
func NormalizeNickname(nickname string) string {
	nickname = strings.TrimSpace(nickname)
	if r := []rune(nickname); len(r) > MaxNicknameLength {
		nickname = string(r[:MaxNicknameLength])
	}
	return nickname
}
