package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcrew/trainer-hub/internal/domain/activity"
)

func TestSort_TiesByMemberID(t *testing.T) {
	entries := []Entry{
		{MemberID: "c", Score: 2},
		{MemberID: "b", Score: 5},
		{MemberID: "a", Score: 2},
		{MemberID: "d", Score: 0},
	}
	Sort(entries)

	ids := make([]string, len(entries))
	ranks := make([]int, len(entries))
	for i, e := range entries {
		ids[i] = e.MemberID
		ranks[i] = e.Rank
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, ids)
	assert.Equal(t, []int{1, 2, 2, 4}, ranks)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("diet")
	require.NoError(t, err)
	ak, ok := k.ActivityKind()
	assert.True(t, ok)
	assert.Equal(t, activity.KindDiet, ak)

	_, ok = KindBadges.ActivityKind()
	assert.False(t, ok)

	_, err = ParseKind("muscle")
	assert.Error(t, err)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, 3, NormalizeLimit(3, 10))
	assert.Equal(t, 10, NormalizeLimit(0, 10))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-1, 0))
}
