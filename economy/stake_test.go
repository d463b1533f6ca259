package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorizeLevelGap(t *testing.T) {
	cases := []struct {
		a, b int
		want LevelCategory
	}{
		{5, 5, CategoryEqual},
		{5, 8, CategorySlight},
		{8, 5, CategorySlight},
		{10, 16, CategoryModerate},
		{1, 11, CategoryLarge},
		{1, 12, CategoryExtreme},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CategorizeLevelGap(tc.a, tc.b), "%d vs %d", tc.a, tc.b)
	}
}

func TestAdjustStakeEqualLevels(t *testing.T) {
	adj := AdjustStake(7, 7, 50)
	assert.True(t, adj.Allowed)
	assert.False(t, adj.ShowWarning)
	assert.Equal(t, int64(50), adj.AdjustedAmount)
	assert.Equal(t, CategoryEqual, adj.Category)
}

func TestAdjustStakeDiscountsGap(t *testing.T) {
	assert.Equal(t, int64(45), AdjustStake(7, 9, 50).AdjustedAmount)
	assert.Equal(t, int64(37), AdjustStake(7, 12, 50).AdjustedAmount)
	assert.Equal(t, int64(25), AdjustStake(7, 17, 50).AdjustedAmount)
	assert.True(t, AdjustStake(7, 9, 50).ShowWarning)
}

func TestAdjustStakeBlockedBeyondGap(t *testing.T) {
	assert.False(t, CanStake(1, 12))
	assert.True(t, CanStake(1, 11))

	adj := AdjustStake(1, 12, 100)
	assert.False(t, adj.Allowed)
	assert.Equal(t, int64(0), adj.AdjustedAmount)
	assert.True(t, adj.ShowWarning)
}

func TestAdjustStakeMinimumOne(t *testing.T) {
	assert.Equal(t, int64(1), AdjustStake(1, 10, 1).AdjustedAmount)
	assert.Equal(t, int64(0), AdjustStake(1, 1, 0).AdjustedAmount)
}

func TestCalculateMatchReward(t *testing.T) {
	r := CalculateMatchReward(5, 5, 20)
	assert.Equal(t, int64(40), r.WinnerTokens)
	assert.Equal(t, int64(WinXPBase), r.WinnerXP)
	assert.Equal(t, int64(LossXP), r.LoserXP)
	assert.False(t, r.Upset)

	upset := CalculateMatchReward(3, 7, 10)
	assert.True(t, upset.Upset)
	assert.Equal(t, int64(WinXPBase+4*UpsetXPPerGap), upset.WinnerXP)
}
