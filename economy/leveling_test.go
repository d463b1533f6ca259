package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateXPForLevel(t *testing.T) {
	assert.Equal(t, int64(0), CalculateXPForLevel(0))
	assert.Equal(t, int64(0), CalculateXPForLevel(1))
	assert.Equal(t, int64(191), CalculateXPForLevel(2))
	assert.Equal(t, int64(359), CalculateXPForLevel(3))
	assert.Equal(t, int64(550), CalculateXPForLevel(4))
}

func TestCalculateXPForLevelStrictlyIncreasing(t *testing.T) {
	for l := 2; l < MaxLevel+5; l++ {
		require.Greater(t, CalculateXPForLevel(l+1), CalculateXPForLevel(l), "level %d", l)
	}
}

func TestCalculateLevelFromXP(t *testing.T) {
	assert.Equal(t, 1, CalculateLevelFromXP(0))
	assert.Equal(t, 1, CalculateLevelFromXP(190))
	assert.Equal(t, 2, CalculateLevelFromXP(191))
	assert.Equal(t, 2, CalculateLevelFromXP(358))
	assert.Equal(t, 3, CalculateLevelFromXP(359))
	assert.Equal(t, MaxLevel, CalculateLevelFromXP(1<<40))
	assert.Equal(t, 100, MaxLevel)
}

func TestLevelRoundTripAtThresholds(t *testing.T) {
	for l := 1; l <= MaxLevel; l++ {
		require.Equal(t, l, CalculateLevelFromXP(CalculateXPForLevel(l)), "level %d", l)
	}
}

func TestGetXPProgress(t *testing.T) {
	p := GetXPProgress(275, 2)
	assert.Equal(t, int64(191), p.CurrentLevelXP)
	assert.Equal(t, int64(359), p.NextLevelXP)
	assert.Equal(t, int64(84), p.XPIntoLevel)
	assert.Equal(t, int64(168), p.XPRequired)
	assert.InDelta(t, 50.0, p.Percentage, 0.001)
}

func TestGetXPProgressClamped(t *testing.T) {
	for _, xp := range []int64{-500, 0, 100, 190, 191, 10_000, 1 << 40} {
		for _, level := range []int{1, 2, 10, MaxLevel} {
			p := GetXPProgress(xp, level)
			assert.GreaterOrEqual(t, p.Percentage, 0.0)
			assert.LessOrEqual(t, p.Percentage, 100.0)
		}
	}
}

func TestLevelUpBonus(t *testing.T) {
	assert.Equal(t, int64(50), LevelUpBonus(1, 3, 10))
	assert.Zero(t, LevelUpBonus(3, 3, 10))
	assert.Zero(t, LevelUpBonus(4, 3, 10))
	assert.Equal(t, int64(3), LevelUpBonus(2, 3, 1))
}
