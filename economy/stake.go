package economy

import "math"

// LevelCategory buckets the level gap between two players.
type LevelCategory string

const (
	CategoryEqual    LevelCategory = "equal_levels"
	CategorySlight   LevelCategory = "slight_gap"
	CategoryModerate LevelCategory = "moderate_gap"
	CategoryLarge    LevelCategory = "large_gap"
	CategoryExtreme  LevelCategory = "extreme_gap"
)

// MaxStakeLevelGap is the widest level gap that still allows staking.
const MaxStakeLevelGap = 10

var stakeMultipliers = map[LevelCategory]float64{
	CategoryEqual:    1.0,
	CategorySlight:   0.9,
	CategoryModerate: 0.75,
	CategoryLarge:    0.5,
	CategoryExtreme:  0,
}

func levelGap(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// CategorizeLevelGap maps two levels onto a LevelCategory.
func CategorizeLevelGap(a, b int) LevelCategory {
	switch gap := levelGap(a, b); {
	case gap == 0:
		return CategoryEqual
	case gap <= 3:
		return CategorySlight
	case gap <= 6:
		return CategoryModerate
	case gap <= MaxStakeLevelGap:
		return CategoryLarge
	default:
		return CategoryExtreme
	}
}

// CanStake reports whether two players are close enough in level to wager tokens.
func CanStake(a, b int) bool {
	return levelGap(a, b) <= MaxStakeLevelGap
}

// StakeAdjustment is the outcome of AdjustStake.
type StakeAdjustment struct {
	Allowed        bool          `json:"allowed"`
	Category       LevelCategory `json:"category"`
	LevelGap       int           `json:"level_gap"`
	Multiplier     float64       `json:"multiplier"`
	RequestedStake int64         `json:"requested_stake"`
	AdjustedAmount int64         `json:"adjusted_amount"`
	ShowWarning    bool          `json:"show_warning"`
}

// AdjustStake discounts a proposed stake for mismatched levels.
func AdjustStake(a, b int, amount int64) StakeAdjustment {
	cat := CategorizeLevelGap(a, b)
	adj := StakeAdjustment{
		Allowed:        CanStake(a, b),
		Category:       cat,
		LevelGap:       levelGap(a, b),
		Multiplier:     stakeMultipliers[cat],
		RequestedStake: amount,
		ShowWarning:    cat != CategoryEqual,
	}
	if !adj.Allowed || amount <= 0 {
		return adj
	}
	adj.AdjustedAmount = int64(math.Floor(float64(amount) * adj.Multiplier))
	if adj.AdjustedAmount < 1 {
		adj.AdjustedAmount = 1
	}
	return adj
}

const (
	WinXPBase     = 25
	UpsetXPPerGap = 5
	LossXP        = 10
)

// MatchReward is what a completed match pays out.
type MatchReward struct {
	WinnerTokens int64 `json:"winner_tokens"`
	WinnerXP     int64 `json:"winner_xp"`
	LoserXP      int64 `json:"loser_xp"`
	Upset        bool  `json:"upset"`
}

// CalculateMatchReward pays the winner both escrowed stakes. A lower level
// winner earns extra XP per level of gap.
func CalculateMatchReward(winnerLevel, loserLevel int, stake int64) MatchReward {
	r := MatchReward{
		WinnerTokens: 2 * stake,
		WinnerXP:     WinXPBase,
		LoserXP:      LossXP,
	}
	if stake < 0 {
		r.WinnerTokens = 0
	}
	if winnerLevel < loserLevel {
		r.Upset = true
		r.WinnerXP += int64(UpsetXPPerGap * (loserLevel - winnerLevel))
	}
	return r
}
