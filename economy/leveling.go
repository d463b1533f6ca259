// Package economy holds the pure arithmetic behind levels, stakes, HP and
// coach currencies. Nothing in here touches the database.
package economy

import "math"

// MaxLevel caps the level scan.
const MaxLevel = 100

// CalculateXPForLevel returns the cumulative XP needed to reach level.
// L_n = floor(50 * n^1.5 + 50 * (n-1)) for n > 1, level 1 starts at 0.
func CalculateXPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	n := float64(level)
	return int64(math.Floor(50*math.Pow(n, 1.5) + 50*(n-1)))
}

// CalculateLevelFromXP returns the highest level whose threshold is <= totalXP.
func CalculateLevelFromXP(totalXP int64) int {
	level := 1
	for l := 2; l <= MaxLevel; l++ {
		if totalXP < CalculateXPForLevel(l) {
			break
		}
		level = l
	}
	return level
}

// XPProgress describes how far a player is into their current level.
type XPProgress struct {
	Level          int     `json:"level"`
	CurrentXP      int64   `json:"current_xp"`
	CurrentLevelXP int64   `json:"current_level_xp"`
	NextLevelXP    int64   `json:"next_level_xp"`
	XPIntoLevel    int64   `json:"xp_into_level"`
	XPRequired     int64   `json:"xp_required"`
	Percentage     float64 `json:"percentage"`
}

// GetXPProgress derives progress within level. Percentage is clamped to [0, 100].
func GetXPProgress(currentXP int64, level int) XPProgress {
	if level < 1 {
		level = 1
	}
	cur := CalculateXPForLevel(level)
	next := CalculateXPForLevel(level + 1)

	into := currentXP - cur
	if into < 0 {
		into = 0
	}
	required := next - cur

	pct := 100.0
	if required > 0 {
		pct = float64(into) / float64(required) * 100
	}
	pct = math.Max(0, math.Min(100, pct))

	return XPProgress{
		Level:          level,
		CurrentXP:      currentXP,
		CurrentLevelXP: cur,
		NextLevelXP:    next,
		XPIntoLevel:    into,
		XPRequired:     required,
		Percentage:     pct,
	}
}

// LevelUpBonus is the token bonus for climbing from one level to another:
// perLevel times each level reached.
func LevelUpBonus(from, to int, perLevel int64) int64 {
	var bonus int64
	for l := from + 1; l <= to; l++ {
		bonus += perLevel * int64(l)
	}
	return bonus
}
