package analysis

import (
	"context"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Confidence of an opponent estimate.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Defaults used when an opponent cannot be looked up.
const (
	DefaultOpponentLevel = 10
	DefaultSkillLevel    = "intermediate"

	highConfidenceMatches = 5
)

// OpponentStats is what a lookup knows about a registered opponent.
type OpponentStats struct {
	Level         int
	MatchesPlayed int64
	SkillLevel    string
}

// OpponentLookup finds a registered opponent. It returns (nil, nil) when the
// opponent does not exist.
type OpponentLookup interface {
	LookupOpponent(ctx context.Context, id string) (*OpponentStats, error)
}

// OpponentRef names an opponent. Manual opponents were typed in by hand and
// have no account.
type OpponentRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Manual bool   `json:"manual"`
}

// OpponentEstimate is the analyzer output.
type OpponentEstimate struct {
	Level      int        `json:"level"`
	SkillLevel string     `json:"skill_level"`
	SkillLabel string     `json:"skill_label"`
	Confidence Confidence `json:"confidence_level"`
	Difficulty string     `json:"difficulty"`
	LevelGap   int        `json:"level_gap"`
}

type OpponentAnalyzer struct {
	Lookup OpponentLookup
}

// SkillForLevel buckets a level into a skill label.
func SkillForLevel(level int) string {
	switch {
	case level <= 5:
		return "beginner"
	case level <= 15:
		return "intermediate"
	case level <= 30:
		return "advanced"
	default:
		return "expert"
	}
}

// Difficulty compares opponent level against player level.
func Difficulty(playerLevel, opponentLevel int) string {
	switch gap := opponentLevel - playerLevel; {
	case gap <= -3:
		return "easier"
	case gap < 3:
		return "even"
	case gap <= 10:
		return "harder"
	default:
		return "much_harder"
	}
}

func (a OpponentAnalyzer) Analyze(ctx context.Context, ref OpponentRef, playerLevel int) OpponentEstimate {
	est := OpponentEstimate{
		Level:      DefaultOpponentLevel,
		SkillLevel: DefaultSkillLevel,
		Confidence: ConfidenceLow,
	}

	if !ref.Manual && ref.ID != "" && a.Lookup != nil {
		stats, err := a.Lookup.LookupOpponent(ctx, ref.ID)
		if err == nil && stats != nil {
			est.Level = stats.Level
			est.SkillLevel = stats.SkillLevel
			if est.SkillLevel == "" {
				est.SkillLevel = SkillForLevel(stats.Level)
			}
			est.Confidence = ConfidenceMedium
			if stats.MatchesPlayed >= highConfidenceMatches {
				est.Confidence = ConfidenceHigh
			}
		}
	}

	est.SkillLabel = cases.Title(language.English).String(est.SkillLevel)
	est.LevelGap = est.Level - playerLevel
	est.Difficulty = Difficulty(playerLevel, est.Level)
	return est
}
