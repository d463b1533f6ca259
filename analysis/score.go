package analysis

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ErrInvalidScore = errors.New("invalid score")

// SetScore is one set from the tracking player's point of view.
type SetScore struct {
	Player         int  `json:"player"`
	Opponent       int  `json:"opponent"`
	TiebreakPoints *int `json:"tiebreak_points,omitempty"`
	MatchTiebreak  bool `json:"match_tiebreak,omitempty"`
}

func (s SetScore) Winner() Side {
	if s.Player > s.Opponent {
		return SidePlayer
	}
	return SideOpponent
}

var setPattern = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})(?:\((\d{1,2})\))?$`)

// ParseScore reads scores like "6-4, 3-6, 7-6(5)". Up to three sets is read as
// best of three, four or five as best of five; no set may follow the one that
// decided the match. A "10-8" is a match tiebreak only as the last set with the
// sets level before it.
func ParseScore(raw string) ([]SetScore, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' || r == ';' })
	if len(fields) == 0 || len(fields) > 5 {
		return nil, fmt.Errorf("%w: expected 1-5 sets, got %d", ErrInvalidScore, len(fields))
	}

	bestOf := 3
	if len(fields) > 3 {
		bestOf = 5
	}
	need := bestOf/2 + 1

	sets := make([]SetScore, 0, len(fields))
	won, lost := 0, 0
	for i, f := range fields {
		if won == need || lost == need {
			return nil, fmt.Errorf("%w: set %q played after the match was decided", ErrInvalidScore, f)
		}
		m := setPattern.FindStringSubmatch(f)
		if m == nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidScore, f)
		}
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		set := SetScore{Player: a, Opponent: b}
		if m[3] != "" {
			tb, _ := strconv.Atoi(m[3])
			set.TiebreakPoints = &tb
		}

		hi, lo := a, b
		if lo > hi {
			hi, lo = lo, hi
		}
		switch {
		case hi == 6 && lo <= 4:
		case hi == 7 && lo == 5:
		case hi == 7 && lo == 6:
		case i == len(fields)-1 && i > 0 && won == lost && hi >= 10 && hi-lo >= 2:
			set.MatchTiebreak = true
		default:
			return nil, fmt.Errorf("%w: set %q is not complete", ErrInvalidScore, f)
		}
		if set.TiebreakPoints != nil && !(hi == 7 && lo == 6) {
			return nil, fmt.Errorf("%w: tiebreak on set %q", ErrInvalidScore, f)
		}
		if set.Winner() == SidePlayer {
			won++
		} else {
			lost++
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// ScoreAnalysis summarises a completed match.
type ScoreAnalysis struct {
	SetsWon         int     `json:"sets_won"`
	SetsLost        int     `json:"sets_lost"`
	GamesWon        int     `json:"games_won"`
	GamesLost       int     `json:"games_lost"`
	Tiebreaks       int     `json:"tiebreaks"`
	Winner          Side    `json:"winner"`
	Dominance       float64 `json:"dominance"`
	Competitiveness string  `json:"competitiveness"`
}

func AnalyzeScore(sets []SetScore) ScoreAnalysis {
	var a ScoreAnalysis
	for _, s := range sets {
		if s.Winner() == SidePlayer {
			a.SetsWon++
		} else {
			a.SetsLost++
		}
		if s.MatchTiebreak {
			a.Tiebreaks++
			continue
		}
		if s.Player+s.Opponent == 13 {
			a.Tiebreaks++
		}
		a.GamesWon += s.Player
		a.GamesLost += s.Opponent
	}

	switch {
	case a.SetsWon > a.SetsLost:
		a.Winner = SidePlayer
	case a.SetsLost > a.SetsWon:
		a.Winner = SideOpponent
	default:
		a.Winner = SideNeutral
	}

	if total := a.GamesWon + a.GamesLost; total > 0 {
		diff := a.GamesWon - a.GamesLost
		if diff < 0 {
			diff = -diff
		}
		a.Dominance = float64(diff) / float64(total)
	}

	switch {
	case a.Tiebreaks > 0 || a.Dominance < 0.1:
		a.Competitiveness = "tight"
	case a.Dominance < 0.25:
		a.Competitiveness = "competitive"
	case a.Dominance < 0.5:
		a.Competitiveness = "comfortable"
	default:
		a.Competitiveness = "dominant"
	}
	return a
}
