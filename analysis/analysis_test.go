package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func points(sides ...Side) []PointEvent {
	evs := make([]PointEvent, len(sides))
	for i, s := range sides {
		evs[i] = PointEvent{Winner: s}
	}
	return evs
}

func TestMomentumEmpty(t *testing.T) {
	s := AnalyzeMomentum(nil, 0)
	assert.Equal(t, SideNeutral, s.Leader)
	assert.Zero(t, s.Score)
}

func TestMomentumRunOfPoints(t *testing.T) {
	s := AnalyzeMomentum(points(SidePlayer, SidePlayer, SidePlayer, SidePlayer), 8)
	assert.InDelta(t, 100, s.Score, 0.001)
	assert.Equal(t, SidePlayer, s.Leader)
	assert.Equal(t, 4, s.Streak)
	assert.Equal(t, SidePlayer, s.StreakSide)
}

func TestMomentumBounded(t *testing.T) {
	evs := points(SideOpponent, SidePlayer, SideOpponent, SideOpponent, SidePlayer, SideOpponent, SideOpponent, SidePlayer, SideOpponent)
	evs[3].BreakPoint = true
	evs[6].Ace = true
	s := AnalyzeMomentum(evs, 8)
	assert.GreaterOrEqual(t, s.Score, -100.0)
	assert.LessOrEqual(t, s.Score, 100.0)
	assert.Equal(t, SideOpponent, s.Leader)
}

func TestMomentumShift(t *testing.T) {
	tr := NewMomentumTracker(6)
	for _, ev := range points(SideOpponent, SideOpponent, SideOpponent, SidePlayer, SidePlayer, SidePlayer) {
		tr.Record(ev)
	}
	s := tr.Snapshot()
	assert.Equal(t, SidePlayer, s.Leader)
	assert.True(t, s.Shift)
}

func TestMomentumIgnoresUnknownWinner(t *testing.T) {
	tr := NewMomentumTracker(0)
	tr.Record(PointEvent{Winner: "ball-kid"})
	assert.Equal(t, 0, tr.Snapshot().Points)
}

func TestParseScore(t *testing.T) {
	sets, err := ParseScore("6-4, 3-6, 7-6(5)")
	require.NoError(t, err)
	require.Len(t, sets, 3)
	assert.Equal(t, SetScore{Player: 6, Opponent: 4}, sets[0])
	require.NotNil(t, sets[2].TiebreakPoints)
	assert.Equal(t, 5, *sets[2].TiebreakPoints)

	sets, err = ParseScore("6-3 4-6 10-8")
	require.NoError(t, err)
	assert.True(t, sets[2].MatchTiebreak)

	sets, err = ParseScore("6-4 3-6 6-7(2) 6-3 7-5")
	require.NoError(t, err)
	assert.Len(t, sets, 5)
}

func TestParseScoreInvalid(t *testing.T) {
	for _, raw := range []string{"", "6-5", "9-2", "abc", "6-4(3)", "10-8", "6-1,6-1,6-1,6-1,6-1,6-1",
		"6-0, 6-0, 0-6", "6-0 6-0 6-0 6-0 6-0", "6-4, 10-8", "6-4 6-4 3-6 10-8"} {
		_, err := ParseScore(raw)
		assert.True(t, errors.Is(err, ErrInvalidScore), "score %q", raw)
	}
}

func TestAnalyzeScore(t *testing.T) {
	sets, err := ParseScore("6-1, 6-2")
	require.NoError(t, err)
	a := AnalyzeScore(sets)
	assert.Equal(t, 2, a.SetsWon)
	assert.Equal(t, SidePlayer, a.Winner)
	assert.Equal(t, 12, a.GamesWon)
	assert.Equal(t, 3, a.GamesLost)
	assert.Equal(t, "dominant", a.Competitiveness)

	sets, err = ParseScore("6-7(4), 7-6(8), 4-6")
	require.NoError(t, err)
	a = AnalyzeScore(sets)
	assert.Equal(t, SideOpponent, a.Winner)
	assert.Equal(t, 2, a.Tiebreaks)
	assert.Equal(t, "tight", a.Competitiveness)
}

type stubLookup struct {
	stats *OpponentStats
	err   error
	calls int
}

func (s *stubLookup) LookupOpponent(ctx context.Context, id string) (*OpponentStats, error) {
	s.calls++
	return s.stats, s.err
}

func TestOpponentManualUsesDefaults(t *testing.T) {
	lookup := &stubLookup{stats: &OpponentStats{Level: 40, MatchesPlayed: 99}}
	est := OpponentAnalyzer{Lookup: lookup}.Analyze(context.Background(), OpponentRef{ID: "u-1", Name: "Sam", Manual: true}, 10)

	assert.Equal(t, 10, est.Level)
	assert.Equal(t, "intermediate", est.SkillLevel)
	assert.Equal(t, "Intermediate", est.SkillLabel)
	assert.Equal(t, ConfidenceLow, est.Confidence)
	assert.Equal(t, "even", est.Difficulty)
	assert.Zero(t, lookup.calls)
}

func TestOpponentLookupFailureFallsBack(t *testing.T) {
	lookup := &stubLookup{err: errors.New("connection reset")}
	est := OpponentAnalyzer{Lookup: lookup}.Analyze(context.Background(), OpponentRef{ID: "u-1"}, 3)
	assert.Equal(t, DefaultOpponentLevel, est.Level)
	assert.Equal(t, ConfidenceLow, est.Confidence)
	assert.Equal(t, "harder", est.Difficulty)
}

func TestOpponentConfidence(t *testing.T) {
	lookup := &stubLookup{stats: &OpponentStats{Level: 20, MatchesPlayed: 2}}
	est := OpponentAnalyzer{Lookup: lookup}.Analyze(context.Background(), OpponentRef{ID: "u-1"}, 20)
	assert.Equal(t, ConfidenceMedium, est.Confidence)
	assert.Equal(t, "advanced", est.SkillLevel)

	lookup.stats.MatchesPlayed = 5
	est = OpponentAnalyzer{Lookup: lookup}.Analyze(context.Background(), OpponentRef{ID: "u-1"}, 5)
	assert.Equal(t, ConfidenceHigh, est.Confidence)
	assert.Equal(t, "much_harder", est.Difficulty)
}
