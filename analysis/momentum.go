// Package analysis scores match state: momentum, final scores and opponents.
package analysis

// Side is one half of a match.
type Side string

const (
	SidePlayer   Side = "player"
	SideOpponent Side = "opponent"
	SideNeutral  Side = "neutral"
)

// PointEvent is a single point as seen from the tracking player.
type PointEvent struct {
	Winner      Side `json:"winner"`
	BreakPoint  bool `json:"break_point"`
	SetPoint    bool `json:"set_point"`
	MatchPoint  bool `json:"match_point"`
	Ace         bool `json:"ace"`
	DoubleFault bool `json:"double_fault"`
}

const (
	DefaultMomentumWindow = 8
	momentumLeadThreshold = 15.0
	shiftLookback         = 3
)

// MomentumSnapshot is the state after the most recent point.
type MomentumSnapshot struct {
	Score      float64 `json:"score"` // -100 (opponent) .. 100 (player)
	Leader     Side    `json:"leader"`
	Streak     int     `json:"streak"`
	StreakSide Side    `json:"streak_side"`
	Shift      bool    `json:"shift"`
	Points     int     `json:"points"`
}

// MomentumTracker keeps a rolling window of points.
type MomentumTracker struct {
	window int
	events []PointEvent
}

func NewMomentumTracker(window int) *MomentumTracker {
	if window <= 0 {
		window = DefaultMomentumWindow
	}
	return &MomentumTracker{window: window}
}

// Record appends a point. Points with an unknown winner are ignored.
func (m *MomentumTracker) Record(ev PointEvent) {
	if ev.Winner != SidePlayer && ev.Winner != SideOpponent {
		return
	}
	m.events = append(m.events, ev)
}

func (m *MomentumTracker) Snapshot() MomentumSnapshot {
	return snapshot(m.events, m.window)
}

// AnalyzeMomentum is the stateless form of MomentumTracker.
func AnalyzeMomentum(events []PointEvent, window int) MomentumSnapshot {
	t := NewMomentumTracker(window)
	for _, ev := range events {
		t.Record(ev)
	}
	return t.Snapshot()
}

func pressure(ev PointEvent) float64 {
	p := 1.0
	switch {
	case ev.MatchPoint:
		p = 2.0
	case ev.SetPoint:
		p = 1.75
	case ev.BreakPoint:
		p = 1.5
	}
	if ev.Ace || ev.DoubleFault {
		p += 0.25
	}
	return p
}

func momentumScore(events []PointEvent, window int) float64 {
	if len(events) > window {
		events = events[len(events)-window:]
	}
	var signed, total float64
	for i, ev := range events {
		w := float64(i+1) * pressure(ev)
		total += w
		if ev.Winner == SidePlayer {
			signed += w
		} else {
			signed -= w
		}
	}
	if total == 0 {
		return 0
	}
	return 100 * signed / total
}

func leaderFor(score float64) Side {
	switch {
	case score > momentumLeadThreshold:
		return SidePlayer
	case score < -momentumLeadThreshold:
		return SideOpponent
	default:
		return SideNeutral
	}
}

func snapshot(events []PointEvent, window int) MomentumSnapshot {
	s := MomentumSnapshot{Leader: SideNeutral, StreakSide: SideNeutral, Points: len(events)}
	if len(events) == 0 {
		return s
	}
	s.Score = momentumScore(events, window)
	s.Leader = leaderFor(s.Score)

	last := events[len(events)-1].Winner
	s.StreakSide = last
	for i := len(events) - 1; i >= 0 && events[i].Winner == last; i-- {
		s.Streak++
	}

	if len(events) > shiftLookback {
		prev := leaderFor(momentumScore(events[:len(events)-shiftLookback], window))
		s.Shift = prev != SideNeutral && s.Leader != SideNeutral && prev != s.Leader
	}
	return s
}
