package economy

import "time"

// Activity HP costs.
const (
	HPCostMatch   = 10
	HPCostSession = 5
	HPCostQuiz    = 0
)

// HPConfig tunes regeneration and inactivity decay.
type HPConfig struct {
	Max          int
	RegenPerHour int
	DecayPerDay  int
	DecayAfter   time.Duration
	Floor        int
}

var DefaultHPConfig = HPConfig{
	Max:          100,
	RegenPerHour: 5,
	DecayPerDay:  2,
	DecayAfter:   7 * 24 * time.Hour,
	Floor:        20,
}

// RegenHP applies whole hours of regeneration since the last regen.
// It returns the new HP and the timestamp to store as the new regen mark;
// leftover minutes carry over to the next call.
func (c HPConfig) RegenHP(current int, since, now time.Time) (int, time.Time) {
	if current >= c.Max {
		return c.Max, now
	}
	if !now.After(since) || c.RegenPerHour <= 0 {
		return current, since
	}
	hours := int(now.Sub(since) / time.Hour)
	if hours == 0 {
		return current, since
	}
	next := current + hours*c.RegenPerHour
	if next >= c.Max {
		return c.Max, now
	}
	return next, since.Add(time.Duration(hours) * time.Hour)
}

// DecayHP removes DecayPerDay for every whole day past DecayAfter, never below Floor.
func (c HPConfig) DecayHP(current int, lastActive, now time.Time) int {
	idle := now.Sub(lastActive) - c.DecayAfter
	if idle <= 0 || current <= c.Floor {
		return current
	}
	days := int(idle / (24 * time.Hour))
	next := current - days*c.DecayPerDay
	if next < c.Floor {
		return c.Floor
	}
	return next
}
