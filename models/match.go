package models

import "time"

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchAccepted  MatchStatus = "accepted"
	MatchCompleted MatchStatus = "completed"
	MatchDeclined  MatchStatus = "declined"
	MatchCancelled MatchStatus = "cancelled"
)

// Match is a challenge between two players, optionally with a token stake.
// Manual matches have no OpponentID: the opponent was typed in by hand.
type Match struct {
	Base
	ChallengerID    string      `gorm:"index;not null" json:"challenger_id"`
	OpponentID      *string     `gorm:"index" json:"opponent_id,omitempty"`
	OpponentName    string      `json:"opponent_name,omitempty"`
	Manual          bool        `gorm:"default:false" json:"manual"`
	ChallengerLevel int         `json:"challenger_level"`
	OpponentLevel   int         `json:"opponent_level"`
	RequestedStake  int64       `json:"requested_stake"`
	Stake           int64       `json:"stake"` // adjusted, escrowed from each side
	Category        string      `gorm:"type:varchar(24)" json:"category"`
	Status          MatchStatus `gorm:"type:varchar(16);default:'pending';index" json:"status"`
	Score           string      `json:"score,omitempty"`
	WinnerID        *string     `json:"winner_id,omitempty"`
	Location        string      `json:"location,omitempty"`
	ScheduledAt     *time.Time  `json:"scheduled_at,omitempty"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
}

// Involves reports whether userID is one of the registered players.
func (m *Match) Involves(userID string) bool {
	return m.ChallengerID == userID || (m.OpponentID != nil && *m.OpponentID == userID)
}
