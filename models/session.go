package models

import "time"

type SessionStatus string

const (
	SessionOpen      SessionStatus = "open"
	SessionFull      SessionStatus = "full"
	SessionCompleted SessionStatus = "completed"
	SessionExpired   SessionStatus = "expired"
	SessionCancelled SessionStatus = "cancelled"
)

// TrainingSession is a coach-hosted (or player-hosted) session with limited capacity.
type TrainingSession struct {
	Base
	HostID      string        `gorm:"index;not null" json:"host_id"`
	Title       string        `gorm:"not null" json:"title"`
	Description string        `gorm:"type:text" json:"description,omitempty"`
	Location    string        `json:"location,omitempty"`
	StartsAt    time.Time     `gorm:"index;not null" json:"starts_at"`
	DurationMin int           `gorm:"default:60" json:"duration_min"`
	Capacity    int           `gorm:"default:4" json:"capacity"`
	Joined      int           `gorm:"default:0" json:"joined"`
	CostTokens  int64         `gorm:"default:0" json:"cost_tokens"`
	Status      SessionStatus `gorm:"type:varchar(16);default:'open';index" json:"status"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`

	Participants []SessionParticipant `gorm:"foreignKey:SessionID" json:"participants,omitempty"`
}

func (s *TrainingSession) Bookable() bool {
	return s.Status == SessionOpen
}

// SessionParticipant holds a seat. A participant who leaves after the refund
// cutoff keeps the row with LeftAt set: the fee is forfeited to the host.
type SessionParticipant struct {
	Base
	SessionID  string     `gorm:"uniqueIndex:idx_session_user;not null" json:"session_id"`
	UserID     string     `gorm:"uniqueIndex:idx_session_user;not null" json:"user_id"`
	PaidTokens int64      `json:"paid_tokens"`
	LeftAt     *time.Time `json:"left_at,omitempty"`
}

func (p *SessionParticipant) Attending() bool { return p.LeftAt == nil }
