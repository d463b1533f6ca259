package models

// CoachFeedback: one rating per player per session
type CoachFeedback struct {
	Base
	CoachID   string `gorm:"index;not null" json:"coach_id"`
	PlayerID  string `gorm:"uniqueIndex:idx_feedback_player_session;not null" json:"player_id"`
	SessionID string `gorm:"uniqueIndex:idx_feedback_player_session;not null" json:"session_id"`
	Rating    int    `gorm:"not null" json:"rating"`
	Comment   string `gorm:"type:text" json:"comment,omitempty"`
}
