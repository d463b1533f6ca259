package models

import "time"

// UserProgress tracks the gamified economy for each user (denormalized for performance)
type UserProgress struct {
	Base
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"`

	// Core progression
	TotalXP int64 `json:"total_xp" gorm:"default:0"`
	Level   int   `json:"level" gorm:"default:1"`
	Tokens  int64 `json:"tokens" gorm:"default:0;check:tokens >= 0"`

	// HP gates participation; it regenerates over time and decays when idle
	HP            int        `json:"hp" gorm:"default:100;check:hp >= 0"`
	MaxHP         int        `json:"max_hp" gorm:"default:100"`
	LastHPRegenAt time.Time  `json:"last_hp_regen_at"`
	LastActiveAt  time.Time  `json:"last_active_at" gorm:"index"`
	LastHPDecayAt *time.Time `json:"-"`

	// Activity counters
	TotalMatches     int64 `json:"total_matches" gorm:"default:0"`
	MatchesWon       int64 `json:"matches_won" gorm:"default:0"`
	QuizzesPassed    int64 `json:"quizzes_passed" gorm:"default:0"`
	SessionsAttended int64 `json:"sessions_attended" gorm:"default:0"`

	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`
}

// CoachProgress holds the coach-only currencies: reputation (CRP), tokens (CTK) and experience (CXP).
type CoachProgress struct {
	Base
	UserID        string  `gorm:"uniqueIndex;not null" json:"user_id"`
	CRP           int64   `json:"crp" gorm:"default:0"`
	CTK           int64   `json:"ctk" gorm:"default:0"`
	CXP           int64   `json:"cxp" gorm:"default:0"`
	CoachLevel    int     `json:"coach_level" gorm:"default:1"`
	FeedbackCount int64   `json:"feedback_count" gorm:"default:0"`
	RatingTotal   int64   `json:"-" gorm:"default:0"`
	AverageRating float64 `json:"average_rating" gorm:"default:0"`
}
