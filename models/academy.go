package models

type QuizQuestion struct {
	Base
	Topic        string   `gorm:"index;not null" json:"topic"` // e.g., "rules", "tactics", "technique"
	Prompt       string   `gorm:"type:text;not null" json:"prompt"`
	Options      []string `gorm:"type:text;serializer:json" json:"options"`
	CorrectIndex int      `json:"-"`
	Explanation  string   `gorm:"type:text" json:"-"`
	Difficulty   string   `gorm:"type:varchar(16);default:'easy'" json:"difficulty"`
}

// QuizAttempt records every submission. RewardDay (UTC "2006-01-02") is set
// only on the attempt that paid XP; the unique index allows one per topic per day.
type QuizAttempt struct {
	Base
	UserID    string  `gorm:"index;uniqueIndex:idx_quiz_reward;not null" json:"user_id"`
	Topic     string  `gorm:"index;uniqueIndex:idx_quiz_reward;not null" json:"topic"`
	RewardDay *string `gorm:"uniqueIndex:idx_quiz_reward;type:varchar(10)" json:"reward_day,omitempty"`
	Score     int     `json:"score"`
	Total     int     `json:"total"`
	Passed    bool    `json:"passed"`
	XPAwarded int64   `json:"xp_awarded"`
}
