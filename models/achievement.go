package models

import "time"

// Achievement: static definition, seeded at startup
type Achievement struct {
	Base
	Code        string           `gorm:"uniqueIndex;not null" json:"code"` // e.g., "FIRST_WIN", "LEVEL_10"
	Name        string           `gorm:"not null" json:"name"`
	Description string           `json:"description"`
	IconURL     string           `gorm:"type:text" json:"icon_url,omitempty"`
	Rarity      string           `gorm:"type:varchar(16);default:'common'" json:"rarity"` // common, rare, epic, legendary
	Threshold   map[string]int64 `gorm:"type:text;serializer:json" json:"threshold"`      // e.g., {"matches_won": 10}
}

// UserAchievement: awarded instance
type UserAchievement struct {
	Base
	UserID        string    `gorm:"uniqueIndex:idx_user_achievement;not null" json:"user_id"`
	AchievementID string    `gorm:"uniqueIndex:idx_user_achievement;not null" json:"achievement_id"`
	AwardedAt     time.Time `json:"awarded_at"`

	Achievement *Achievement `gorm:"foreignKey:AchievementID" json:"achievement,omitempty"`
}

// AchievementCatalog is the built-in set of achievements.
// Threshold keys: total_matches, matches_won, level, quizzes_passed, sessions_attended, tokens.
var AchievementCatalog = []Achievement{
	{
		Code:        "FIRST_MATCH",
		Name:        "First Serve",
		Description: "Played your first match",
		Rarity:      "common",
		Threshold:   map[string]int64{"total_matches": 1},
	},
	{
		Code:        "FIRST_WIN",
		Name:        "First Victory",
		Description: "Won your first match",
		Rarity:      "common",
		Threshold:   map[string]int64{"matches_won": 1},
	},
	{
		Code:        "WINS_10",
		Name:        "Court Regular",
		Description: "Won 10 matches",
		Rarity:      "rare",
		Threshold:   map[string]int64{"matches_won": 10},
	},
	{
		Code:        "LEVEL_10",
		Name:        "Rising Star",
		Description: "Reached level 10",
		Rarity:      "rare",
		Threshold:   map[string]int64{"level": 10},
	},
	{
		Code:        "LEVEL_50",
		Name:        "Halfway There",
		Description: "Reached level 50",
		Rarity:      "epic",
		Threshold:   map[string]int64{"level": 50},
	},
	{
		Code:        "SCHOLAR",
		Name:        "Student of the Game",
		Description: "Passed 5 academy quizzes",
		Rarity:      "rare",
		Threshold:   map[string]int64{"quizzes_passed": 5},
	},
	{
		Code:        "DRILLED",
		Name:        "Drill Sergeant",
		Description: "Attended 10 training sessions",
		Rarity:      "rare",
		Threshold:   map[string]int64{"sessions_attended": 10},
	},
	{
		Code:        "HIGH_ROLLER",
		Name:        "High Roller",
		Description: "Held 1000 tokens at once",
		Rarity:      "legendary",
		Threshold:   map[string]int64{"tokens": 1000},
	},
}
