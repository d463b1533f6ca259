package models

import "gorm.io/gorm"

type Role string

const (
	RolePlayer Role = "player"
	RoleCoach  Role = "coach"
)

// PlayerProfile is the public face of a user: players and coaches alike.
type PlayerProfile struct {
	Base
	UserID           string   `gorm:"uniqueIndex;not null" json:"user_id"`
	DisplayName      string   `gorm:"not null" json:"display_name"`
	Email            string   `json:"-"`              // notifications only, never serialized
	SearchName       string   `gorm:"index" json:"-"` // unidecoded, lower-cased DisplayName
	Role             Role     `gorm:"type:varchar(16);default:'player'" json:"role"`
	SkillLevel       string   `gorm:"type:varchar(16);default:'beginner'" json:"skill_level"`
	Bio              string   `gorm:"type:text" json:"bio,omitempty"`
	AvatarURL        string   `json:"avatar_url,omitempty"`
	City             string   `gorm:"index" json:"city,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	PreferredSurface string   `gorm:"type:varchar(16)" json:"preferred_surface,omitempty"` // hard, clay, grass

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *PlayerProfile) IsCoach() bool { return p.Role == RoleCoach }
