package models

import "gorm.io/gorm"

type ClubRole string

const (
	ClubRoleOwner  ClubRole = "owner"
	ClubRoleAdmin  ClubRole = "admin"
	ClubRoleMember ClubRole = "member"
)

type Club struct {
	Base
	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	OwnerID     string `gorm:"index;not null" json:"owner_id"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	City        string `gorm:"index" json:"city,omitempty"`
	LogoURL     string `gorm:"type:text" json:"logo_url,omitempty"`
	MemberCount int64  `gorm:"default:0" json:"member_count"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type ClubMember struct {
	Base
	ClubID string   `gorm:"uniqueIndex:idx_club_user;not null" json:"club_id"`
	UserID string   `gorm:"uniqueIndex:idx_club_user;not null" json:"user_id"`
	Role   ClubRole `gorm:"type:varchar(16);default:'member'" json:"role"`
}
