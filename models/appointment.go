package models

import "time"

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentAccepted  AppointmentStatus = "accepted"
	AppointmentDeclined  AppointmentStatus = "declined"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// AppointmentRequest is a player asking a coach for a private lesson.
type AppointmentRequest struct {
	Base
	PlayerID    string            `gorm:"index;not null" json:"player_id"`
	CoachID     string            `gorm:"index;not null" json:"coach_id"`
	RequestedAt time.Time         `gorm:"not null" json:"requested_at"`
	DurationMin int               `gorm:"default:60" json:"duration_min"`
	Note        string            `gorm:"type:text" json:"note,omitempty"`
	Status      AppointmentStatus `gorm:"type:varchar(16);default:'pending';index" json:"status"`
	RespondedAt *time.Time        `json:"responded_at,omitempty"`
}
