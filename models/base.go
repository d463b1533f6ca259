package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the primary key and GORM auto-times.
// IDs are generated in Go so the same schema runs on postgres and sqlite.
type Base struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&PlayerProfile{},
		&UserProgress{},
		&CoachProgress{},
		&TokenTransaction{},
		&Match{},
		&TrainingSession{},
		&SessionParticipant{},
		&Club{},
		&ClubMember{},
		&Message{},
		&Achievement{},
		&UserAchievement{},
		&QuizQuestion{},
		&QuizAttempt{},
		&AppointmentRequest{},
		&CoachFeedback{},
		&CheckoutSession{},
	}
}
