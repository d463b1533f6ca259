package models

import (
	"sort"
	"strings"
	"time"
)

type Message struct {
	Base
	ConversationID string     `gorm:"index;not null" json:"conversation_id"`
	SenderID       string     `gorm:"index;not null" json:"sender_id"`
	RecipientID    string     `gorm:"index;not null" json:"recipient_id"`
	Body           string     `gorm:"type:text;not null" json:"body"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

// ConversationKey is the order-independent key for a pair of users.
func ConversationKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}
