package models

import "time"

type CheckoutStatus string

const (
	CheckoutPending CheckoutStatus = "pending"
	CheckoutPaid    CheckoutStatus = "paid"
	CheckoutExpired CheckoutStatus = "expired"
	CheckoutFailed  CheckoutStatus = "failed"
)

// CheckoutSession mirrors a hosted payment session at the provider.
type CheckoutSession struct {
	Base
	UserID            string         `gorm:"index;not null" json:"user_id"`
	PackID            string         `gorm:"not null" json:"pack_id"`
	Tokens            int64          `json:"tokens"`
	AmountCents       int64          `json:"amount_cents"`
	Currency          string         `gorm:"type:varchar(8);default:'usd'" json:"currency"`
	ProviderSessionID string         `gorm:"uniqueIndex" json:"provider_session_id"`
	CheckoutURL       string         `gorm:"type:text" json:"checkout_url"`
	Status            CheckoutStatus `gorm:"type:varchar(16);default:'pending';index" json:"status"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
}
