package models

type TokenKind string

const (
	TokenAward    TokenKind = "award"
	TokenSpend    TokenKind = "spend"
	TokenEscrow   TokenKind = "escrow"
	TokenPayout   TokenKind = "payout"
	TokenRefund   TokenKind = "refund"
	TokenPurchase TokenKind = "purchase"
	TokenLevelUp  TokenKind = "level_up"
)

// TokenTransaction is one row of the token ledger. Amount is signed.
type TokenTransaction struct {
	Base
	UserID string    `gorm:"index;not null" json:"user_id"`
	Amount int64     `gorm:"not null" json:"amount"`
	Kind   TokenKind `gorm:"type:varchar(16);not null" json:"kind"`
	Reason string    `json:"reason"`
	RefID  string    `gorm:"index" json:"ref_id,omitempty"`
}
