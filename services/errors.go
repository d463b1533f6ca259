package services

import (
	"time"

	"github.com/pkg/errors"
)

// Sentinel errors. Handlers map them onto HTTP status codes.
var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrInsufficientHP     = errors.New("insufficient hp")
	ErrStakeNotAllowed    = errors.New("level gap too large to stake")
	ErrInvalidState       = errors.New("invalid state")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("already exists")
	ErrUnavailable        = errors.New("upstream unavailable")
)

// invalid wraps ErrInvalidInput with a caller-facing reason.
func invalid(msg string) error {
	return errors.Wrap(ErrInvalidInput, msg)
}

func invalidState(msg string) error {
	return errors.Wrap(ErrInvalidState, msg)
}

// utcNow is the default clock. Timestamps are stored in UTC so string-typed
// time columns compare correctly on every driver.
func utcNow() time.Time { return time.Now().UTC() }
