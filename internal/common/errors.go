// Package common defines shared constants and sentinel errors used across
// the relay service. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrInternal   = errors.New("internal error")
	ErrValidation = errors.New("validation error")

	// Moderation errors.
	ErrAlreadyProcessed = errors.New("message already processed")

	// Outbound boundary errors.
	ErrDeliveryFailure = errors.New("delivery failure")

	// Auth errors (invalid or malformed service token).
	ErrInvalidToken = errors.New("invalid token")
)

// RateLimitedError is the soft deny: the sender exceeded the per-window
// message cap but is not blocked.
type RateLimitedError struct {
	Count int
	Limit int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: %d messages, limit %d", e.Count, e.Limit)
}

// BlockedError is the hard deny: the sender is blocked until the given time.
type BlockedError struct {
	Until time.Time
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked until %s", e.Until.Format(time.RFC3339))
}

// AutoBlockedError reports the limiter escalation outcome: the tentative
// count reached the spam threshold and the sender was blocked automatically.
type AutoBlockedError struct {
	Count int
	Until time.Time
}

func (e *AutoBlockedError) Error() string {
	return fmt.Sprintf("auto-blocked for spam: %d messages, until %s", e.Count, e.Until.Format(time.RFC3339))
}
