package models

import "time"

// RateLimitState is the per-user windowed counter with block escalation.
// Exactly one row per user.
type RateLimitState struct {
	UserID       int64
	MessageCount int
	WindowStart  time.Time
	IsBlocked    bool
	BlockedUntil *time.Time
}
