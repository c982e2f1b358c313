package models

import "time"

// Alert types raised by the relay and the limiter.
const (
	AlertSpamAttempt = "spam_attempt"
	AlertAutoBlock   = "auto_block"
	AlertUrgent      = "urgent_message"
)

// Alert is an append-only operator alert, mutated only by resolve.
type Alert struct {
	ID        int64
	Type      string
	UserID    *int64
	Details   string
	Resolved  bool
	CreatedAt time.Time
}
