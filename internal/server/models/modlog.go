package models

import "time"

// Moderation actions recorded in the audit trail.
const (
	ModActionApprove = "approve"
	ModActionReject  = "reject"
	ModActionBlock   = "block"
	ModActionUnblock = "unblock"
)

// ModLogEntry is an immutable audit record of a moderator action.
type ModLogEntry struct {
	ID           int64
	ModeratorID  int64
	Action       string
	MessageID    *int64
	TargetUserID *int64
	Details      string
	CreatedAt    time.Time
}
