// Package models defines the row structs persisted by the relay's
// repositories.
package models

import "time"

// User maps a platform-specific external identity to an internal record and
// a shareable public code. Created on first contact, never deleted.
type User struct {
	ID          int64
	ExternalID  string
	Code        string
	DisplayName string
	Active      bool
	CreatedAt   time.Time
}
