package models

import "time"

// ReplyToken correlates a delivered message's (sender, receiver) pair under
// an opaque hash so a reply can be routed back without exposing identities.
type ReplyToken struct {
	ID         int64
	Hash       string
	SenderID   int64
	ReceiverID int64
	CreatedAt  time.Time
}
