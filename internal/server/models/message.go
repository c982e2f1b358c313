package models

import (
	"fmt"
	"time"
)

// MessageStatus is the moderation state of a relayed message.
// pending -> {approved, rejected} is terminal.
type MessageStatus string

const (
	StatusPending  MessageStatus = "pending"
	StatusApproved MessageStatus = "approved"
	StatusRejected MessageStatus = "rejected"
)

// MediaKind is the closed set of media payloads the relay accepts.
type MediaKind string

const (
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaVoice     MediaKind = "voice"
	MediaVideoNote MediaKind = "video_note"
	MediaAudio     MediaKind = "audio"
	MediaDocument  MediaKind = "document"
	MediaSticker   MediaKind = "sticker"
	MediaAnimation MediaKind = "animation"
)

// ParseMediaKind validates s against the closed set of media kinds.
func ParseMediaKind(s string) (MediaKind, error) {
	switch k := MediaKind(s); k {
	case MediaPhoto, MediaVideo, MediaVoice, MediaVideoNote,
		MediaAudio, MediaDocument, MediaSticker, MediaAnimation:
		return k, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", s)
	}
}

// MediaRef points at an uploaded blob by opaque storage key.
type MediaRef struct {
	Kind    MediaKind
	FileRef string
	Caption string
}

// Message is an append-only relayed message. Status, read state and
// PublishedRef are each mutated at most once along defined transitions.
type Message struct {
	ID           int64
	SenderID     int64
	ReceiverID   int64
	Content      string
	Media        *MediaRef
	Status       MessageStatus
	IsRead       bool
	ReadAt       *time.Time
	ReplyToID    *int64
	PublishedRef string
	Sentiment    string
	Urgent       bool
	CreatedAt    time.Time
}

// Text returns the human-readable text of the message: the content for text
// messages, the caption for media.
func (m *Message) Text() string {
	if m.Content != "" {
		return m.Content
	}
	if m.Media != nil {
		return m.Media.Caption
	}
	return ""
}
