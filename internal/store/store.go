// ABOUTME: Data types and sentinel errors for duet-server persistence
// ABOUTME: Defines Conversation, Message, UserProfile and the participant-pair key

package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Conversation is a two-party messaging thread, unique per unordered
// participant pair. Participants are stored in sorted order so that
// (A,B) and (B,A) resolve to the same record.
type Conversation struct {
	ID              string         `json:"id"`
	Participants    [2]string      `json:"participants"`
	LastMessageText string         `json:"lastMessageText"`
	LastMessageAt   *time.Time     `json:"lastMessageAt"`
	UnreadByUser    map[string]int `json:"unreadByUser"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// HasParticipant reports whether uid is one of the two participants.
func (c *Conversation) HasParticipant(uid string) bool {
	return c.Participants[0] == uid || c.Participants[1] == uid
}

// OtherParticipant returns the participant that is not uid.
//
// When uid is not a participant at all, uid itself is returned: an
// unknown sender messages themselves rather than either participant.
// This is the permissive-recipient policy; see DESIGN.md.
func (c *Conversation) OtherParticipant(uid string) string {
	if c.Participants[0] == uid {
		return c.Participants[1]
	}
	if c.Participants[1] == uid {
		return c.Participants[0]
	}
	return uid
}

// Unread returns uid's unread count, defaulting to zero when no
// counter row exists yet.
func (c *Conversation) Unread(uid string) int {
	return c.UnreadByUser[uid]
}

// Message is a single message within a conversation. CreatedAt is set
// once at creation and never changes, including on edits.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderUID      string    `json:"senderUid"`
	RecipientUID   string    `json:"recipientUid"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`

	// ReadAt is reserved and never written: read state is tracked at
	// conversation granularity via Conversation.UnreadByUser.
	ReadAt *time.Time `json:"readAt,omitempty"`
}

// UserProfile is the public display data consumed from the user
// directory. duet-server only ever reads these records; rows are
// ingested by the useradd command or an external sync.
type UserProfile struct {
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	Handle    string    `json:"handle"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NormalizePair returns the two uids in sorted order, the canonical
// order-independent key for a conversation's participant pair.
func NormalizePair(a, b string) (lo, hi string) {
	if b < a {
		return b, a
	}
	return a, b
}
