// ABOUTME: Broadcast event names and payloads for message lifecycle fan-out
// ABOUTME: Constructors pair each event name with its wire payload shape

package realtime

import (
	"github.com/2389/duet-server/internal/store"
)

// Event names pushed to room subscribers
const (
	EventMessage        = "message"
	EventMessageEdited  = "messageEdited"
	EventMessageDeleted = "messageDeleted"
)

// Event is a named payload delivered to every connection in a room
type Event struct {
	Name string
	Data any
}

// MessagePayload carries a full message for created/edited events
type MessagePayload struct {
	ConversationID string         `json:"conversationId"`
	Message        *store.Message `json:"message"`
}

// MessageDeletedPayload carries only the deleted message's identity
type MessageDeletedPayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

// NewMessageEvent builds the broadcast for a newly created message
func NewMessageEvent(msg *store.Message) Event {
	return Event{
		Name: EventMessage,
		Data: MessagePayload{ConversationID: msg.ConversationID, Message: msg},
	}
}

// NewMessageEditedEvent builds the broadcast for an edited message
func NewMessageEditedEvent(msg *store.Message) Event {
	return Event{
		Name: EventMessageEdited,
		Data: MessagePayload{ConversationID: msg.ConversationID, Message: msg},
	}
}

// NewMessageDeletedEvent builds the broadcast for a deleted message
func NewMessageDeletedEvent(conversationID, messageID string) Event {
	return Event{
		Name: EventMessageDeleted,
		Data: MessageDeletedPayload{ConversationID: conversationID, MessageID: messageID},
	}
}
