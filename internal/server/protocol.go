// ABOUTME: Wire protocol for the websocket transport
// ABOUTME: Named-event frames with optional per-call acks and {ok,...} response envelopes

package server

import (
	"encoding/json"

	"github.com/2389/duet-server/internal/dm"
	"github.com/2389/duet-server/internal/store"
)

// Inbound event names
const (
	eventJoinConversation     = "joinConversation"
	eventStartConversation    = "startConversation"
	eventGetConversations     = "getConversations"
	eventGetMessages          = "getMessages"
	eventSendMessage          = "sendMessage"
	eventEditMessage          = "editMessage"
	eventDeleteMessage        = "deleteMessage"
	eventDeleteConversation   = "deleteConversation"
	eventMarkConversationRead = "markConversationRead"
)

// frame is the inbound wire envelope: a named event with a JSON
// payload and an optional ack ID the client expects a reply under.
type frame struct {
	Event string          `json:"event"`
	Ack   *int64          `json:"ack,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outFrame is the outbound envelope. Replies carry the ack ID of the
// request they answer; server-pushed broadcasts carry an event name.
type outFrame struct {
	Event string `json:"event,omitempty"`
	Ack   *int64 `json:"ack,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// Request payloads, field names per the client protocol

type joinConversationPayload struct {
	ConversationID string `json:"conversationId"`
	UserUID        string `json:"userUid"`
}

type startConversationPayload struct {
	CurrentUserUID string `json:"currentUserUid"`
	OtherUserUID   string `json:"otherUserUid"`
}

type getConversationsPayload struct {
	UserUID string `json:"userUid"`
}

type getMessagesPayload struct {
	ConversationID string `json:"conversationId"`
}

type sendMessagePayload struct {
	ConversationID string `json:"conversationId"`
	SenderUID      string `json:"senderUid"`
	Text           string `json:"text"`
}

type editMessagePayload struct {
	MessageID string `json:"messageId"`
	UserUID   string `json:"userUid"`
	Text      string `json:"text"`
}

type deleteMessagePayload struct {
	MessageID string `json:"messageId"`
	UserUID   string `json:"userUid"`
}

type deleteConversationPayload struct {
	ConversationID string `json:"conversationId"`
	UserUID        string `json:"userUid"`
}

type markConversationReadPayload struct {
	ConversationID string `json:"conversationId"`
	UserUID        string `json:"userUid"`
}

// Response envelopes

type okResponse struct {
	OK bool `json:"ok"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type conversationResponse struct {
	OK           bool                `json:"ok"`
	Conversation *store.Conversation `json:"conversation"`
}

type conversationsResponse struct {
	OK            bool                       `json:"ok"`
	Conversations []*dm.ConversationSummary `json:"conversations"`
}

type messageResponse struct {
	OK      bool           `json:"ok"`
	Message *store.Message `json:"message"`
}

type messagesResponse struct {
	OK       bool             `json:"ok"`
	Messages []*store.Message `json:"messages"`
}
