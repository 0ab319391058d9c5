// ABOUTME: MessageService: send, edit, delete, list, and read-marking
// ABOUTME: Broadcasts lifecycle events to the conversation's room after store updates succeed

package dm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/duet-server/internal/realtime"
	"github.com/2389/duet-server/internal/store"
)

// MessageService manages message lifecycle within conversations
type MessageService struct {
	store     Store
	broadcast Broadcaster
	logger    *slog.Logger
}

// NewMessageService creates a MessageService. Pass nil logger for
// default.
func NewMessageService(st Store, broadcast Broadcaster, logger *slog.Logger) *MessageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageService{
		store:     st,
		broadcast: broadcast,
		logger:    logger.With("component", "messages"),
	}
}

// Send persists a new message, updates the conversation's summary and
// the recipient's unread counter in one atomic store operation, then
// broadcasts a message event to the room. The sender's own counter
// never moves. Returns store.ErrNotFound when the conversation does
// not exist.
//
// The recipient is the participant other than the sender; a sender
// who is not a participant falls back to being their own recipient
// (the permissive-recipient policy, see DESIGN.md).
func (s *MessageService) Send(ctx context.Context, conversationID, senderUID, text string) (*store.Message, error) {
	text = strings.TrimSpace(text)
	if conversationID == "" || senderUID == "" || text == "" {
		return nil, fmt.Errorf("%w: conversationId, senderUid and text are required", ErrInvalidArgument)
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}

	msg := &store.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderUID:      senderUID,
		RecipientUID:   conv.OtherParticipant(senderUID),
		Text:           text,
		CreatedAt:      time.Now(),
	}

	if err := s.store.RecordMessageSent(ctx, msg); err != nil {
		return nil, fmt.Errorf("recording message: %w", err)
	}

	s.logger.Debug("message sent",
		"message_id", msg.ID,
		"conversation_id", conversationID,
		"sender", senderUID)

	s.broadcast.Broadcast(conversationID, realtime.NewMessageEvent(msg))
	return msg, nil
}

// Edit replaces the message's text in place. Only the sender may
// edit; CreatedAt is untouched. The owning conversation's summary is
// deliberately not refreshed even when this was the latest message,
// so the listing can show stale text until the next send. Broadcasts
// a messageEdited event.
func (s *MessageService) Edit(ctx context.Context, messageID, userUID, text string) (*store.Message, error) {
	text = strings.TrimSpace(text)
	if messageID == "" || userUID == "" || text == "" {
		return nil, fmt.Errorf("%w: messageId, userUid and text are required", ErrInvalidArgument)
	}

	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("loading message: %w", err)
	}
	if msg.SenderUID != userUID {
		return nil, fmt.Errorf("%w: only the sender can edit a message", ErrPermissionDenied)
	}

	if err := s.store.UpdateMessageText(ctx, messageID, text); err != nil {
		return nil, fmt.Errorf("updating message: %w", err)
	}
	msg.Text = text

	s.broadcast.Broadcast(msg.ConversationID, realtime.NewMessageEditedEvent(msg))
	return msg, nil
}

// Delete removes the message. Deleting an unknown ID succeeds as a
// no-op; an existing message may only be deleted by its sender. The
// conversation's summary is not recomputed even when the deleted
// message was the most recent one. Broadcasts a messageDeleted event
// for existing messages.
func (s *MessageService) Delete(ctx context.Context, messageID, userUID string) error {
	if messageID == "" || userUID == "" {
		return fmt.Errorf("%w: messageId and userUid are required", ErrInvalidArgument)
	}

	msg, err := s.store.GetMessage(ctx, messageID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading message: %w", err)
	}
	if msg.SenderUID != userUID {
		return fmt.Errorf("%w: only the sender can delete a message", ErrPermissionDenied)
	}

	if err := s.store.DeleteMessage(ctx, messageID); err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}

	s.broadcast.Broadcast(msg.ConversationID, realtime.NewMessageDeletedEvent(msg.ConversationID, messageID))
	return nil
}

// ListMessages returns the conversation's messages oldest first.
// Read-only.
func (s *MessageService) ListMessages(ctx context.Context, conversationID string) ([]*store.Message, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversationId is required", ErrInvalidArgument)
	}
	msgs, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return msgs, nil
}

// MarkRead resets the user's unread counter on the conversation to
// zero. Other participants' counters are untouched, no event is
// broadcast, and an unknown conversation is a silent no-op.
func (s *MessageService) MarkRead(ctx context.Context, conversationID, userUID string) error {
	if conversationID == "" || userUID == "" {
		return fmt.Errorf("%w: conversationId and userUid are required", ErrInvalidArgument)
	}
	if err := s.store.ResetUnread(ctx, conversationID, userUID); err != nil {
		return fmt.Errorf("resetting unread counter: %w", err)
	}
	return nil
}
