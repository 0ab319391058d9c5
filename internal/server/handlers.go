// ABOUTME: Dispatches inbound frames to the conversation and message services
// ABOUTME: Request-response events always ack {ok,...}; fire-and-forget events log and swallow

package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/2389/duet-server/internal/dm"
	"github.com/2389/duet-server/internal/store"
)

// dispatch routes one inbound frame. Handler failures are reported on
// the frame's ack (when present) and never tear down the connection.
func (s *Server) dispatch(ctx context.Context, sess *session, f frame) {
	switch f.Event {
	case eventJoinConversation:
		s.handleJoinConversation(sess, f)
	case eventStartConversation:
		s.handleStartConversation(ctx, sess, f)
	case eventGetConversations:
		s.handleGetConversations(ctx, sess, f)
	case eventGetMessages:
		s.handleGetMessages(ctx, sess, f)
	case eventSendMessage:
		s.handleSendMessage(ctx, sess, f)
	case eventEditMessage:
		s.handleEditMessage(ctx, sess, f)
	case eventDeleteMessage:
		s.handleDeleteMessage(ctx, sess, f)
	case eventDeleteConversation:
		s.handleDeleteConversation(ctx, sess, f)
	case eventMarkConversationRead:
		s.handleMarkConversationRead(ctx, sess, f)
	default:
		sess.logger.Warn("unknown event", "event", f.Event)
		if f.Ack != nil {
			sess.reply(*f.Ack, errorResponse{Error: "unknown event: " + f.Event})
		}
	}
}

// handleJoinConversation adds the connection to the conversation's
// room. Fire-and-forget: no reply, failures only logged. Membership
// is not checked against the participant list; the conversation ID
// acts as a capability.
func (s *Server) handleJoinConversation(sess *session, f frame) {
	var p joinConversationPayload
	if err := json.Unmarshal(f.Data, &p); err != nil || p.ConversationID == "" {
		sess.logger.Warn("ignoring invalid joinConversation", "error", err)
		return
	}
	s.router.Join(sess.id, p.ConversationID)
}

func (s *Server) handleStartConversation(ctx context.Context, sess *session, f frame) {
	var p startConversationPayload
	if err := json.Unmarshal(f.Data, &p); err != nil {
		s.replyError(sess, f, errBadPayload)
		return
	}

	conv, err := s.conversations.Start(ctx, p.CurrentUserUID, p.OtherUserUID)
	if err != nil {
		s.replyError(sess, f, err)
		return
	}
	if f.Ack != nil {
		sess.reply(*f.Ack, conversationResponse{OK: true, Conversation: conv})
	}
}

func (s *Server) handleGetConversations(ctx context.Context, sess *session, f frame) {
	var p getConversationsPayload
	if err := json.Unmarshal(f.Data, &p); err != nil {
		s.replyError(sess, f, errBadPayload)
		return
	}

	summaries, err := s.conversations.List(ctx, p.UserUID)
	if err != nil {
		s.replyError(sess, f, err)
		return
	}
	if f.Ack != nil {
		sess.reply(*f.Ack, conversationsResponse{OK: true, Conversations: summaries})
	}
}

func (s *Server) handleGetMessages(ctx context.Context, sess *session, f frame) {
	var p getMessagesPayload
	if err := json.Unmarshal(f.Data, &p); err != nil {
		s.replyError(sess, f, errBadPayload)
		return
	}

	msgs, err := s.messages.ListMessages(ctx, p.ConversationID)
	if err != nil {
		s.replyError(sess, f, err)
		return
	}
	if f.Ack != nil {
		sess.reply(*f.Ack, messagesResponse{OK: true, Messages: msgs})
	}
}

func (s *Server) handleSendMessage(ctx context.Context, sess *session, f frame) {
	var p sendMessagePayload
	if err := json.Unmarshal(f.Data, &p); err != nil {
		s.replyError(sess, f, errBadPayload)
		return
	}

	msg, err := s.messages.Send(ctx, p.ConversationID, p.SenderUID, p.Text)
	if err != nil {
		s.replyError(sess, f, err)
		return
	}
	if f.Ack != nil {
		sess.reply(*f.Ack, messageResponse{OK: true, Message: msg})
	}
}

func (s *Server) handleEditMessage(ctx context.Context, sess *session, f frame) {
	var p editMessagePayload
	if err := json.Unmarshal(f.Data, &p); err != nil {
		s.replyError(sess, f, errBadPayload)
		return
	}

	msg, err := s.messages.Edit(ctx, p.MessageID, p.UserUID, p.Text)
	if err != nil {
		s.replyError(sess, f, err)
		return
	}
	if f.Ack != nil {
		sess.reply(*f.Ack, messageResponse{OK: true, Message: msg})
	}
}

func (s *Server) handleDeleteMessage(ctx context.Context, sess *session, f frame) {
	var p deleteMessagePayload
	if err := json.Unmarshal(f.Data, &p); err != nil {
		s.replyError(sess, f, errBadPayload)
		return
	}

	if err := s.messages.Delete(ctx, p.MessageID, p.UserUID); err != nil {
		s.replyError(sess, f, err)
		return
	}
	if f.Ack != nil {
		sess.reply(*f.Ack, okResponse{OK: true})
	}
}

func (s *Server) handleDeleteConversation(ctx context.Context, sess *session, f frame) {
	var p deleteConversationPayload
	if err := json.Unmarshal(f.Data, &p); err != nil {
		s.replyError(sess, f, errBadPayload)
		return
	}

	if err := s.conversations.Delete(ctx, p.ConversationID, p.UserUID); err != nil {
		s.replyError(sess, f, err)
		return
	}
	if f.Ack != nil {
		sess.reply(*f.Ack, okResponse{OK: true})
	}
}

// handleMarkConversationRead resets the caller's unread counter.
// Fire-and-forget: unread changes are pulled by clients, not pushed.
func (s *Server) handleMarkConversationRead(ctx context.Context, sess *session, f frame) {
	var p markConversationReadPayload
	if err := json.Unmarshal(f.Data, &p); err != nil {
		sess.logger.Warn("ignoring invalid markConversationRead", "error", err)
		return
	}

	if err := s.messages.MarkRead(ctx, p.ConversationID, p.UserUID); err != nil {
		sess.logger.Warn("markConversationRead failed",
			"conversation_id", p.ConversationID,
			"error", err)
	}
}

var errBadPayload = errors.New("invalid payload")

// replyError reports a handler failure on the frame's ack. Errors for
// frames without an ack have no caller-visible channel and are only
// logged.
func (s *Server) replyError(sess *session, f frame, err error) {
	sess.logger.Debug("request failed", "event", f.Event, "error", err)
	if f.Ack == nil {
		return
	}
	sess.reply(*f.Ack, errorResponse{Error: errorMessage(err)})
}

// errorMessage maps service errors onto caller-facing strings.
// Unexpected errors are reported generically so storage internals
// never leak to clients.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, errBadPayload):
		return "invalid payload"
	case errors.Is(err, dm.ErrInvalidArgument), errors.Is(err, dm.ErrPermissionDenied):
		return err.Error()
	case errors.Is(err, store.ErrNotFound):
		return "not found"
	default:
		return "internal storage error"
	}
}
