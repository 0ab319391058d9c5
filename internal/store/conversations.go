// ABOUTME: Conversation persistence: atomic find-or-create, listing, cascade delete
// ABOUTME: Summary and unread-counter updates run as single transactions, never load-then-save

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FindOrCreateConversation returns the conversation for the given
// participant pair, creating it if none exists. The insert is keyed by
// the sorted pair with ON CONFLICT DO NOTHING, so concurrent callers
// for the same pair (in either order) converge on exactly one record.
// An existing conversation is returned unchanged.
func (s *SQLiteStore) FindOrCreateConversation(ctx context.Context, userA, userB string) (*Conversation, error) {
	lo, hi := NormalizePair(userA, userB)
	now := formatTime(time.Now())

	query := `
		INSERT INTO conversations (id, participant_lo, participant_hi, last_message_text, last_message_at, created_at, updated_at)
		VALUES (?, ?, ?, '', NULL, ?, ?)
		ON CONFLICT(participant_lo, participant_hi) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, uuid.New().String(), lo, hi, now, now)
	if err != nil {
		return nil, fmt.Errorf("upserting conversation: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.logger.Debug("conversation created", "participant_lo", lo, "participant_hi", hi)
	}

	return s.getConversationWhere(ctx, "participant_lo = ? AND participant_hi = ?", lo, hi)
}

// GetConversation retrieves a conversation by ID, including its unread
// counter map.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	return s.getConversationWhere(ctx, "id = ?", id)
}

// ListConversationsByUser returns every conversation uid participates
// in, most recent activity first. Conversations that have no messages
// yet sort by their last update time.
func (s *SQLiteStore) ListConversationsByUser(ctx context.Context, uid string) ([]*Conversation, error) {
	query := `
		SELECT id, participant_lo, participant_hi, last_message_text, last_message_at, created_at, updated_at
		FROM conversations
		WHERE participant_lo = ? OR participant_hi = ?
		ORDER BY COALESCE(last_message_at, updated_at) DESC, updated_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, uid, uid)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}

	for _, conv := range convs {
		if err := s.loadUnread(ctx, conv); err != nil {
			return nil, err
		}
	}
	return convs, nil
}

// DeleteConversationByParticipant deletes the conversation and all of
// its messages, but only when uid is one of its participants. Returns
// whether a conversation row actually matched; a non-participant (or a
// nonexistent ID) matches zero rows and leaves everything intact.
func (s *SQLiteStore) DeleteConversationByParticipant(ctx context.Context, id, uid string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM conversations WHERE id = ? AND (participant_lo = ? OR participant_hi = ?)`,
		id, uid, uid)
	if err != nil {
		return false, fmt.Errorf("deleting conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	// Cascade only after the conversation delete matched a row owned
	// by this participant. Unread rows cascade via foreign key.
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return false, fmt.Errorf("deleting conversation messages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing delete: %w", err)
	}

	s.logger.Debug("conversation deleted", "conversation_id", id, "by", uid)
	return true, nil
}

// RecordMessageSent persists a new message and, in the same
// transaction, updates the owning conversation's summary fields and
// increments the unread counter of every participant other than the
// sender. The increment is a single atomic UPDATE on the counter row,
// so concurrent sends to the same conversation never lose a count.
// Returns ErrNotFound if the conversation no longer exists.
func (s *SQLiteStore) RecordMessageSent(ctx context.Context, msg *Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning send: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(msg.CreatedAt)
	res, err := tx.ExecContext(ctx,
		`UPDATE conversations SET last_message_text = ?, last_message_at = ?, updated_at = ? WHERE id = ?`,
		msg.Text, now, now, msg.ConversationID)
	if err != nil {
		return fmt.Errorf("updating conversation summary: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("checking summary update: %w", err)
	} else if n == 0 {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender_uid, recipient_uid, text, created_at, read_at)
		 VALUES (?, ?, ?, ?, ?, ?, NULL)`,
		msg.ID, msg.ConversationID, msg.SenderUID, msg.RecipientUID, msg.Text, now)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	// With the self-recipient fallback, sender == recipient means
	// nobody's counter moves.
	if msg.RecipientUID != msg.SenderUID {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO conversation_unread (conversation_id, user_uid, count) VALUES (?, ?, 1)
			 ON CONFLICT(conversation_id, user_uid) DO UPDATE SET count = count + 1`,
			msg.ConversationID, msg.RecipientUID)
		if err != nil {
			return fmt.Errorf("incrementing unread counter: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing send: %w", err)
	}

	s.logger.Debug("message recorded",
		"message_id", msg.ID,
		"conversation_id", msg.ConversationID,
		"sender", msg.SenderUID)
	return nil
}

// ResetUnread sets uid's unread counter on the conversation to zero.
// Other participants' counters are untouched. Silently no-ops when the
// conversation does not exist.
func (s *SQLiteStore) ResetUnread(ctx context.Context, conversationID, uid string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reset: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		formatTime(time.Now()), conversationID)
	if err != nil {
		return fmt.Errorf("touching conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("checking reset: %w", err)
	} else if n == 0 {
		return nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversation_unread (conversation_id, user_uid, count) VALUES (?, ?, 0)
		 ON CONFLICT(conversation_id, user_uid) DO UPDATE SET count = 0`,
		conversationID, uid)
	if err != nil {
		return fmt.Errorf("resetting unread counter: %w", err)
	}

	return tx.Commit()
}

// getConversationWhere fetches a single conversation matching the
// given predicate, with its unread map loaded.
func (s *SQLiteStore) getConversationWhere(ctx context.Context, where string, args ...any) (*Conversation, error) {
	query := `
		SELECT id, participant_lo, participant_hi, last_message_text, last_message_at, created_at, updated_at
		FROM conversations
		WHERE ` + where

	conv, err := scanConversation(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadUnread(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// loadUnread populates the conversation's unread counter map from its
// counter rows. Absent rows mean zero and are not materialized.
func (s *SQLiteStore) loadUnread(ctx context.Context, conv *Conversation) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_uid, count FROM conversation_unread WHERE conversation_id = ?`, conv.ID)
	if err != nil {
		return fmt.Errorf("querying unread counters: %w", err)
	}
	defer rows.Close()

	conv.UnreadByUser = make(map[string]int)
	for rows.Next() {
		var uid string
		var count int
		if err := rows.Scan(&uid, &count); err != nil {
			return fmt.Errorf("scanning unread counter: %w", err)
		}
		conv.UnreadByUser[uid] = count
	}
	return rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (*Conversation, error) {
	conv := &Conversation{}
	var lastMessageAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&conv.ID,
		&conv.Participants[0],
		&conv.Participants[1],
		&conv.LastMessageText,
		&lastMessageAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastMessageAt.Valid {
		t, err := parseTime(lastMessageAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last_message_at: %w", err)
		}
		conv.LastMessageAt = &t
	}
	if conv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if conv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return conv, nil
}
