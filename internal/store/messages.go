// ABOUTME: Message persistence: lookup, time-ordered listing, text edit, delete
// ABOUTME: Creation goes through RecordMessageSent so summary and counters move atomically

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// GetMessage retrieves a single message by ID
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	query := `
		SELECT id, conversation_id, sender_uid, recipient_uid, text, created_at, read_at
		FROM messages
		WHERE id = ?
	`
	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return msg, err
}

// ListMessages returns every message in the conversation, oldest
// first. Ties on created_at keep insertion order via rowid.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	query := `
		SELECT id, conversation_id, sender_uid, recipient_uid, text, created_at, read_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// UpdateMessageText replaces the message's text in place. The creation
// timestamp is untouched. Returns ErrNotFound if no such message.
func (s *SQLiteStore) UpdateMessageText(ctx context.Context, id, text string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET text = ? WHERE id = ?`, text, id)
	if err != nil {
		return fmt.Errorf("updating message text: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking text update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMessage removes a message by ID. Deleting a message that does
// not exist is not an error.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	return nil
}

func scanMessage(row scanner) (*Message, error) {
	msg := &Message{}
	var createdAt string
	var readAt sql.NullString

	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderUID,
		&msg.RecipientUID,
		&msg.Text,
		&createdAt,
		&readAt,
	)
	if err != nil {
		return nil, err
	}

	if msg.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if readAt.Valid {
		t, err := parseTime(readAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing read_at: %w", err)
		}
		msg.ReadAt = &t
	}
	return msg, nil
}
