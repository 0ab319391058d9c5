// ABOUTME: SQLite-backed store for duet-server using modernc.org/sqlite
// ABOUTME: Opens the database, creates the schema, and provides shared helpers

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is a fixed-width UTC timestamp format. Fixed width means
// lexicographic comparison of stored values matches chronological order,
// so ORDER BY on timestamp columns is correct.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore provides conversation, message, and user-directory
// persistence on a single SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// A single writer connection sidesteps SQLITE_BUSY under
	// concurrent transactions; reads still run concurrently via WAL.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist.
//
// Messages carry no foreign key to conversations: a message is a
// separate storage unit and cascade deletion is performed explicitly
// by DeleteConversationByParticipant. Unread counter rows do cascade,
// they have no life of their own.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id                TEXT PRIMARY KEY,
			participant_lo    TEXT NOT NULL,
			participant_hi    TEXT NOT NULL,
			last_message_text TEXT NOT NULL DEFAULT '',
			last_message_at   TEXT,
			created_at        TEXT NOT NULL,
			updated_at        TEXT NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_pair
			ON conversations(participant_lo, participant_hi);

		CREATE INDEX IF NOT EXISTS idx_conversations_lo ON conversations(participant_lo);
		CREATE INDEX IF NOT EXISTS idx_conversations_hi ON conversations(participant_hi);

		CREATE TABLE IF NOT EXISTS conversation_unread (
			conversation_id TEXT NOT NULL,
			user_uid        TEXT NOT NULL,
			count           INTEGER NOT NULL DEFAULT 0,

			PRIMARY KEY (conversation_id, user_uid),
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE,
			CHECK (count >= 0)
		);

		CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			sender_uid      TEXT NOT NULL,
			recipient_uid   TEXT NOT NULL,
			text            TEXT NOT NULL,
			created_at      TEXT NOT NULL,
			read_at         TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
			ON messages(conversation_id, created_at);

		CREATE TABLE IF NOT EXISTS users (
			uid        TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			handle     TEXT NOT NULL,
			avatar_url TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// nullableTime formats an optional timestamp for storage
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
