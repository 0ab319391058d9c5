// ABOUTME: Read-only user directory lookups plus the ingestion upsert
// ABOUTME: The messaging services never write here; rows come from useradd or an external sync

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// GetUser retrieves a single user profile by uid
func (s *SQLiteStore) GetUser(ctx context.Context, uid string) (*UserProfile, error) {
	query := `
		SELECT uid, name, handle, avatar_url, created_at, updated_at
		FROM users
		WHERE uid = ?
	`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, uid))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return user, err
}

// GetUsersByUID retrieves the profiles for a set of uids, keyed by
// uid. Unknown uids are simply absent from the result.
func (s *SQLiteStore) GetUsersByUID(ctx context.Context, uids []string) (map[string]*UserProfile, error) {
	users := make(map[string]*UserProfile, len(uids))
	if len(uids) == 0 {
		return users, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(uids)), ",")
	query := `
		SELECT uid, name, handle, avatar_url, created_at, updated_at
		FROM users
		WHERE uid IN (` + placeholders + `)`

	args := make([]any, len(uids))
	for i, uid := range uids {
		args[i] = uid
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users[user.UID] = user
	}
	return users, rows.Err()
}

// PutUser inserts or replaces a directory row. This is an ingestion
// path for the useradd command and directory sync, not part of the
// messaging API surface.
func (s *SQLiteStore) PutUser(ctx context.Context, user *UserProfile) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query := `
		INSERT INTO users (uid, name, handle, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			name = excluded.name,
			handle = excluded.handle,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		user.UID, user.Name, user.Handle, user.AvatarURL,
		formatTime(user.CreatedAt), formatTime(user.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}

	s.logger.Debug("user profile stored", "uid", user.UID, "handle", user.Handle)
	return nil
}

func scanUser(row scanner) (*UserProfile, error) {
	user := &UserProfile{}
	var createdAt, updatedAt string

	err := row.Scan(&user.UID, &user.Name, &user.Handle, &user.AvatarURL, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return user, nil
}
