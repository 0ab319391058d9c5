// ABOUTME: Tests for user directory lookups and ingestion
// ABOUTME: Covers single and batch lookup plus upsert behavior

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutUser_AndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutUser(ctx, &UserProfile{
		UID:       "u1",
		Name:      "Alice",
		Handle:    "alice",
		AvatarURL: "https://example.com/a.png",
	}))

	got, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, "alice", got.Handle)
	assert.Equal(t, "https://example.com/a.png", got.AvatarURL)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestPutUser_Upsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutUser(ctx, &UserProfile{UID: "u1", Name: "Alice", Handle: "alice"}))
	require.NoError(t, s.PutUser(ctx, &UserProfile{UID: "u1", Name: "Alice B.", Handle: "aliceb"}))

	got, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice B.", got.Name)
	assert.Equal(t, "aliceb", got.Handle)
}

func TestGetUser_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetUsersByUID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutUser(ctx, &UserProfile{UID: "u1", Name: "Alice", Handle: "alice"}))
	require.NoError(t, s.PutUser(ctx, &UserProfile{UID: "u2", Name: "Bob", Handle: "bob"}))

	users, err := s.GetUsersByUID(ctx, []string{"u1", "u2", "unknown"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users["u1"].Name)
	assert.Equal(t, "Bob", users["u2"].Name)
	assert.NotContains(t, users, "unknown")
}

func TestGetUsersByUID_Empty(t *testing.T) {
	s := newTestStore(t)
	users, err := s.GetUsersByUID(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}
