// ABOUTME: Shared test fixtures for the dm services
// ABOUTME: Real SQLite store plus a recording broadcaster

package dm

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/2389/duet-server/internal/realtime"
	"github.com/2389/duet-server/internal/store"
)

// recordingBroadcaster captures broadcasts for assertions
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcastCall
}

type broadcastCall struct {
	ConversationID string
	Event          realtime.Event
}

func (b *recordingBroadcaster) Broadcast(conversationID string, event realtime.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastCall{ConversationID: conversationID, Event: event})
}

func (b *recordingBroadcaster) calls() []broadcastCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broadcastCall(nil), b.events...)
}

func createTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestServices(t *testing.T) (*ConversationService, *MessageService, *store.SQLiteStore, *recordingBroadcaster) {
	t.Helper()
	st := createTestStore(t)
	bc := &recordingBroadcaster{}
	return NewConversationService(st, st, nil), NewMessageService(st, bc, nil), st, bc
}
