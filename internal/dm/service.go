// ABOUTME: Shared service plumbing: error taxonomy and collaborator interfaces
// ABOUTME: Services depend on narrow store/directory/broadcast interfaces, not concrete types

package dm

import (
	"context"
	"errors"

	"github.com/2389/duet-server/internal/realtime"
	"github.com/2389/duet-server/internal/store"
)

// Service-level error taxonomy. Store lookups surface
// store.ErrNotFound; anything else is a storage failure.
var (
	// ErrInvalidArgument means a required field was missing or blank
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPermissionDenied means the caller is not the message's sender
	ErrPermissionDenied = errors.New("permission denied")
)

// Store defines what the services need from persistence
type Store interface {
	FindOrCreateConversation(ctx context.Context, userA, userB string) (*store.Conversation, error)
	GetConversation(ctx context.Context, id string) (*store.Conversation, error)
	ListConversationsByUser(ctx context.Context, uid string) ([]*store.Conversation, error)
	DeleteConversationByParticipant(ctx context.Context, id, uid string) (bool, error)

	RecordMessageSent(ctx context.Context, msg *store.Message) error
	GetMessage(ctx context.Context, id string) (*store.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]*store.Message, error)
	UpdateMessageText(ctx context.Context, id, text string) error
	DeleteMessage(ctx context.Context, id string) error
	ResetUnread(ctx context.Context, conversationID, uid string) error
}

// UserDirectory is the read-only lookup used to enrich conversation
// listings with peer display data
type UserDirectory interface {
	GetUsersByUID(ctx context.Context, uids []string) (map[string]*store.UserProfile, error)
}

// Broadcaster delivers events to a conversation's room
type Broadcaster interface {
	Broadcast(conversationID string, event realtime.Event)
}
