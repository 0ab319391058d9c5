// ABOUTME: ConversationService: find-or-create, enriched listing, cascade delete
// ABOUTME: Consults the user directory read-only to attach peer display data

package dm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/duet-server/internal/store"
)

// ConversationSummary is one row of a user's conversation listing:
// the conversation plus the peer's profile and the caller's own
// unread count.
type ConversationSummary struct {
	ID              string             `json:"id"`
	Participants    [2]string          `json:"participants"`
	LastMessageText string             `json:"lastMessageText"`
	LastMessageAt   *time.Time         `json:"lastMessageAt"`
	Unread          int                `json:"unread"`
	OtherUser       *store.UserProfile `json:"otherUser"`
}

// ConversationService manages conversation lifecycle
type ConversationService struct {
	store  Store
	users  UserDirectory
	logger *slog.Logger
}

// NewConversationService creates a ConversationService. Pass nil
// logger for default.
func NewConversationService(st Store, users UserDirectory, logger *slog.Logger) *ConversationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationService{
		store:  st,
		users:  users,
		logger: logger.With("component", "conversations"),
	}
}

// Start finds or creates the conversation for the two users. Repeated
// and concurrent calls for the same pair, in either order, return the
// same record; an existing conversation comes back unchanged.
//
// Starting a conversation with oneself is not rejected; the pair just
// normalizes to a single uid. See DESIGN.md.
func (s *ConversationService) Start(ctx context.Context, userA, userB string) (*store.Conversation, error) {
	if userA == "" || userB == "" {
		return nil, fmt.Errorf("%w: both participant uids are required", ErrInvalidArgument)
	}

	conv, err := s.store.FindOrCreateConversation(ctx, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("finding or creating conversation: %w", err)
	}
	return conv, nil
}

// List returns the user's conversations ordered by most recent
// activity, each enriched with the peer's profile and the caller's
// unread count. Peers unknown to the directory come back with a nil
// OtherUser. Read-only.
func (s *ConversationService) List(ctx context.Context, userUID string) ([]*ConversationSummary, error) {
	if userUID == "" {
		return nil, fmt.Errorf("%w: userUid is required", ErrInvalidArgument)
	}

	convs, err := s.store.ListConversationsByUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	peerUIDs := make([]string, 0, len(convs))
	seen := make(map[string]bool)
	for _, conv := range convs {
		peer := conv.OtherParticipant(userUID)
		if peer != userUID && !seen[peer] {
			seen[peer] = true
			peerUIDs = append(peerUIDs, peer)
		}
	}

	peers, err := s.users.GetUsersByUID(ctx, peerUIDs)
	if err != nil {
		return nil, fmt.Errorf("looking up peers: %w", err)
	}

	summaries := make([]*ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summaries = append(summaries, &ConversationSummary{
			ID:              conv.ID,
			Participants:    conv.Participants,
			LastMessageText: conv.LastMessageText,
			LastMessageAt:   conv.LastMessageAt,
			Unread:          conv.Unread(userUID),
			OtherUser:       peers[conv.OtherParticipant(userUID)],
		})
	}
	return summaries, nil
}

// Delete removes the conversation and all of its messages, provided
// userUID is one of its participants. A non-participant (or unknown
// conversation) matches nothing and the call succeeds without
// touching anything.
func (s *ConversationService) Delete(ctx context.Context, conversationID, userUID string) error {
	if conversationID == "" || userUID == "" {
		return fmt.Errorf("%w: conversationId and userUid are required", ErrInvalidArgument)
	}

	matched, err := s.store.DeleteConversationByParticipant(ctx, conversationID, userUID)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if !matched {
		s.logger.Debug("conversation delete matched nothing",
			"conversation_id", conversationID,
			"user_uid", userUID)
	}
	return nil
}
