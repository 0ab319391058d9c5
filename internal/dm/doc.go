// Package dm implements the direct-messaging core services.
//
// # Services
//
// ConversationService owns conversation lifecycle: find-or-create per
// unordered participant pair, listings enriched with peer profiles
// and unread counts, and participant-scoped cascade delete.
//
// MessageService owns message lifecycle: send (which also moves the
// owning conversation's summary and unread counters in one atomic
// store operation), sender-only edit and delete, time-ordered
// listing, and conversation-level read marking.
//
// # Events
//
// State-changing message operations broadcast to the conversation's
// room through a Broadcaster after the store update succeeds:
// message, messageEdited, messageDeleted. Unread changes are pulled
// by clients, never pushed.
//
// # Errors
//
// Callers receive ErrInvalidArgument for missing/blank fields,
// store.ErrNotFound for absent conversations or messages, and
// ErrPermissionDenied when a non-sender edits or deletes. Everything
// else is a storage failure to be reported at the transport boundary.
package dm
