// Package store provides persistent storage for duet-server using SQLite.
//
// # Data Models
//
//   - Conversation: two-party thread, unique per unordered participant
//     pair (stored as a sorted pair with a unique index)
//   - Message: a single message, ordered within its conversation by
//     created_at with rowid breaking ties
//   - UserProfile: read-only display data from the user directory
//
// # Concurrency
//
// Every read-modify-write the messaging core needs is expressed as a
// single SQL statement or transaction rather than a load-then-save:
//
//   - FindOrCreateConversation upserts on the participant-pair key, so
//     racing callers converge on one record
//   - RecordMessageSent updates the summary and increments unread
//     counters with "count = count + 1" in one transaction, so
//     concurrent sends never lose an increment
//
// Unread counters live in their own (conversation_id, user_uid) rows;
// an absent row means zero.
//
// # Timestamps
//
// Timestamps are stored as fixed-width UTC strings so lexicographic
// order equals chronological order.
package store
