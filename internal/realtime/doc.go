// Package realtime provides in-memory fan-out of message events to
// live connections.
//
// A Router maps each registered connection to the conversation rooms
// it has joined. Broadcasts deliver an event to every connection in
// the room at broadcast time, including the originating one. Delivery
// is best-effort: sends never block, and events are dropped for
// connections whose buffers are full.
//
// Rooms are runtime state only. Membership is cleared when a
// connection unregisters, and no delivery acknowledgment is tracked.
package realtime
