// ABOUTME: In-memory room registry and fan-out for live connections
// ABOUTME: Maps connections to joined conversation rooms and broadcasts events to room members

package realtime

import (
	"log/slog"
	"sync"
)

// defaultBufferSize is the per-connection event channel buffer
const defaultBufferSize = 64

// Router tracks which conversation rooms each live connection has
// joined and delivers events to every connection in a room.
//
// Joining performs no participant check: a conversation ID works as a
// capability. Delivery is best-effort and at-most-once per connection
// joined at broadcast time; events are dropped for connections whose
// buffers are full.
type Router struct {
	mu     sync.RWMutex
	conns  map[string]chan Event          // connID -> delivery channel
	rooms  map[string]map[string]struct{} // conversationID -> connIDs
	joined map[string]map[string]struct{} // connID -> conversationIDs
	buffer int
	logger *slog.Logger
}

// NewRouter creates a Router. bufferSize <= 0 selects the default;
// pass nil logger for slog.Default.
func NewRouter(bufferSize int, logger *slog.Logger) *Router {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		conns:  make(map[string]chan Event),
		rooms:  make(map[string]map[string]struct{}),
		joined: make(map[string]map[string]struct{}),
		buffer: bufferSize,
		logger: logger.With("component", "realtime"),
	}
}

// Register adds a connection and returns its delivery channel. The
// channel is closed by Unregister. Registering an already-registered
// connection returns the existing channel.
func (r *Router) Register(connID string) <-chan Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.conns[connID]; ok {
		return ch
	}
	ch := make(chan Event, r.buffer)
	r.conns[connID] = ch

	r.logger.Debug("connection registered", "conn_id", connID)
	return ch
}

// Join adds the connection to the conversation's room. Idempotent;
// a no-op for unregistered connections.
func (r *Router) Join(connID, conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; !ok {
		r.logger.Debug("join from unregistered connection ignored", "conn_id", connID)
		return
	}

	if _, ok := r.rooms[conversationID]; !ok {
		r.rooms[conversationID] = make(map[string]struct{})
	}
	r.rooms[conversationID][connID] = struct{}{}

	if _, ok := r.joined[connID]; !ok {
		r.joined[connID] = make(map[string]struct{})
	}
	r.joined[connID][conversationID] = struct{}{}

	r.logger.Debug("joined room", "conn_id", connID, "conversation_id", conversationID)
}

// Broadcast delivers the event to every connection currently in the
// conversation's room, including the originator's connection.
// Non-blocking: the event is dropped for connections whose channels
// are full.
func (r *Router) Broadcast(conversationID string, event Event) {
	// Sends stay under the read lock: Unregister closes channels under
	// the write lock, so a send can never hit a closed channel. The
	// sends never block, so holding the lock here is fine.
	r.mu.RLock()
	defer r.mu.RUnlock()

	for connID := range r.rooms[conversationID] {
		ch, ok := r.conns[connID]
		if !ok {
			continue
		}
		select {
		case ch <- event:
		default:
			r.logger.Debug("dropped event for slow connection",
				"conversation_id", conversationID,
				"event", event.Name)
		}
	}
}

// Unregister removes the connection from every room it joined and
// closes its delivery channel. Safe to call for unknown connections.
func (r *Router) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)

	for conversationID := range r.joined[connID] {
		delete(r.rooms[conversationID], connID)
		if len(r.rooms[conversationID]) == 0 {
			delete(r.rooms, conversationID)
		}
	}
	delete(r.joined, connID)

	close(ch)
	r.logger.Debug("connection unregistered", "conn_id", connID)
}

// RoomSize reports how many connections are currently in the room
func (r *Router) RoomSize(conversationID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[conversationID])
}
