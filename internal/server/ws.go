// ABOUTME: WebSocket session lifecycle: upgrade, read loop, write pump, event forwarding
// ABOUTME: One session per connection; a single write pump owns the socket for acks and broadcasts

package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/2389/duet-server/internal/realtime"
)

// sendQueueSize buffers outbound frames per connection; frames are
// dropped for connections that fall this far behind.
const sendQueueSize = 64

// session is one live websocket connection
type session struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger
}

// handleWS upgrades the connection and runs its read loop. Handlers
// for a single connection run sequentially in arrival order; the
// write pump serializes all outbound traffic.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sess := &session{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}
	sess.logger = s.logger.With("conn_id", sess.id)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := s.router.Register(sess.id)
	defer s.router.Unregister(sess.id)

	go sess.writePump(ctx, s.writeTimeout)
	go sess.forwardEvents(events)

	sess.logger.Debug("websocket connected")
	s.readLoop(ctx, sess)
	sess.logger.Debug("websocket disconnected")
}

// readLoop decodes inbound frames and dispatches them one at a time
func (s *Server) readLoop(ctx context.Context, sess *session) {
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				sess.logger.Debug("read failed", "error", err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			sess.logger.Warn("dropping malformed frame", "error", err)
			continue
		}

		s.dispatch(ctx, sess, f)
	}
}

// forwardEvents pushes broadcast events from the realtime router into
// the session's send queue. Returns when the router closes the
// channel on unregister.
func (sess *session) forwardEvents(events <-chan realtime.Event) {
	for ev := range events {
		sess.write(outFrame{Event: ev.Name, Data: ev.Data})
	}
}

// write marshals a frame onto the send queue. Non-blocking: frames
// are dropped when the queue is full rather than stalling other
// connections.
func (sess *session) write(f outFrame) {
	data, err := json.Marshal(f)
	if err != nil {
		sess.logger.Error("marshaling frame failed", "error", err, "event", f.Event)
		return
	}

	select {
	case sess.send <- data:
	default:
		sess.logger.Warn("send queue full, dropping frame", "event", f.Event)
	}
}

// reply sends an ack response for a request frame
func (sess *session) reply(ackID int64, data any) {
	sess.write(outFrame{Ack: &ackID, Data: data})
}

// writePump owns the socket's write side
func (sess *session) writePump(ctx context.Context, writeTimeout time.Duration) {
	for {
		select {
		case data := <-sess.send:
			if err := sess.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				sess.logger.Debug("write failed", "error", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
