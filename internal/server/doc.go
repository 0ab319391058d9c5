// Package server exposes the messaging core over a persistent
// websocket connection per client.
//
// # Protocol
//
// Each inbound message is a JSON frame naming an event with a
// payload and an optional ack ID:
//
//	{"event": "sendMessage", "ack": 7, "data": {"conversationId": "...", "senderUid": "u1", "text": "hi"}}
//
// Request-response events are answered on the ack:
//
//	{"ack": 7, "data": {"ok": true, "message": {...}}}
//
// Failures reply {"ok": false, "error": "..."} and never close the
// connection. joinConversation and markConversationRead are
// fire-and-forget: no reply, failures only logged.
//
// Broadcasts pushed to room members carry an event name instead of
// an ack: message, messageEdited, messageDeleted.
//
// # Concurrency
//
// Frames from one connection are handled sequentially in arrival
// order; different connections proceed independently. A single write
// pump per connection serializes acks and broadcasts onto the socket
// and drops frames for connections that fall behind.
package server
