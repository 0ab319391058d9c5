// ABOUTME: Tests for the realtime Router
// ABOUTME: Verifies room-scoped delivery, idempotent joins, cleanup, and drop-on-full

package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/duet-server/internal/store"
)

func TestBroadcast_OnlyJoinedConnectionsReceive(t *testing.T) {
	r := NewRouter(0, nil)

	joined := r.Register("joined")
	bystander := r.Register("bystander")
	r.Join("joined", "conv-1")

	r.Broadcast("conv-1", NewMessageDeletedEvent("conv-1", "m1"))

	select {
	case ev := <-joined:
		assert.Equal(t, EventMessageDeleted, ev.Name)
		payload, ok := ev.Data.(MessageDeletedPayload)
		require.True(t, ok)
		assert.Equal(t, "m1", payload.MessageID)
	default:
		t.Fatal("joined connection did not receive the event")
	}

	select {
	case <-bystander:
		t.Fatal("bystander received an event for a room it never joined")
	default:
	}
}

func TestBroadcast_IncludesOriginator(t *testing.T) {
	r := NewRouter(0, nil)

	a := r.Register("a")
	b := r.Register("b")
	r.Join("a", "conv-1")
	r.Join("b", "conv-1")

	msg := &store.Message{ID: "m1", ConversationID: "conv-1", Text: "hi"}
	r.Broadcast("conv-1", NewMessageEvent(msg))

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case ev := <-ch:
			assert.Equal(t, EventMessage, ev.Name)
		default:
			t.Fatalf("connection %s did not receive the event", name)
		}
	}
}

func TestJoin_Idempotent(t *testing.T) {
	r := NewRouter(0, nil)

	ch := r.Register("a")
	r.Join("a", "conv-1")
	r.Join("a", "conv-1")

	assert.Equal(t, 1, r.RoomSize("conv-1"))

	r.Broadcast("conv-1", NewMessageDeletedEvent("conv-1", "m1"))
	<-ch
	select {
	case <-ch:
		t.Fatal("double join must not cause double delivery")
	default:
	}
}

func TestJoin_UnregisteredConnectionIgnored(t *testing.T) {
	r := NewRouter(0, nil)
	r.Join("ghost", "conv-1")
	assert.Equal(t, 0, r.RoomSize("conv-1"))
}

func TestRegister_Idempotent(t *testing.T) {
	r := NewRouter(0, nil)
	first := r.Register("a")
	second := r.Register("a")
	assert.Equal(t, first, second)
}

func TestUnregister_ClearsMembershipAndClosesChannel(t *testing.T) {
	r := NewRouter(0, nil)

	ch := r.Register("a")
	r.Join("a", "conv-1")
	r.Join("a", "conv-2")

	r.Unregister("a")

	_, open := <-ch
	assert.False(t, open, "delivery channel must be closed on unregister")
	assert.Equal(t, 0, r.RoomSize("conv-1"))
	assert.Equal(t, 0, r.RoomSize("conv-2"))

	// Unknown connection is a no-op
	r.Unregister("a")
}

func TestBroadcast_DropsForFullBuffer(t *testing.T) {
	r := NewRouter(1, nil)

	slow := r.Register("slow")
	r.Join("slow", "conv-1")

	r.Broadcast("conv-1", NewMessageDeletedEvent("conv-1", "m1"))
	r.Broadcast("conv-1", NewMessageDeletedEvent("conv-1", "m2"))

	ev := <-slow
	payload := ev.Data.(MessageDeletedPayload)
	assert.Equal(t, "m1", payload.MessageID)

	select {
	case <-slow:
		t.Fatal("second event should have been dropped")
	default:
	}
}

func TestBroadcast_EmptyRoomIsNoOp(t *testing.T) {
	r := NewRouter(0, nil)
	r.Broadcast("conv-1", NewMessageDeletedEvent("conv-1", "m1"))
}
