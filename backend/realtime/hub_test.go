package realtime

import (
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserRoom(t *testing.T) {
	assert.Equal(t, "user_1", UserRoom(1))
	assert.Equal(t, "user_42", UserRoom(42))
}

func TestPublishToEmptyRoomIsNoOp(t *testing.T) {
	hub := NewHub(log.New(io.Discard, "", 0))

	// Must not panic or block with nobody listening.
	hub.Publish(UserRoom(7), EventNewNotification, map[string]interface{}{"id": 1})
	assert.Zero(t, hub.RoomSize(UserRoom(7)))
}

func TestJoinLeave(t *testing.T) {
	hub := NewHub(log.New(io.Discard, "", 0))
	room := UserRoom(3)

	first := &session{}
	second := &session{}

	hub.join(room, first)
	hub.join(room, second)
	assert.Equal(t, 2, hub.RoomSize(room))

	// Joining twice does not double-count.
	hub.join(room, first)
	assert.Equal(t, 2, hub.RoomSize(room))

	hub.leave(room, first)
	assert.Equal(t, 1, hub.RoomSize(room))

	hub.leave(room, second)
	assert.Zero(t, hub.RoomSize(room))

	// The emptied room is dropped entirely.
	_, ok := hub.rooms[room]
	assert.False(t, ok)
}

func TestLeaveUnknownRoom(t *testing.T) {
	hub := NewHub(log.New(io.Discard, "", 0))
	hub.leave("user_99", &session{})
	assert.Zero(t, hub.RoomSize("user_99"))
}
