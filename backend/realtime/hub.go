// Package realtime delivers push events to per-user rooms over WebSocket.
// The hub is safe to use with zero connected sessions: publishing to an empty
// room is a silent no-op, so notification code paths work whether or not a
// live transport is attached.
package realtime

import (
	"fmt"
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
)

// EventNewNotification is pushed to a user's room for every persisted
// notification. Payload: {id, title, message, type, related_id, created_at}.
const EventNewNotification = "new_notification"

// UserRoom is the logical address for a user's sessions.
func UserRoom(userID uint) string {
	return fmt.Sprintf("user_%d", userID)
}

type session struct {
	conn *websocket.Conn
	mu   sync.Mutex // guards writes; the hub may publish from any request goroutine
}

func (s *session) send(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*session]struct{}
	logger *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*session]struct{}),
		logger: logger,
	}
}

func (h *Hub) join(room string, s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*session]struct{})
	}
	h.rooms[room][s] = struct{}{}
}

func (h *Hub) leave(room string, s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sessions, ok := h.rooms[room]; ok {
		delete(sessions, s)
		if len(sessions) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Publish sends an event to every session in the room. Delivery is
// best-effort: write failures are logged per session and never propagated.
func (h *Hub) Publish(room, event string, payload interface{}) {
	h.mu.RLock()
	sessions := make([]*session, 0, len(h.rooms[room]))
	for s := range h.rooms[room] {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	envelope := map[string]interface{}{
		"event": event,
		"data":  payload,
	}
	for _, s := range sessions {
		if err := s.send(envelope); err != nil && h.logger != nil {
			h.logger.Printf("realtime: push to %s failed: %v", room, err)
		}
	}
}

// RoomSize reports the number of sessions currently bound to a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
