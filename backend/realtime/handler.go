package realtime

import (
	"infoclass/backend/config"
	"infoclass/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type clientEvent struct {
	Event  string `json:"event"`
	UserID uint   `json:"user_id,omitempty"`
}

// UpgradeMiddleware authenticates the connecting session before the protocol
// upgrade. The token travels as a query parameter since browsers cannot set
// headers on WebSocket dials.
func UpgradeMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		userID, err := utils.ParseUserID(c.Query("token"), cfg)
		if err != nil {
			return fiber.ErrUnauthorized
		}
		c.Locals("user_id", userID)
		return c.Next()
	}
}

// Handler runs one long-lived connection per client session. A session may
// only ever occupy its own user's room: join/leave requests naming another
// user are ignored, so cross-user subscription is impossible.
func Handler(hub *Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("user_id").(uint)
		if userID == 0 {
			conn.Close()
			return
		}

		room := UserRoom(userID)
		s := &session{conn: conn}
		joined := false
		defer func() {
			if joined {
				hub.leave(room, s)
			}
			conn.Close()
		}()

		for {
			var event clientEvent
			if err := conn.ReadJSON(&event); err != nil {
				return
			}

			switch event.Event {
			case "join_user_room":
				if event.UserID != 0 && event.UserID != userID {
					continue // not your room
				}
				if !joined {
					hub.join(room, s)
					joined = true
				}
			case "leave_user_room":
				if event.UserID != 0 && event.UserID != userID {
					continue
				}
				if joined {
					hub.leave(room, s)
					joined = false
				}
			}
		}
	})
}
