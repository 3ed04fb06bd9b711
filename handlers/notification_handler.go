package handlers

import (
	"github.com/anjiri1684/tutor_marketplace/middleware"
	hub "github.com/anjiri1684/tutor_marketplace/websocket"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UpgradeNotifications admits authenticated websocket upgrades.
func UpgradeNotifications(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	id, _, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}
	c.Locals("user_id", id)
	return c.Next()
}

var ServeNotifications = websocket.New(func(conn *websocket.Conn) {
	id, ok := conn.Locals("user_id").(uuid.UUID)
	if !ok {
		_ = conn.WriteJSON(fiber.Map{"error": "Invalid user ID"})
		_ = conn.Close()
		return
	}
	hub.Serve(conn, id)
})
