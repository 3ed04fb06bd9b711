package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/anjiri1684/tutor_marketplace/database"
	"github.com/anjiri1684/tutor_marketplace/logging"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

const signatureHeader = "X-Webhook-Signature"

// validSignature checks the hex HMAC-SHA256 of the body when WEBHOOK_SECRET is set.
func validSignature(c *fiber.Ctx) bool {
	secret := config.Config("WEBHOOK_SECRET")
	if secret == "" {
		return true
	}
	got, err := hex.DecodeString(c.Get(signatureHeader))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(c.Body())
	return hmac.Equal(got, mac.Sum(nil))
}

func HandlePaymentWebhook(c *fiber.Ctx) error {
	gateway := c.Params("gateway")
	if gateway == "" {
		return badRequest(c, "Gateway is required")
	}
	if !validSignature(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid webhook signature"})
	}

	body := append([]byte(nil), c.Body()...)
	event, err := services.ReceiveWebhook(database.DB, gateway, body)
	if errors.Is(err, services.ErrDuplicateEvent) {
		return c.JSON(fiber.Map{"message": "already processed", "status": event.Status})
	}
	if err != nil {
		if event == nil {
			return badRequest(c, err.Error())
		}
		logging.Error("webhook processing failed", err, map[string]interface{}{
			"gateway":  gateway,
			"event_id": event.EventID,
		})
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error(), "status": event.Status})
	}

	logging.Info("webhook processed", map[string]interface{}{"gateway": gateway, "event_id": event.EventID, "status": event.Status})
	return c.JSON(fiber.Map{"message": "processed", "status": event.Status})
}
