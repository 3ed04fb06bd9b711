package handlers

import (
	"github.com/anjiri1684/tutor_marketplace/logging"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

var statusFor = []struct {
	target error
	status int
}{
	{services.ErrNotFound, fiber.StatusNotFound},
	{services.ErrForbidden, fiber.StatusForbidden},
	{services.ErrSlotUnavailable, fiber.StatusConflict},
	{services.ErrTeacherOnHoliday, fiber.StatusConflict},
	{services.ErrActiveModificationExists, fiber.StatusConflict},
	{services.ErrInsufficientBalance, fiber.StatusUnprocessableEntity},
	{services.ErrInvalidAmount, fiber.StatusUnprocessableEntity},
	{services.ErrInvalidTransition, fiber.StatusUnprocessableEntity},
	{services.ErrChildNotOwned, fiber.StatusUnprocessableEntity},
	{services.ErrAllowanceExceeded, fiber.StatusUnprocessableEntity},
	{services.ErrModificationExpired, fiber.StatusUnprocessableEntity},
	{services.ErrBelowMinimumPayout, fiber.StatusUnprocessableEntity},
	{services.ErrInvalidSetting, fiber.StatusUnprocessableEntity},
}

// respondError writes the JSON error for a service failure.
func respondError(c *fiber.Ctx, err error) error {
	for _, m := range statusFor {
		if errors.Is(err, m.target) {
			return c.Status(m.status).JSON(fiber.Map{"error": err.Error()})
		}
	}
	if services.IsUniqueViolation(err) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Record already exists"})
	}

	logging.Error("request failed", err, map[string]interface{}{
		"method": c.Method(),
		"path":   c.Path(),
	})
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
