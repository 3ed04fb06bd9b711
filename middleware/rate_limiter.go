package middleware

import (
	"time"

	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func GlobalRateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max(config.Int("RATE_LIMIT_PER_MINUTE"), 1),
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: tooManyRequests,
	})
}

// MoneyRateLimiter throttles endpoints that move funds, per authenticated user.
// Mount it after Protected so the token is available.
func MoneyRateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max(config.Int("MONEY_RATE_LIMIT_PER_MINUTE"), 1),
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if id, _, ok := CurrentUser(c); ok {
				return "money:" + id.String()
			}
			return "money:" + c.IP()
		},
		LimitReached: tooManyRequests,
	})
}

func tooManyRequests(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests, try again later"})
}
