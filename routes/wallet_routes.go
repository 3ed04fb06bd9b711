package routes

import (
	"github.com/anjiri1684/tutor_marketplace/handlers"
	"github.com/anjiri1684/tutor_marketplace/middleware"
	"github.com/gofiber/fiber/v2"
)

func WalletRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	wallet := api.Group("/wallet/me", middleware.Protected())
	wallet.Get("", handlers.GetMyWallet)
	wallet.Get("/transactions", handlers.GetMyTransactions)

	guardian := api.Group("/guardian", middleware.Protected(), middleware.GuardianRequired())
	guardian.Get("/wallet", handlers.GetMyWallet)
	guardian.Get("/children", handlers.GetMyChildren)
	guardian.Post("/children/:studentId/fund", middleware.MoneyRateLimiter(), handlers.FundChild)
}
