package routes

import (
	"github.com/anjiri1684/tutor_marketplace/handlers"
	"github.com/anjiri1684/tutor_marketplace/middleware"
	"github.com/gofiber/fiber/v2"
)

func ProfileRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	profile := api.Group("/profile/me", middleware.Protected())
	profile.Get("", handlers.GetProfile)
	profile.Put("", handlers.UpdateProfile)
	profile.Post("/teacher-application", handlers.ApplyToBeATeacher)
}

func NotificationRoutes(app *fiber.App) {
	app.Get("/ws/notifications", middleware.ProtectedQuery(), handlers.UpgradeNotifications, handlers.ServeNotifications)
}

// Register mounts every route group on app.
func Register(app *fiber.App) {
	PublicRoutes(app)
	ProfileRoutes(app)
	BookingRoutes(app)
	WalletRoutes(app)
	TeacherRoutes(app)
	AdminRoutes(app)
	NotificationRoutes(app)
}
