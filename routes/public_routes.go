package routes

import (
	"github.com/anjiri1684/tutor_marketplace/handlers"
	"github.com/gofiber/fiber/v2"
)

func PublicRoutes(app *fiber.App) {
	app.Get("/health", handlers.Health)

	api := app.Group("/api/v1")
	api.Get("/subjects", handlers.ListSubjects)
	api.Get("/teachers", handlers.ListActiveTeachers)
	api.Get("/teachers/:teacherId/slots", handlers.GetTeacherSlots)
	api.Get("/teachers/:teacherId/availability-dates", handlers.GetTeacherAvailableDates)

	api.Post("/webhooks/:gateway", handlers.HandlePaymentWebhook)
}
