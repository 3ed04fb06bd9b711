package routes

import (
	"github.com/anjiri1684/tutor_marketplace/handlers"
	"github.com/anjiri1684/tutor_marketplace/middleware"
	"github.com/gofiber/fiber/v2"
)

func BookingRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	booking := api.Group("/bookings", middleware.Protected())
	booking.Get("/me", middleware.StudentRequired(), handlers.GetMyBookings)
	booking.Post("", middleware.StudentRequired(), middleware.MoneyRateLimiter(), handlers.CreateBooking)
	booking.Get("/:id", handlers.GetBookingDetails)
	booking.Post("/:id/cancel", middleware.MoneyRateLimiter(), handlers.CancelBooking)
	booking.Post("/:id/reschedule", handlers.RescheduleBooking)
	booking.Post("/:id/rebook", middleware.MoneyRateLimiter(), handlers.RebookBooking)
	booking.Get("/:id/modifications", handlers.GetBookingModifications)

	mods := api.Group("/modifications", middleware.Protected())
	mods.Post("/:id/cancel", handlers.CancelModification)
	mods.Post("/:id/approve", handlers.ApproveModification)
	mods.Post("/:id/reject", handlers.RejectModification)
	mods.Post("/:id/complete", middleware.MoneyRateLimiter(), handlers.CompleteModification)
}
