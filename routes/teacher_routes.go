package routes

import (
	"github.com/anjiri1684/tutor_marketplace/handlers"
	"github.com/anjiri1684/tutor_marketplace/middleware"
	"github.com/gofiber/fiber/v2"
)

func TeacherRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	active := api.Group("/teacher", middleware.Protected(), middleware.TeacherRequired())
	active.Put("/holiday", handlers.SetHolidayMode)
	active.Get("/wallet", handlers.GetMyWallet)
	active.Get("/earnings", handlers.GetTeacherEarnings)
	active.Get("/modifications/pending", handlers.GetPendingModifications)

	availability := active.Group("/availability")
	availability.Post("", handlers.CreateAvailability)
	availability.Get("/me", handlers.GetMyAvailability)
	availability.Put("/:slotId", handlers.UpdateAvailability)
	availability.Delete("/:slotId", handlers.DeleteAvailability)

	bookings := active.Group("/bookings")
	bookings.Get("", handlers.GetMyTeacherBookings)
	bookings.Post("/:id/approve", handlers.ApproveBooking)
	bookings.Post("/:id/reject", middleware.MoneyRateLimiter(), handlers.RejectBooking)
	bookings.Post("/:id/complete", middleware.MoneyRateLimiter(), handlers.CompleteBooking)
	bookings.Post("/:id/missed", handlers.MarkBookingMissed)

	payouts := active.Group("/payouts")
	payouts.Post("", middleware.MoneyRateLimiter(), handlers.RequestPayout)
	payouts.Get("", handlers.GetMyPayoutRequests)
}
