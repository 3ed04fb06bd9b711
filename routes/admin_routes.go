package routes

import (
	"github.com/anjiri1684/tutor_marketplace/handlers"
	"github.com/anjiri1684/tutor_marketplace/middleware"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(), middleware.AdminRequired())

	admin.Get("/applications/pending", handlers.ListPendingApplications)
	admin.Put("/applications/:teacherId", handlers.ManageApplication)

	subjects := admin.Group("/subjects")
	subjects.Post("", handlers.CreateSubject)
	subjects.Put("/:subjectId", handlers.UpdateSubject)

	admin.Get("/bookings", handlers.AdminGetAllBookings)
	admin.Post("/bookings/:id/cancel", handlers.CancelBooking)

	payouts := admin.Group("/payout-requests")
	payouts.Get("", handlers.ListPayoutRequests)
	payouts.Post("/:requestId/approve", handlers.ApprovePayout)
	payouts.Post("/:requestId/decline", handlers.DeclinePayout)
	payouts.Post("/:requestId/paid", handlers.MarkPayoutPaid)

	settings := admin.Group("/settings")
	settings.Get("", handlers.GetSettings)
	settings.Put("/:key", handlers.UpdateSetting)

	wallets := admin.Group("/wallets")
	wallets.Post("/credit", handlers.AdminCreditWallet)
	wallets.Get("/:walletType/:walletId/reconcile", handlers.ReconcileWallet)

	admin.Post("/guardian-children", handlers.LinkGuardianChild)
}
