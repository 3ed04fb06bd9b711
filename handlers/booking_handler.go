package handlers

import (
	"time"

	"github.com/anjiri1684/tutor_marketplace/database"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/notifications"
	"github.com/anjiri1684/tutor_marketplace/scheduling"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/anjiri1684/tutor_marketplace/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateBookingRequest struct {
	TeacherID       string `json:"teacher_id" validate:"required,uuid"`
	SubjectID       string `json:"subject_id" validate:"required,uuid"`
	Date            string `json:"date" validate:"required,isodate"`
	StartTime       string `json:"start_time" validate:"required,hhmm"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=15,max=240"`
	Notes           string `json:"notes" validate:"max=1000"`
}

type ReasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func CreateBooking(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}

	var req CreateBookingRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	date, _ := scheduling.ParseDate(req.Date)
	start, _ := scheduling.ParseClock(req.StartTime)

	in := services.CreateBookingInput{
		StudentID:       actor.ID,
		TeacherID:       uuid.MustParse(req.TeacherID),
		SubjectID:       uuid.MustParse(req.SubjectID),
		Date:            date,
		StartTime:       start,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	}

	var booking *models.Booking
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = services.CreateBooking(tx, in)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}

	go notifications.Dispatch(notifications.ForBooking(database.DB, notifications.BookingCreated, booking))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Booking request sent to the teacher.",
		"booking": booking,
	})
}

func GetMyBookings(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	return listBookings(c, services.BookingFilter{StudentID: &actor.ID})
}

// listBookings applies the status/from/to query filters on top of base.
func listBookings(c *fiber.Ctx, base services.BookingFilter) error {
	f := base
	if s := models.BookingStatus(c.Query("status")); s != "" {
		if !s.Valid() {
			return badRequest(c, "Unknown booking status")
		}
		f.Status = s
	}
	var err error
	if f.From, err = queryDate(c, "from"); err != nil {
		return badRequest(c, "from must be a date as YYYY-MM-DD")
	}
	if f.To, err = queryDate(c, "to"); err != nil {
		return badRequest(c, "to must be a date as YYYY-MM-DD")
	}

	page := utils.ParsePage(c)
	bookings, total, err := services.ListBookings(database.DB, f, page.Offset(), page.Limit())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.NewPage(c, page, bookings, len(bookings), total))
}

func GetBookingDetails(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid booking ID")
	}

	booking, err := services.GetBooking(database.DB, id, actor)
	if err != nil {
		return respondError(c, err)
	}
	history, err := services.BookingHistory(database.DB, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"booking": booking, "history": history})
}

func CancelBooking(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid booking ID")
	}
	var req ReasonRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}

	booking, err := bookingTransition(func(tx *gorm.DB) (*models.Booking, error) {
		return services.CancelBooking(tx, id, actor, req.Reason)
	})
	if err != nil {
		return respondError(c, err)
	}

	go notifications.Dispatch(notifications.ForBooking(database.DB, notifications.BookingCancelled, booking, reasonLine(req.Reason)...))
	return c.JSON(fiber.Map{"message": "Booking cancelled.", "booking": booking})
}

func bookingTransition(fn func(tx *gorm.DB) (*models.Booking, error)) (*models.Booking, error) {
	var booking *models.Booking
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = fn(tx)
		return err
	})
	return booking, err
}

func reasonLine(reason string) []string {
	if reason == "" {
		return nil
	}
	return []string{"Reason: " + reason}
}

type ModificationRequest struct {
	NewDate         string `json:"new_date" validate:"required,isodate"`
	NewStartTime    string `json:"new_start_time" validate:"required,hhmm"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,min=15,max=240"`
	Reason          string `json:"reason" validate:"max=500"`
}

func RescheduleBooking(c *fiber.Ctx) error {
	return requestModification(c, services.CreateRescheduleRequest)
}

func RebookBooking(c *fiber.Ctx) error {
	return requestModification(c, services.CreateRebookRequest)
}

func requestModification(c *fiber.Ctx, create func(*gorm.DB, services.ModificationInput) (*models.BookingModification, error)) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid booking ID")
	}
	var req ModificationRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	date, _ := scheduling.ParseDate(req.NewDate)
	start, _ := scheduling.ParseClock(req.NewStartTime)

	in := services.ModificationInput{
		BookingID:       id,
		NewDate:         date,
		NewStartTime:    start,
		DurationMinutes: req.DurationMinutes,
		Reason:          req.Reason,
		Actor:           actor,
	}

	var mod *models.BookingModification
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		mod, err = create(tx, in)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}

	go notifications.Dispatch(notifications.ForModification(database.DB, notifications.ModificationRequested, mod))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":      "Request sent. It expires at " + mod.ExpiresAt.Format(time.RFC3339) + ".",
		"modification": mod,
	})
}

func GetBookingModifications(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid booking ID")
	}

	var mods []models.BookingModification
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		mods, err = services.ListModifications(tx, id, actor)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	if mods == nil {
		mods = []models.BookingModification{}
	}
	return c.JSON(mods)
}
