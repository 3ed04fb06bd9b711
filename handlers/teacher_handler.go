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
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TeacherApplicationRequest struct {
	Headline string `json:"headline" validate:"required,max=255"`
	Bio      string `json:"bio" validate:"required"`
}

func ApplyToBeATeacher(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}

	var req TeacherApplicationRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}

	var existing models.Teacher
	err := database.DB.Where("user_id = ?", actor.ID).First(&existing).Error
	if err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "You have already submitted an application."})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return respondError(c, err)
	}

	application := models.Teacher{
		UserID:   actor.ID,
		Headline: &req.Headline,
		Bio:      &req.Bio,
		Status:   models.TeacherStatusPending,
	}
	if err := database.DB.Create(&application).Error; err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(application)
}

type AvailabilityRequest struct {
	DayOfWeek *int   `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime string `json:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" validate:"required,hhmm"`
	IsActive  *bool  `json:"is_active"`
}

func (r AvailabilityRequest) window() (scheduling.Range, bool) {
	start, _ := scheduling.ParseClock(r.StartTime)
	end, _ := scheduling.ParseClock(r.EndTime)
	w := scheduling.Range{Start: start, End: end}
	return w, w.Valid()
}

func CreateAvailability(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var req AvailabilityRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	window, ok := req.window()
	if !ok {
		return badRequest(c, "Start time must be before end time")
	}

	slot := models.TeacherAvailability{
		TeacherID: actor.ID,
		DayOfWeek: time.Weekday(*req.DayOfWeek),
		StartTime: window.Start,
		EndTime:   window.End,
		IsActive:  req.IsActive == nil || *req.IsActive,
	}
	if err := database.DB.Create(&slot).Error; err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(slot)
}

func GetMyAvailability(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	slots := []models.TeacherAvailability{}
	err := database.DB.Where("teacher_id = ?", actor.ID).Order("day_of_week, start_time").Find(&slots).Error
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(slots)
}

func UpdateAvailability(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramUUID(c, "slotId")
	if !ok {
		return badRequest(c, "Invalid availability ID")
	}
	var req AvailabilityRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	window, ok := req.window()
	if !ok {
		return badRequest(c, "Start time must be before end time")
	}

	var slot models.TeacherAvailability
	if err := database.DB.First(&slot, "id = ? AND teacher_id = ?", id, actor.ID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Availability not found"})
	}
	slot.DayOfWeek = time.Weekday(*req.DayOfWeek)
	slot.StartTime = window.Start
	slot.EndTime = window.End
	if req.IsActive != nil {
		slot.IsActive = *req.IsActive
	}
	if err := database.DB.Save(&slot).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(slot)
}

// DeleteAvailability removes a window. Bookings already made inside it are kept.
func DeleteAvailability(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramUUID(c, "slotId")
	if !ok {
		return badRequest(c, "Invalid availability ID")
	}

	res := database.DB.Where("id = ? AND teacher_id = ?", id, actor.ID).Delete(&models.TeacherAvailability{})
	if res.Error != nil {
		return respondError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Availability not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type HolidayRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func SetHolidayMode(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var req HolidayRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}

	res := database.DB.Model(&models.Teacher{}).Where("user_id = ?", actor.ID).Update("holiday_mode", *req.Enabled)
	if res.Error != nil {
		return respondError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teacher profile not found"})
	}
	return c.JSON(fiber.Map{"holiday_mode": *req.Enabled})
}

func GetMyTeacherBookings(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	return listBookings(c, services.BookingFilter{TeacherID: &actor.ID})
}

type ApproveBookingRequest struct {
	MeetingLink string `json:"meeting_link" validate:"omitempty,url"`
}

func ApproveBooking(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid booking ID")
	}
	var req ApproveBookingRequest
	if len(c.Body()) > 0 {
		if ok, err := parseAndValidate(c, &req); !ok {
			return err
		}
	}

	booking, err := bookingTransition(func(tx *gorm.DB) (*models.Booking, error) {
		return services.ApproveBooking(tx, id, actor, req.MeetingLink)
	})
	if err != nil {
		return respondError(c, err)
	}
	go notifications.Dispatch(notifications.ForBooking(database.DB, notifications.BookingApproved, booking))
	return c.JSON(fiber.Map{"message": "Booking approved.", "booking": booking})
}

func RejectBooking(c *fiber.Ctx) error {
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
		return services.RejectBooking(tx, id, actor, req.Reason)
	})
	if err != nil {
		return respondError(c, err)
	}
	go notifications.Dispatch(notifications.ForBooking(database.DB, notifications.BookingRejected, booking, reasonLine(req.Reason)...))
	return c.JSON(fiber.Map{"message": "Booking rejected and refunded.", "booking": booking})
}

func CompleteBooking(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid booking ID")
	}

	booking, err := bookingTransition(func(tx *gorm.DB) (*models.Booking, error) {
		return services.CompleteBooking(tx, id, actor)
	})
	if err != nil {
		return respondError(c, err)
	}
	go notifications.Dispatch(notifications.ForBooking(database.DB, notifications.BookingCompleted, booking))
	return c.JSON(fiber.Map{"message": "Lesson marked as completed.", "booking": booking})
}

func MarkBookingMissed(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid booking ID")
	}
	var req ReasonRequest
	if len(c.Body()) > 0 {
		if ok, err := parseAndValidate(c, &req); !ok {
			return err
		}
	}

	booking, err := bookingTransition(func(tx *gorm.DB) (*models.Booking, error) {
		return services.MarkMissed(tx, id, actor, req.Reason)
	})
	if err != nil {
		return respondError(c, err)
	}
	go notifications.Dispatch(notifications.ForBooking(database.DB, notifications.BookingMissed, booking))
	return c.JSON(fiber.Map{"message": "Lesson marked as missed.", "booking": booking})
}

func GetTeacherEarnings(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	page := utils.ParsePage(c)
	earnings, total, err := services.ListEarnings(database.DB, actor.ID, page.Offset(), page.Limit())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.NewPage(c, page, earnings, len(earnings), total))
}

type RequestPayoutRequest struct {
	Amount         string                 `json:"amount" validate:"required,money"`
	PaymentMethod  string                 `json:"payment_method" validate:"required,oneof=bank_transfer mpesa paypal"`
	PaymentDetails map[string]interface{} `json:"payment_details"`
}

func RequestPayout(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var req RequestPayoutRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}

	in := services.PayoutInput{
		TeacherID:      actor.ID,
		Amount:         decimal.RequireFromString(req.Amount),
		PaymentMethod:  req.PaymentMethod,
		PaymentDetails: req.PaymentDetails,
	}
	var payout *models.PayoutRequest
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		payout, err = services.RequestPayout(tx, in)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}

	go notifications.Dispatch(notifications.ForPayout(database.DB, notifications.PayoutRequested, payout))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Payout request submitted successfully.",
		"payout":  payout,
	})
}

func GetMyPayoutRequests(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	page := utils.ParsePage(c)
	payouts, total, err := services.ListPayouts(database.DB, &actor.ID, models.PayoutStatus(c.Query("status")), page.Offset(), page.Limit())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.NewPage(c, page, payouts, len(payouts), total))
}
