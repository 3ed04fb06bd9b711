package handlers

import (
	"time"

	"github.com/anjiri1684/tutor_marketplace/database"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/scheduling"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultDuration = 60
	maxDateWindow   = 60
)

type slotView struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func GetTeacherSlots(c *fiber.Ctx) error {
	teacherID, ok := paramUUID(c, "teacherId")
	if !ok {
		return badRequest(c, "Invalid teacher ID")
	}
	date, err := scheduling.ParseDate(c.Query("date"))
	if err != nil {
		return badRequest(c, "date must be a date as YYYY-MM-DD")
	}
	duration := c.QueryInt("duration", defaultDuration)
	if duration <= 0 {
		return badRequest(c, "duration must be positive")
	}

	slots, err := services.GetAvailableSlots(database.DB, teacherID, date, duration)
	if err != nil {
		return respondError(c, err)
	}
	views := make([]slotView, 0, len(slots))
	for _, s := range slots {
		views = append(views, slotView{StartTime: scheduling.Clock(s.Start), EndTime: scheduling.Clock(s.End)})
	}
	return c.JSON(fiber.Map{
		"date":             c.Query("date"),
		"duration_minutes": duration,
		"slots":            views,
	})
}

func GetTeacherAvailableDates(c *fiber.Ctx) error {
	teacherID, ok := paramUUID(c, "teacherId")
	if !ok {
		return badRequest(c, "Invalid teacher ID")
	}
	from := services.LocalDate(time.Now())
	if raw := c.Query("from"); raw != "" {
		d, err := scheduling.ParseDate(raw)
		if err != nil {
			return badRequest(c, "from must be a date as YYYY-MM-DD")
		}
		from = d
	}
	days := c.QueryInt("days", 14)
	if days <= 0 || days > maxDateWindow {
		return badRequest(c, "days must be between 1 and 60")
	}
	duration := c.QueryInt("duration", defaultDuration)
	if duration <= 0 {
		return badRequest(c, "duration must be positive")
	}

	dates, err := services.AvailableDates(database.DB, teacherID, from, days, duration)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, time.Time(d).Format("2006-01-02"))
	}
	return c.JSON(fiber.Map{"dates": out})
}

func ListActiveTeachers(c *fiber.Ctx) error {
	teachers := []models.Teacher{}
	err := database.DB.Preload("User").
		Where("status = ?", models.TeacherStatusActive).
		Order("avg_rating DESC").
		Find(&teachers).Error
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(teachers)
}

func ListSubjects(c *fiber.Ctx) error {
	subjects := []models.Subject{}
	if err := database.DB.Where("is_active = ?", true).Order("name").Find(&subjects).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(subjects)
}

func Health(c *fiber.Ctx) error {
	sqlDB, err := database.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.UserContext())
	}
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "database": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok", "time": time.Now().UTC()})
}
