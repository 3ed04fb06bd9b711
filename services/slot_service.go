package services

import (
	"time"

	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/scheduling"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func slotStep() time.Duration {
	if m := config.Int("SLOT_STEP_MINUTES"); m > 0 {
		return time.Duration(m) * time.Minute
	}
	return scheduling.DefaultStep
}

// AppLocation is the zone booking dates and clock times are expressed in.
func AppLocation() *time.Location {
	if loc, err := time.LoadLocation(config.Config("TIME_ZONE")); err == nil {
		return loc
	}
	return time.UTC
}

func loadTeacher(db *gorm.DB, teacherID uuid.UUID, lock bool) (*models.Teacher, error) {
	var teacher models.Teacher
	q := db
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&teacher, "user_id = ?", teacherID).Error; err != nil {
		return nil, notFound(err, "teacher")
	}
	return &teacher, nil
}

func availabilityWindows(db *gorm.DB, teacherID uuid.UUID, day time.Weekday) ([]scheduling.Range, error) {
	var rows []models.TeacherAvailability
	err := db.Where("teacher_id = ? AND day_of_week = ? AND is_active = ?", teacherID, day, true).
		Order("start_time").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "load availability")
	}
	windows := make([]scheduling.Range, 0, len(rows))
	for _, r := range rows {
		windows = append(windows, scheduling.Range{Start: r.StartTime, End: r.EndTime})
	}
	return windows, nil
}

// busyRanges lists the live bookings of a teacher on date, optionally ignoring one booking.
func busyRanges(db *gorm.DB, teacherID uuid.UUID, date datatypes.Date, exclude *uuid.UUID) ([]scheduling.Range, error) {
	var bookings []models.Booking
	q := db.Select("id", "start_time", "end_time").
		Where("teacher_id = ? AND booking_date = ? AND status IN ?", teacherID, date, models.LiveBookingStatuses)
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}
	if err := q.Find(&bookings).Error; err != nil {
		return nil, errors.Wrap(err, "load bookings")
	}
	busy := make([]scheduling.Range, 0, len(bookings))
	for _, b := range bookings {
		busy = append(busy, scheduling.Range{Start: b.StartTime, End: b.EndTime})
	}
	return busy, nil
}

func dropPast(slots []scheduling.Range, date datatypes.Date, now time.Time) []scheduling.Range {
	loc := AppLocation()
	free := slots[:0]
	for _, s := range slots {
		starts := (models.Booking{BookingDate: date, StartTime: s.Start}).StartsAt(loc)
		if starts.After(now) {
			free = append(free, s)
		}
	}
	return free
}

func availableSlots(db *gorm.DB, teacher *models.Teacher, date datatypes.Date, duration time.Duration, exclude *uuid.UUID) ([]scheduling.Range, error) {
	if teacher.HolidayMode {
		return nil, nil
	}
	windows, err := availabilityWindows(db, teacher.UserID, time.Time(date).Weekday())
	if err != nil || len(windows) == 0 {
		return nil, err
	}
	busy, err := busyRanges(db, teacher.UserID, date, exclude)
	if err != nil {
		return nil, err
	}
	slots := scheduling.AvailableSlots(windows, busy, duration, slotStep())
	return dropPast(slots, date, clock()), nil
}

// GetAvailableSlots returns the bookable slots of durationMinutes for a teacher on date.
// A teacher on holiday or without a window for that weekday has none.
func GetAvailableSlots(db *gorm.DB, teacherID uuid.UUID, date datatypes.Date, durationMinutes int) ([]scheduling.Range, error) {
	if durationMinutes <= 0 {
		return nil, errors.New("duration must be positive")
	}
	teacher, err := loadTeacher(db, teacherID, false)
	if err != nil {
		return nil, err
	}
	return availableSlots(db, teacher, date, time.Duration(durationMinutes)*time.Minute, nil)
}

func HasAvailableSlotsOnDate(db *gorm.DB, teacherID uuid.UUID, date datatypes.Date, durationMinutes int) (bool, error) {
	slots, err := GetAvailableSlots(db, teacherID, date, durationMinutes)
	return len(slots) > 0, err
}

// AvailableDates returns the dates in [from, from+days) that still have at least one slot.
func AvailableDates(db *gorm.DB, teacherID uuid.UUID, from datatypes.Date, days, durationMinutes int) ([]datatypes.Date, error) {
	var dates []datatypes.Date
	for i := 0; i < days; i++ {
		date := datatypes.Date(time.Time(from).AddDate(0, 0, i))
		ok, err := HasAvailableSlotsOnDate(db, teacherID, date, durationMinutes)
		if err != nil {
			return nil, err
		}
		if ok {
			dates = append(dates, date)
		}
	}
	return dates, nil
}

// reserveSlot locks the teacher row and confirms the exact slot is still free.
// Bookings of the same teacher are serialized by that lock, so two callers cannot
// both see the slot as free.
func reserveSlot(tx *gorm.DB, teacherID uuid.UUID, date datatypes.Date, slot scheduling.Range, exclude *uuid.UUID) (*models.Teacher, error) {
	teacher, err := loadTeacher(tx, teacherID, true)
	if err != nil {
		return nil, err
	}
	if teacher.HolidayMode {
		return nil, ErrTeacherOnHoliday
	}
	slots, err := availableSlots(tx, teacher, date, slot.Duration(), exclude)
	if err != nil {
		return nil, err
	}
	for _, s := range slots {
		if s.Start == slot.Start {
			return teacher, nil
		}
	}
	return nil, errors.Wrapf(ErrSlotUnavailable, "%s %s", time.Time(date).Format("2006-01-02"), slot)
}

// LocalDate is the calendar date of t in the application time zone.
func LocalDate(t time.Time) datatypes.Date {
	y, m, d := t.In(AppLocation()).Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
