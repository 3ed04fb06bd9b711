package jobs

import (
	"log"
	"time"

	"github.com/anjiri1684/tutor_marketplace/database"
	"github.com/anjiri1684/tutor_marketplace/logging"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/notifications"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// MissedGrace is how long after its end an unfinished class is considered missed.
const MissedGrace = 15 * time.Minute

func liveBookingsBetween(db *gorm.DB, statuses []models.BookingStatus, from, to time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := db.Where("status IN ? AND booking_date BETWEEN ? AND ?",
		statuses, services.LocalDate(from), services.LocalDate(to)).
		Find(&bookings).Error
	return bookings, err
}

func MarkMissedBookings() {
	log.Println("Running job: MarkMissedBookings...")
	if n, err := MarkMissed(database.DB, time.Now()); err != nil {
		logging.Error("mark missed bookings", err, nil)
	} else if n > 0 {
		log.Printf("Marked %d booking(s) as missed.", n)
	}
}

// MarkMissed moves approved and upcoming bookings that ended more than MissedGrace ago to missed.
func MarkMissed(db *gorm.DB, now time.Time) (int, error) {
	loc := services.AppLocation()
	cutoff := now.Add(-MissedGrace)
	candidates, err := liveBookingsBetween(db,
		[]models.BookingStatus{models.BookingApproved, models.BookingUpcoming},
		now.AddDate(0, 0, -7), now)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, b := range candidates {
		if !b.EndsAt(loc).Before(cutoff) {
			continue
		}
		var missed *models.Booking
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			missed, err = services.MarkMissed(tx, b.ID, services.System, "not completed after the scheduled end")
			return err
		})
		if errors.Is(err, services.ErrInvalidTransition) {
			continue
		}
		if err != nil {
			logging.Error("mark booking missed", err, map[string]interface{}{"booking_id": b.ID})
			continue
		}
		count++
		go notifications.Dispatch(notifications.ForBooking(db, notifications.BookingMissed, missed))
	}
	return count, nil
}

func PromoteUpcomingBookings() {
	log.Println("Running job: PromoteUpcomingBookings...")
	if n, err := PromoteUpcoming(database.DB, time.Now()); err != nil {
		logging.Error("promote upcoming bookings", err, nil)
	} else if n > 0 {
		log.Printf("Marked %d booking(s) as upcoming.", n)
	}
}

// PromoteUpcoming moves approved bookings that start within the next 24 hours to upcoming.
func PromoteUpcoming(db *gorm.DB, now time.Time) (int, error) {
	loc := services.AppLocation()
	horizon := now.Add(24 * time.Hour)
	candidates, err := liveBookingsBetween(db, []models.BookingStatus{models.BookingApproved}, now, horizon)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, b := range candidates {
		starts := b.StartsAt(loc)
		if starts.Before(now) || starts.After(horizon) {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			_, err := services.MarkUpcoming(tx, b.ID)
			return err
		})
		if errors.Is(err, services.ErrInvalidTransition) {
			continue
		}
		if err != nil {
			logging.Error("promote booking", err, map[string]interface{}{"booking_id": b.ID})
			continue
		}
		count++
	}
	return count, nil
}

func RejectStalePendingBookings() {
	log.Println("Running job: RejectStalePendingBookings...")
	if n, err := RejectStalePending(database.DB, time.Now()); err != nil {
		logging.Error("reject stale pending bookings", err, nil)
	} else if n > 0 {
		log.Printf("Rejected %d unanswered booking(s).", n)
	}
}

// RejectStalePending rejects, with a refund, pending bookings whose start has passed
// without the teacher answering.
func RejectStalePending(db *gorm.DB, now time.Time) (int, error) {
	loc := services.AppLocation()
	candidates, err := liveBookingsBetween(db, []models.BookingStatus{models.BookingPending}, now.AddDate(0, 0, -30), now)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, b := range candidates {
		if b.StartsAt(loc).After(now) {
			continue
		}
		var rejected *models.Booking
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			rejected, err = services.RejectBooking(tx, b.ID, services.System, "not answered before the start time")
			return err
		})
		if errors.Is(err, services.ErrInvalidTransition) {
			continue
		}
		if err != nil {
			logging.Error("reject stale booking", err, map[string]interface{}{"booking_id": b.ID})
			continue
		}
		count++
		go notifications.Dispatch(notifications.ForBooking(db, notifications.BookingRejected, rejected, "The teacher did not answer in time."))
	}
	return count, nil
}
