package jobs

import (
	"log"
	"time"

	"github.com/anjiri1684/tutor_marketplace/database"
	"github.com/anjiri1684/tutor_marketplace/logging"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/notifications"
	"github.com/anjiri1684/tutor_marketplace/services"
	"gorm.io/gorm"
)

func SendClassReminders() {
	log.Println("Running job: SendClassReminders...")
	events, err := DueReminders(database.DB, time.Now())
	if err != nil {
		logging.Error("check upcoming classes", err, nil)
		return
	}
	for _, e := range events {
		go notifications.Dispatch(e)
	}
}

// DueReminders builds reminder events for classes starting 60 to 65 minutes after now.
// The window matches the job interval so each class is reminded once.
func DueReminders(db *gorm.DB, now time.Time) ([]notifications.Event, error) {
	loc := services.AppLocation()
	lower := now.Add(60 * time.Minute)
	upper := now.Add(65 * time.Minute)

	candidates, err := liveBookingsBetween(db,
		[]models.BookingStatus{models.BookingApproved, models.BookingUpcoming}, lower, upper)
	if err != nil {
		return nil, err
	}

	var events []notifications.Event
	for i := range candidates {
		b := &candidates[i]
		starts := b.StartsAt(loc)
		if starts.Before(lower) || !starts.Before(upper) {
			continue
		}
		log.Printf("Sending reminder for booking ID: %s", b.ID)
		events = append(events, notifications.ForBooking(db, notifications.BookingReminder, b))
	}
	return events, nil
}
