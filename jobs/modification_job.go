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

func ExpireStaleModifications() {
	log.Println("Running job: ExpireStaleModifications...")
	expired, err := ExpireModifications(database.DB, time.Now())
	if err != nil {
		logging.Error("expire stale modifications", err, nil)
		return
	}
	if len(expired) > 0 {
		log.Printf("Expired %d modification request(s).", len(expired))
	}
	for i := range expired {
		go notifications.Dispatch(notifications.ForModification(database.DB, notifications.ModificationExpired, &expired[i]))
	}
}

func ExpireModifications(db *gorm.DB, now time.Time) ([]models.BookingModification, error) {
	var expired []models.BookingModification
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		expired, err = services.ExpireStaleModifications(tx, now)
		return err
	})
	return expired, err
}
