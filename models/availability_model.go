package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TeacherAvailability is a recurring weekly window in which a teacher accepts bookings.
type TeacherAvailability struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TeacherID uuid.UUID      `gorm:"type:uuid;not null;index" json:"teacher_id"`
	DayOfWeek time.Weekday   `gorm:"not null" json:"day_of_week"`
	StartTime datatypes.Time `gorm:"not null" json:"start_time"`
	EndTime   datatypes.Time `gorm:"not null" json:"end_time"`
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *TeacherAvailability) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
