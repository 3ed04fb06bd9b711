package models

import (
	"time"

	"github.com/google/uuid"
)

type Teacher struct {
	UserID      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	Headline    *string    `gorm:"size:255" json:"headline"`
	Bio         *string    `gorm:"type:text" json:"bio"`
	Status      string     `gorm:"size:20;not null;default:'pending'" json:"status"`
	HolidayMode bool       `gorm:"not null;default:false" json:"holiday_mode"`
	AvgRating   float32    `gorm:"default:0" json:"avg_rating"`
	Subjects    []*Subject `gorm:"many2many:teacher_subjects;" json:"subjects,omitempty"`
	User        *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt   time.Time  `json:"-"`
	UpdatedAt   time.Time  `json:"-"`
}

const (
	TeacherStatusPending  = "pending"
	TeacherStatusActive   = "active"
	TeacherStatusRejected = "rejected"
)
