package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TeacherEarning struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TeacherID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"teacher_id"`
	BookingID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"booking_id"`
	GrossAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"gross_amount"`
	PlatformFee decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"platform_fee"`
	NetAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"net_amount"`
	Currency    string          `gorm:"size:3;not null" json:"currency"`
	Status      string          `gorm:"size:20;not null;default:'available'" json:"status"`
	EarnedAt    time.Time       `gorm:"not null" json:"earned_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (e *TeacherEarning) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
