package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingHistory is the append-only audit trail for bookings and their modifications.
type BookingHistory struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"booking_id"`
	ModificationID *uuid.UUID     `gorm:"type:uuid;index" json:"modification_id,omitempty"`
	Action         string         `gorm:"size:50;not null" json:"action"`
	FromStatus     *BookingStatus `gorm:"size:20" json:"from_status,omitempty"`
	ToStatus       *BookingStatus `gorm:"size:20" json:"to_status,omitempty"`
	Notes          *string        `gorm:"type:text" json:"notes,omitempty"`
	PerformedBy    *uuid.UUID     `gorm:"type:uuid" json:"performed_by,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (h *BookingHistory) BeforeCreate(tx *gorm.DB) error {
	ensureID(&h.ID)
	return nil
}

func (h *BookingHistory) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableRecord
}
