package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ModificationType string

const (
	ModificationReschedule ModificationType = "reschedule"
	ModificationRebook     ModificationType = "rebook"
)

type ModificationStatus string

const (
	ModificationPending   ModificationStatus = "pending"
	ModificationApproved  ModificationStatus = "approved"
	ModificationRejected  ModificationStatus = "rejected"
	ModificationExpired   ModificationStatus = "expired"
	ModificationCancelled ModificationStatus = "cancelled"
	ModificationCompleted ModificationStatus = "completed"
)

var modificationTransitions = map[ModificationStatus][]ModificationStatus{
	ModificationPending:   {ModificationApproved, ModificationRejected, ModificationCancelled, ModificationExpired},
	ModificationApproved:  {ModificationCompleted, ModificationCancelled},
	ModificationRejected:  nil,
	ModificationExpired:   nil,
	ModificationCancelled: nil,
	ModificationCompleted: nil,
}

// ActiveModificationStatuses block a second request on the same booking.
var ActiveModificationStatuses = []ModificationStatus{ModificationPending, ModificationApproved}

func (s ModificationStatus) CanTransitionTo(next ModificationStatus) bool {
	for _, allowed := range modificationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ModificationStatus) IsTerminal() bool {
	return len(modificationTransitions[s]) == 0
}

type ModificationHistoryEntry struct {
	Action    string     `json:"action"`
	Notes     string     `json:"notes,omitempty"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

type BookingModification struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID   uuid.UUID          `gorm:"type:uuid;not null;index" json:"booking_id"`
	Type        ModificationType   `gorm:"size:20;not null" json:"type"`
	Status      ModificationStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	RequestedBy uuid.UUID          `gorm:"type:uuid;not null" json:"requested_by"`

	OriginalDate      datatypes.Date `gorm:"not null" json:"original_date"`
	OriginalStartTime datatypes.Time `gorm:"not null" json:"original_start_time"`
	OriginalEndTime   datatypes.Time `gorm:"not null" json:"original_end_time"`
	OriginalDuration  int            `gorm:"not null" json:"original_duration"`

	NewDate      datatypes.Date `gorm:"not null" json:"new_date"`
	NewStartTime datatypes.Time `gorm:"not null" json:"new_start_time"`
	NewEndTime   datatypes.Time `gorm:"not null" json:"new_end_time"`
	NewDuration  int            `gorm:"not null" json:"new_duration"`

	Reason       *string    `gorm:"type:text" json:"reason,omitempty"`
	ExpiresAt    time.Time  `gorm:"not null;index" json:"expires_at"`
	RespondedBy  *uuid.UUID `gorm:"type:uuid" json:"responded_by,omitempty"`
	RespondedAt  *time.Time `json:"responded_at,omitempty"`
	NewBookingID *uuid.UUID `gorm:"type:uuid" json:"new_booking_id,omitempty"`

	ModificationHistory datatypes.JSONSlice[ModificationHistoryEntry] `json:"modification_history"`

	Booking *Booking `gorm:"foreignKey:BookingID" json:"booking,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *BookingModification) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// IsExpired reports whether a pending request has passed its deadline.
func (m BookingModification) IsExpired(now time.Time) bool {
	return m.Status == ModificationPending && m.ExpiresAt.Before(now)
}

// AppendHistory records an audit entry in the embedded history log.
func (m *BookingModification) AppendHistory(action, notes string, userID *uuid.UUID, at time.Time) {
	m.ModificationHistory = append(m.ModificationHistory, ModificationHistoryEntry{
		Action:    action,
		Notes:     notes,
		UserID:    userID,
		Timestamp: at.UTC(),
	})
}
