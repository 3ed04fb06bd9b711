package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingApproved  BookingStatus = "approved"
	BookingRejected  BookingStatus = "rejected"
	BookingUpcoming  BookingStatus = "upcoming"
	BookingCompleted BookingStatus = "completed"
	BookingMissed    BookingStatus = "missed"
	BookingCancelled BookingStatus = "cancelled"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingApproved, BookingRejected, BookingCancelled},
	BookingApproved:  {BookingUpcoming, BookingCompleted, BookingMissed, BookingCancelled},
	BookingUpcoming:  {BookingCompleted, BookingMissed, BookingCancelled},
	BookingRejected:  nil,
	BookingCompleted: nil,
	BookingMissed:    nil,
	BookingCancelled: nil,
}

// LiveBookingStatuses occupy a teacher's time slot.
var LiveBookingStatuses = []BookingStatus{BookingPending, BookingApproved, BookingUpcoming}

func (s BookingStatus) Valid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

func (s BookingStatus) IsLive() bool {
	for _, live := range LiveBookingStatuses {
		if s == live {
			return true
		}
	}
	return false
}

type Booking struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"student_id"`
	TeacherID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_booking_teacher_slot,where:status <> 'cancelled' AND status <> 'rejected'" json:"teacher_id"`
	SubjectID       uuid.UUID       `gorm:"type:uuid;not null" json:"subject_id"`
	BookingDate     datatypes.Date  `gorm:"not null;uniqueIndex:idx_booking_teacher_slot" json:"booking_date"`
	StartTime       datatypes.Time  `gorm:"not null;uniqueIndex:idx_booking_teacher_slot" json:"start_time"`
	EndTime         datatypes.Time  `gorm:"not null" json:"end_time"`
	DurationMinutes int             `gorm:"not null" json:"duration_minutes"`
	Status          BookingStatus   `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Price           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Currency        string          `gorm:"size:3" json:"currency"`
	MeetingLink     *string         `gorm:"size:255" json:"meeting_link"`
	Notes           *string         `gorm:"type:text" json:"notes"`

	CancelledBy        *uuid.UUID `gorm:"type:uuid" json:"cancelled_by,omitempty"`
	CancellationReason *string    `gorm:"type:text" json:"cancellation_reason,omitempty"`

	Student *User    `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Teacher *User    `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
	Subject *Subject `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// StartsAt combines the booking date and start time in loc.
func (b Booking) StartsAt(loc *time.Location) time.Time {
	return combine(b.BookingDate, b.StartTime, loc)
}

func (b Booking) EndsAt(loc *time.Location) time.Time {
	return combine(b.BookingDate, b.EndTime, loc)
}

func combine(d datatypes.Date, t datatypes.Time, loc *time.Location) time.Time {
	y, m, day := time.Time(d).Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc).Add(time.Duration(t))
}
