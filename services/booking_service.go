package services

import (
	"fmt"
	"time"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/scheduling"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Actor is the user performing an operation. The zero Actor is the scheduler.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

var System = Actor{}

func (a Actor) IsSystem() bool { return a.ID == uuid.Nil }

func (a Actor) privileged() bool { return a.IsSystem() || a.Role == models.RoleAdmin }

func (a Actor) userID() *uuid.UUID {
	if a.IsSystem() {
		return nil
	}
	id := a.ID
	return &id
}

const (
	ActionCreated     = "created"
	ActionApproved    = "approved"
	ActionRejected    = "rejected"
	ActionCancelled   = "cancelled"
	ActionUpcoming    = "upcoming"
	ActionCompleted   = "completed"
	ActionMissed      = "missed"
	ActionRescheduled = "rescheduled"
	ActionRebooked    = "rebooked"
)

type CreateBookingInput struct {
	StudentID       uuid.UUID
	TeacherID       uuid.UUID
	SubjectID       uuid.UUID
	Date            datatypes.Date
	StartTime       datatypes.Time
	DurationMinutes int
	Notes           string
}

func recordHistory(tx *gorm.DB, bookingID uuid.UUID, modificationID *uuid.UUID, action string, from, to *models.BookingStatus, notes string, by *uuid.UUID) error {
	entry := models.BookingHistory{
		BookingID:      bookingID,
		ModificationID: modificationID,
		Action:         action,
		FromStatus:     from,
		ToStatus:       to,
		PerformedBy:    by,
	}
	if notes != "" {
		entry.Notes = &notes
	}
	return errors.Wrap(tx.Create(&entry).Error, "record booking history")
}

func statusPtr(s models.BookingStatus) *models.BookingStatus { return &s }

// CreateBooking books a free slot and charges the student's wallet for it.
func CreateBooking(tx *gorm.DB, in CreateBookingInput) (*models.Booking, error) {
	if in.DurationMinutes <= 0 {
		return nil, errors.New("duration must be positive")
	}

	var subject models.Subject
	if err := tx.First(&subject, "id = ? AND is_active = ?", in.SubjectID, true).Error; err != nil {
		return nil, notFound(err, "subject")
	}

	slot := scheduling.NewRange(in.StartTime, time.Duration(in.DurationMinutes)*time.Minute)
	teacher, err := reserveSlot(tx, in.TeacherID, in.Date, slot, nil)
	if err != nil {
		return nil, err
	}
	if teacher.Status != models.TeacherStatusActive {
		return nil, errors.Wrap(ErrNotFound, "teacher is not accepting bookings")
	}

	booking := models.Booking{
		StudentID:       in.StudentID,
		TeacherID:       in.TeacherID,
		SubjectID:       subject.ID,
		BookingDate:     in.Date,
		StartTime:       slot.Start,
		EndTime:         slot.End,
		DurationMinutes: in.DurationMinutes,
		Status:          models.BookingPending,
		Price:           subject.PriceFor(in.DurationMinutes),
		Currency:        subject.Currency,
	}
	if in.Notes != "" {
		booking.Notes = &in.Notes
	}
	if err := tx.Create(&booking).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrSlotUnavailable
		}
		return nil, errors.Wrap(err, "create booking")
	}

	if booking.Price.IsPositive() {
		wallet, err := GetOrCreateStudentWallet(tx, in.StudentID)
		if err != nil {
			return nil, err
		}
		desc := fmt.Sprintf("%s lesson on %s at %s", subject.Name, time.Time(in.Date).Format("2006-01-02"), scheduling.Clock(slot.Start))
		if _, err := DeductFunds(tx, wallet, booking.Price, desc, BookingRef(&booking)); err != nil {
			return nil, err
		}
	}

	if err := recordHistory(tx, booking.ID, nil, ActionCreated, nil, statusPtr(booking.Status), in.Notes, &in.StudentID); err != nil {
		return nil, err
	}
	return &booking, nil
}

func lockBooking(tx *gorm.DB, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "booking")
	}
	return &b, nil
}

// moveBooking applies a status transition and writes its history row.
func moveBooking(tx *gorm.DB, b *models.Booking, next models.BookingStatus, action string, actor Actor, notes string) error {
	if !b.Status.CanTransitionTo(next) {
		return errors.Wrapf(ErrInvalidTransition, "booking is %s, cannot become %s", b.Status, next)
	}
	from := b.Status
	b.Status = next
	if err := tx.Save(b).Error; err != nil {
		return errors.Wrap(err, "save booking")
	}
	return recordHistory(tx, b.ID, nil, action, &from, &next, notes, actor.userID())
}

func ensureTeacher(b *models.Booking, actor Actor) error {
	if actor.privileged() || b.TeacherID == actor.ID {
		return nil
	}
	return ErrForbidden
}

func ensureParticipant(b *models.Booking, actor Actor) error {
	if actor.privileged() || b.TeacherID == actor.ID || b.StudentID == actor.ID {
		return nil
	}
	return ErrForbidden
}

func refundBooking(tx *gorm.DB, b *models.Booking, reason string) error {
	if !b.Price.IsPositive() {
		return nil
	}
	wallet, err := GetOrCreateStudentWallet(tx, b.StudentID)
	if err != nil {
		return err
	}
	_, err = AddRefund(tx, wallet, b.Price, reason, BookingRef(b))
	return err
}

// netPaid is what the student has paid for the booking after refunds, plus whatever
// was carried over from the booking it replaced through a rebook. Never negative.
func netPaid(tx *gorm.DB, b *models.Booking) (decimal.Decimal, error) {
	var row struct{ Total decimal.Decimal }
	err := tx.Model(&models.UnifiedTransaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("wallet_type = ? AND type IN ? AND reference_type = ? AND reference_id = ?",
			models.WalletStudent, []models.TransactionType{models.TxPayment, models.TxRefund}, RefBooking, b.ID).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "sum booking payments")
	}
	paid := row.Total.Neg()

	var origin models.BookingModification
	err = tx.Where("new_booking_id = ? AND type = ?", b.ID, models.ModificationRebook).Limit(1).Find(&origin).Error
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "load rebook origin")
	}
	if origin.ID != uuid.Nil {
		var previous models.Booking
		if err := tx.First(&previous, "id = ?", origin.BookingID).Error; err != nil {
			return decimal.Zero, notFound(err, "booking")
		}
		carried, err := netPaid(tx, &previous)
		if err != nil {
			return decimal.Zero, err
		}
		paid = paid.Add(carried)
	}

	if paid.IsNegative() {
		return decimal.Zero, nil
	}
	return paid.Round(2), nil
}

func ApproveBooking(tx *gorm.DB, id uuid.UUID, actor Actor, meetingLink string) (*models.Booking, error) {
	b, err := lockBooking(tx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureTeacher(b, actor); err != nil {
		return nil, err
	}
	if meetingLink != "" {
		b.MeetingLink = &meetingLink
	}
	if err := moveBooking(tx, b, models.BookingApproved, ActionApproved, actor, ""); err != nil {
		return nil, err
	}
	return b, nil
}

// RejectBooking declines a pending booking and refunds the student in full.
func RejectBooking(tx *gorm.DB, id uuid.UUID, actor Actor, reason string) (*models.Booking, error) {
	b, err := lockBooking(tx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureTeacher(b, actor); err != nil {
		return nil, err
	}
	if err := moveBooking(tx, b, models.BookingRejected, ActionRejected, actor, reason); err != nil {
		return nil, err
	}
	if err := refundBooking(tx, b, "Refund for rejected booking"); err != nil {
		return nil, err
	}
	return b, nil
}

// CancelBooking cancels a live booking. The student is refunded only when the class has not started.
func CancelBooking(tx *gorm.DB, id uuid.UUID, actor Actor, reason string) (*models.Booking, error) {
	b, err := lockBooking(tx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureParticipant(b, actor); err != nil {
		return nil, err
	}

	b.CancelledBy = actor.userID()
	if reason != "" {
		b.CancellationReason = &reason
	}
	if err := moveBooking(tx, b, models.BookingCancelled, ActionCancelled, actor, reason); err != nil {
		return nil, err
	}

	if clock().Before(b.StartsAt(AppLocation())) {
		if err := refundBooking(tx, b, "Refund for cancelled booking"); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func MarkUpcoming(tx *gorm.DB, id uuid.UUID) (*models.Booking, error) {
	b, err := lockBooking(tx, id)
	if err != nil {
		return nil, err
	}
	if err := moveBooking(tx, b, models.BookingUpcoming, ActionUpcoming, System, ""); err != nil {
		return nil, err
	}
	return b, nil
}

func MarkMissed(tx *gorm.DB, id uuid.UUID, actor Actor, notes string) (*models.Booking, error) {
	b, err := lockBooking(tx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureTeacher(b, actor); err != nil {
		return nil, err
	}
	if err := moveBooking(tx, b, models.BookingMissed, ActionMissed, actor, notes); err != nil {
		return nil, err
	}
	return b, nil
}

// CompleteBooking closes a class and credits the teacher's net earning.
// Completing an already completed booking returns it unchanged.
func CompleteBooking(tx *gorm.DB, id uuid.UUID, actor Actor) (*models.Booking, error) {
	b, err := lockBooking(tx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureTeacher(b, actor); err != nil {
		return nil, err
	}
	if b.Status == models.BookingCompleted {
		return b, nil
	}
	if clock().Before(b.StartsAt(AppLocation())) {
		return nil, errors.Wrap(ErrInvalidTransition, "class has not started yet")
	}
	if err := moveBooking(tx, b, models.BookingCompleted, ActionCompleted, actor, ""); err != nil {
		return nil, err
	}
	if _, err := recordEarning(tx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// recordEarning books the teacher's share of a completed booking once per booking.
func recordEarning(tx *gorm.DB, b *models.Booking) (*models.TeacherEarning, error) {
	var existing models.TeacherEarning
	err := tx.Where("booking_id = ?", b.ID).Take(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "load earning")
	}

	rate, err := commissionRate(tx)
	if err != nil {
		return nil, err
	}
	fee := b.Price.Mul(rate).Round(2)
	net := b.Price.Sub(fee)

	earning := models.TeacherEarning{
		TeacherID:   b.TeacherID,
		BookingID:   b.ID,
		GrossAmount: b.Price,
		PlatformFee: fee,
		NetAmount:   net,
		Currency:    b.Currency,
		Status:      "available",
		EarnedAt:    clock(),
	}
	if err := tx.Create(&earning).Error; err != nil {
		return nil, errors.Wrap(err, "create earning")
	}

	if !net.IsPositive() {
		return &earning, nil
	}

	bookingID := b.ID
	statement := models.Transaction{
		TeacherID: b.TeacherID,
		Type:      models.TeacherTxEarning,
		Amount:    net,
		Currency:  b.Currency,
		Status:    models.TxStatusCompleted,
		Reference: "BK-" + b.ID.String()[:8],
		BookingID: &bookingID,
	}
	if err := tx.Create(&statement).Error; err != nil {
		return nil, errors.Wrap(err, "create earning transaction")
	}

	wallet, err := GetOrCreateTeacherWallet(tx, b.TeacherID)
	if err != nil {
		return nil, err
	}
	if _, err := CreditEarning(tx, wallet, net, b); err != nil {
		return nil, err
	}
	return &earning, nil
}

// BookingFilter narrows booking listings; zero fields are ignored.
type BookingFilter struct {
	StudentID *uuid.UUID
	TeacherID *uuid.UUID
	Status    models.BookingStatus
	From      *datatypes.Date
	To        *datatypes.Date
}

func ListBookings(db *gorm.DB, f BookingFilter, offset, limit int) ([]models.Booking, int64, error) {
	q := db.Model(&models.Booking{})
	if f.StudentID != nil {
		q = q.Where("student_id = ?", *f.StudentID)
	}
	if f.TeacherID != nil {
		q = q.Where("teacher_id = ?", *f.TeacherID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("booking_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("booking_date <= ?", *f.To)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count bookings")
	}
	var bookings []models.Booking
	err := q.Preload("Subject").
		Order("booking_date DESC, start_time DESC").
		Offset(offset).Limit(limit).
		Find(&bookings).Error
	return bookings, total, errors.Wrap(err, "list bookings")
}

func BookingHistory(db *gorm.DB, bookingID uuid.UUID) ([]models.BookingHistory, error) {
	var entries []models.BookingHistory
	err := db.Where("booking_id = ?", bookingID).Order("created_at").Find(&entries).Error
	return entries, errors.Wrap(err, "load booking history")
}

// GetBooking loads a booking the actor takes part in.
func GetBooking(db *gorm.DB, id uuid.UUID, actor Actor) (*models.Booking, error) {
	var b models.Booking
	if err := db.Preload("Subject").First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "booking")
	}
	if err := ensureParticipant(&b, actor); err != nil {
		return nil, err
	}
	return &b, nil
}
