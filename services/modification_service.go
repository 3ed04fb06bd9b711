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

const (
	ModActionRequested = "requested"
	ModActionApproved  = "approved"
	ModActionRejected  = "rejected"
	ModActionCancelled = "cancelled"
	ModActionExpired   = "expired"
	ModActionCompleted = "completed"
)

type ModificationInput struct {
	BookingID       uuid.UUID
	NewDate         datatypes.Date
	NewStartTime    datatypes.Time
	DurationMinutes int
	Reason          string
	Actor           Actor
}

func (in ModificationInput) slot(fallback int) scheduling.Range {
	minutes := in.DurationMinutes
	if minutes <= 0 {
		minutes = fallback
	}
	return scheduling.NewRange(in.NewStartTime, time.Duration(minutes)*time.Minute)
}

// CreateRescheduleRequest asks to move a live booking to a new date and time.
func CreateRescheduleRequest(tx *gorm.DB, in ModificationInput) (*models.BookingModification, error) {
	return createModification(tx, in, models.ModificationReschedule)
}

// CreateRebookRequest asks for a new booking in place of a cancelled or missed one.
func CreateRebookRequest(tx *gorm.DB, in ModificationInput) (*models.BookingModification, error) {
	return createModification(tx, in, models.ModificationRebook)
}

func createModification(tx *gorm.DB, in ModificationInput, kind models.ModificationType) (*models.BookingModification, error) {
	b, err := lockBooking(tx, in.BookingID)
	if err != nil {
		return nil, err
	}
	if in.Actor.IsSystem() || ensureParticipant(b, in.Actor) != nil {
		return nil, ErrForbidden
	}

	var exclude *uuid.UUID
	switch kind {
	case models.ModificationReschedule:
		if !b.Status.IsLive() {
			return nil, errors.Wrapf(ErrInvalidTransition, "cannot reschedule a %s booking", b.Status)
		}
		exclude = &b.ID
	case models.ModificationRebook:
		if b.Status != models.BookingCancelled && b.Status != models.BookingMissed {
			return nil, errors.Wrapf(ErrInvalidTransition, "cannot rebook a %s booking", b.Status)
		}
		var replaced int64
		err := tx.Model(&models.BookingModification{}).
			Where("booking_id = ? AND type = ? AND (status = ? OR new_booking_id IS NOT NULL)",
				b.ID, models.ModificationRebook, models.ModificationCompleted).
			Count(&replaced).Error
		if err != nil {
			return nil, errors.Wrap(err, "count rebooks")
		}
		if replaced > 0 {
			return nil, errors.Wrap(ErrInvalidTransition, "booking was already rebooked")
		}
	}

	now := clock()
	if _, err := expireDueForBooking(tx, b.ID, now); err != nil {
		return nil, err
	}

	var active int64
	err = tx.Model(&models.BookingModification{}).
		Where("booking_id = ? AND status IN ?", b.ID, models.ActiveModificationStatuses).
		Count(&active).Error
	if err != nil {
		return nil, errors.Wrap(err, "count active modifications")
	}
	if active > 0 {
		return nil, ErrActiveModificationExists
	}

	slot := in.slot(b.DurationMinutes)
	if _, err := reserveSlot(tx, b.TeacherID, in.NewDate, slot, exclude); err != nil {
		return nil, err
	}

	m := models.BookingModification{
		BookingID:         b.ID,
		Type:              kind,
		Status:            models.ModificationPending,
		RequestedBy:       in.Actor.ID,
		OriginalDate:      b.BookingDate,
		OriginalStartTime: b.StartTime,
		OriginalEndTime:   b.EndTime,
		OriginalDuration:  b.DurationMinutes,
		NewDate:           in.NewDate,
		NewStartTime:      slot.Start,
		NewEndTime:        slot.End,
		NewDuration:       int(slot.Duration() / time.Minute),
		ExpiresAt:         now.Add(modificationExpiry(tx)),
	}
	if in.Reason != "" {
		m.Reason = &in.Reason
	}
	m.AppendHistory(ModActionRequested, in.Reason, in.Actor.userID(), now)

	if err := tx.Create(&m).Error; err != nil {
		return nil, errors.Wrap(err, "create modification")
	}
	action := fmt.Sprintf("%s_requested", kind)
	if err := recordHistory(tx, b.ID, &m.ID, action, nil, nil, in.Reason, in.Actor.userID()); err != nil {
		return nil, err
	}
	return &m, nil
}

func lockModification(tx *gorm.DB, id uuid.UUID) (*models.BookingModification, error) {
	var m models.BookingModification
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "modification")
	}
	return &m, nil
}

// ExpireIfDue marks a pending modification expired once its deadline has passed.
// The update is conditional on the row still being pending and overdue, so
// concurrent callers expire it exactly once; it reports whether this call did.
func ExpireIfDue(tx *gorm.DB, m *models.BookingModification, now time.Time) (bool, error) {
	if !m.IsExpired(now) {
		return false, nil
	}

	history := append(datatypes.JSONSlice[models.ModificationHistoryEntry]{}, m.ModificationHistory...)
	history = append(history, models.ModificationHistoryEntry{Action: ModActionExpired, Timestamp: now.UTC()})

	res := tx.Model(&models.BookingModification{}).
		Where("id = ? AND status = ? AND expires_at < ?", m.ID, models.ModificationPending, now).
		Updates(map[string]interface{}{
			"status":               models.ModificationExpired,
			"modification_history": history,
			"updated_at":           now,
		})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "expire modification")
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	m.Status = models.ModificationExpired
	m.ModificationHistory = history
	if err := recordHistory(tx, m.BookingID, &m.ID, "modification_expired", nil, nil, "", nil); err != nil {
		return false, err
	}
	return true, nil
}

func expireDueForBooking(tx *gorm.DB, bookingID uuid.UUID, now time.Time) ([]models.BookingModification, error) {
	return expireWhere(tx, now, &bookingID)
}

// ExpireStaleModifications expires every overdue pending modification and returns those it expired.
func ExpireStaleModifications(tx *gorm.DB, now time.Time) ([]models.BookingModification, error) {
	return expireWhere(tx, now, nil)
}

func expireWhere(tx *gorm.DB, now time.Time, bookingID *uuid.UUID) ([]models.BookingModification, error) {
	var due []models.BookingModification
	q := tx.Where("status = ? AND expires_at < ?", models.ModificationPending, now)
	if bookingID != nil {
		q = q.Where("booking_id = ?", *bookingID)
	}
	if err := q.Find(&due).Error; err != nil {
		return nil, errors.Wrap(err, "load overdue modifications")
	}

	var expired []models.BookingModification
	for i := range due {
		ok, err := ExpireIfDue(tx, &due[i], now)
		if err != nil {
			return nil, err
		}
		if ok {
			expired = append(expired, due[i])
		}
	}
	return expired, nil
}

func loadForResponse(tx *gorm.DB, id uuid.UUID, actor Actor) (*models.BookingModification, *models.Booking, error) {
	m, err := lockModification(tx, id)
	if err != nil {
		return nil, nil, err
	}
	if m.IsExpired(clock()) {
		return nil, nil, ErrModificationExpired
	}
	b, err := lockBooking(tx, m.BookingID)
	if err != nil {
		return nil, nil, err
	}
	if ensureParticipant(b, actor) != nil {
		return nil, nil, ErrForbidden
	}
	return m, b, nil
}

// ensureResponder lets the other side of the booking, or an admin, answer a request.
func ensureResponder(m *models.BookingModification, actor Actor) error {
	if actor.privileged() || actor.ID != m.RequestedBy {
		return nil
	}
	return errors.Wrap(ErrForbidden, "requester cannot answer their own request")
}

func moveModification(tx *gorm.DB, m *models.BookingModification, next models.ModificationStatus, action string, actor Actor, notes string) error {
	if !m.Status.CanTransitionTo(next) {
		return errors.Wrapf(ErrInvalidTransition, "modification is %s, cannot become %s", m.Status, next)
	}
	now := clock()
	m.Status = next
	m.AppendHistory(action, notes, actor.userID(), now)
	if next == models.ModificationApproved || next == models.ModificationRejected {
		m.RespondedBy = actor.userID()
		m.RespondedAt = &now
	}
	if err := tx.Save(m).Error; err != nil {
		return errors.Wrap(err, "save modification")
	}
	return recordHistory(tx, m.BookingID, &m.ID, "modification_"+action, nil, nil, notes, actor.userID())
}

func ApproveModification(tx *gorm.DB, id uuid.UUID, actor Actor, notes string) (*models.BookingModification, error) {
	m, b, err := loadForResponse(tx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := ensureResponder(m, actor); err != nil {
		return nil, err
	}
	if !m.Status.CanTransitionTo(models.ModificationApproved) {
		return nil, errors.Wrapf(ErrInvalidTransition, "modification is %s, cannot become approved", m.Status)
	}
	if _, err := reserveSlot(tx, b.TeacherID, m.NewDate, newRange(m), excludeFor(m, b)); err != nil {
		return nil, err
	}
	if err := moveModification(tx, m, models.ModificationApproved, ModActionApproved, actor, notes); err != nil {
		return nil, err
	}
	return m, nil
}

func RejectModification(tx *gorm.DB, id uuid.UUID, actor Actor, notes string) (*models.BookingModification, error) {
	m, _, err := loadForResponse(tx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := ensureResponder(m, actor); err != nil {
		return nil, err
	}
	if err := moveModification(tx, m, models.ModificationRejected, ModActionRejected, actor, notes); err != nil {
		return nil, err
	}
	return m, nil
}

// CancelModification withdraws a pending or approved request. Only the requester or an admin may.
func CancelModification(tx *gorm.DB, id uuid.UUID, actor Actor, notes string) (*models.BookingModification, error) {
	m, err := lockModification(tx, id)
	if err != nil {
		return nil, err
	}
	if !actor.privileged() && actor.ID != m.RequestedBy {
		return nil, ErrForbidden
	}
	if m.IsExpired(clock()) {
		return nil, ErrModificationExpired
	}
	if err := moveModification(tx, m, models.ModificationCancelled, ModActionCancelled, actor, notes); err != nil {
		return nil, err
	}
	return m, nil
}

// CompleteModification applies an approved request: a reschedule moves the booking,
// a rebook creates the replacement booking and links it through new_booking_id.
func CompleteModification(tx *gorm.DB, id uuid.UUID, actor Actor) (*models.BookingModification, error) {
	m, b, err := loadForResponse(tx, id, actor)
	if err != nil {
		return nil, err
	}
	if !m.Status.CanTransitionTo(models.ModificationCompleted) {
		return nil, errors.Wrapf(ErrInvalidTransition, "modification is %s, cannot become completed", m.Status)
	}
	if _, err := reserveSlot(tx, b.TeacherID, m.NewDate, newRange(m), excludeFor(m, b)); err != nil {
		return nil, err
	}

	switch m.Type {
	case models.ModificationReschedule:
		err = applyReschedule(tx, m, b, actor)
	case models.ModificationRebook:
		err = applyRebook(tx, m, b, actor)
	default:
		err = errors.Errorf("unknown modification type %q", m.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := moveModification(tx, m, models.ModificationCompleted, ModActionCompleted, actor, ""); err != nil {
		return nil, err
	}
	return m, nil
}

func newRange(m *models.BookingModification) scheduling.Range {
	return scheduling.Range{Start: m.NewStartTime, End: m.NewEndTime}
}

func excludeFor(m *models.BookingModification, b *models.Booking) *uuid.UUID {
	if m.Type == models.ModificationReschedule {
		return &b.ID
	}
	return nil
}

// settlePrice charges or refunds the student the difference between what the
// new schedule costs and what has already been paid.
func settlePrice(tx *gorm.DB, b *models.Booking, paid, due decimal.Decimal, desc string) error {
	diff := due.Sub(paid)
	if diff.IsZero() {
		return nil
	}
	wallet, err := GetOrCreateStudentWallet(tx, b.StudentID)
	if err != nil {
		return err
	}
	if diff.IsPositive() {
		_, err = DeductFunds(tx, wallet, diff, desc, BookingRef(b))
	} else {
		_, err = AddRefund(tx, wallet, diff.Neg(), desc, BookingRef(b))
	}
	return err
}

func subjectPrice(tx *gorm.DB, subjectID uuid.UUID, minutes int) (decimal.Decimal, error) {
	var subject models.Subject
	if err := tx.First(&subject, "id = ?", subjectID).Error; err != nil {
		return decimal.Zero, notFound(err, "subject")
	}
	return subject.PriceFor(minutes), nil
}

func applyReschedule(tx *gorm.DB, m *models.BookingModification, b *models.Booking, actor Actor) error {
	if !b.Status.IsLive() {
		return errors.Wrapf(ErrInvalidTransition, "booking is %s and can no longer be rescheduled", b.Status)
	}

	paid := b.Price
	if m.NewDuration != b.DurationMinutes {
		price, err := subjectPrice(tx, b.SubjectID, m.NewDuration)
		if err != nil {
			return err
		}
		b.Price = price
	}

	b.BookingDate = m.NewDate
	b.StartTime = m.NewStartTime
	b.EndTime = m.NewEndTime
	b.DurationMinutes = m.NewDuration
	if err := tx.Save(b).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrSlotUnavailable
		}
		return errors.Wrap(err, "move booking")
	}

	if err := settlePrice(tx, b, paid, b.Price, "Price adjustment for rescheduled booking"); err != nil {
		return err
	}

	notes := fmt.Sprintf("moved from %s %s to %s %s",
		time.Time(m.OriginalDate).Format("2006-01-02"), scheduling.Clock(m.OriginalStartTime),
		time.Time(m.NewDate).Format("2006-01-02"), scheduling.Clock(m.NewStartTime))
	status := b.Status
	return recordHistory(tx, b.ID, &m.ID, ActionRescheduled, &status, &status, notes, actor.userID())
}

// applyRebook creates the replacement booking. Whatever the student still has paid
// for the original carries over, so only the difference is charged or refunded.
func applyRebook(tx *gorm.DB, m *models.BookingModification, original *models.Booking, actor Actor) error {
	price, err := subjectPrice(tx, original.SubjectID, m.NewDuration)
	if err != nil {
		return err
	}

	rebooked := models.Booking{
		StudentID:       original.StudentID,
		TeacherID:       original.TeacherID,
		SubjectID:       original.SubjectID,
		BookingDate:     m.NewDate,
		StartTime:       m.NewStartTime,
		EndTime:         m.NewEndTime,
		DurationMinutes: m.NewDuration,
		Status:          models.BookingPending,
		Price:           price,
		Currency:        original.Currency,
		MeetingLink:     original.MeetingLink,
	}
	if err := tx.Create(&rebooked).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrSlotUnavailable
		}
		return errors.Wrap(err, "create rebooked booking")
	}
	if err := recordHistory(tx, rebooked.ID, &m.ID, ActionCreated, nil, statusPtr(models.BookingPending), "rebooked from "+original.ID.String(), actor.userID()); err != nil {
		return err
	}
	if err := moveBooking(tx, &rebooked, models.BookingApproved, ActionApproved, actor, "approved through rebook"); err != nil {
		return err
	}

	paid, err := netPaid(tx, original)
	if err != nil {
		return err
	}
	if err := settlePrice(tx, &rebooked, paid, price, "Payment for rebooked lesson"); err != nil {
		return err
	}

	m.NewBookingID = &rebooked.ID
	status := original.Status
	return recordHistory(tx, original.ID, &m.ID, ActionRebooked, &status, &status, "replaced by "+rebooked.ID.String(), actor.userID())
}

// ListModifications expires overdue requests of the booking before returning them.
func ListModifications(tx *gorm.DB, bookingID uuid.UUID, actor Actor) ([]models.BookingModification, error) {
	if _, err := GetBooking(tx, bookingID, actor); err != nil {
		return nil, err
	}
	if _, err := expireDueForBooking(tx, bookingID, clock()); err != nil {
		return nil, err
	}
	var mods []models.BookingModification
	err := tx.Where("booking_id = ?", bookingID).Order("created_at DESC").Find(&mods).Error
	return mods, errors.Wrap(err, "list modifications")
}

// PendingModificationsFor lists requests waiting on a teacher's answer.
func PendingModificationsFor(tx *gorm.DB, teacherID uuid.UUID) ([]models.BookingModification, error) {
	if _, err := ExpireStaleModifications(tx, clock()); err != nil {
		return nil, err
	}
	var mods []models.BookingModification
	err := tx.Joins("Booking").
		Where("\"Booking\".teacher_id = ? AND booking_modifications.status = ?", teacherID, models.ModificationPending).
		Order("booking_modifications.created_at").
		Find(&mods).Error
	return mods, errors.Wrap(err, "list pending modifications")
}

// ExpireByID persists the expiry of one overdue request and reports whether this call expired it.
func ExpireByID(tx *gorm.DB, id uuid.UUID) (*models.BookingModification, bool, error) {
	m, err := lockModification(tx, id)
	if err != nil {
		return nil, false, err
	}
	ok, err := ExpireIfDue(tx, m, clock())
	return m, ok, err
}
