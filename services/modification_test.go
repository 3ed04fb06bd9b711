package services

import (
	"testing"
	"time"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/scheduling"
	"github.com/anjiri1684/tutor_marketplace/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func (m *marketplace) requestChange(t *testing.T, kind models.ModificationType, bookingID uuid.UUID, actor Actor, date, start string, minutes int) (*models.BookingModification, error) {
	t.Helper()
	in := ModificationInput{
		BookingID:       bookingID,
		NewDate:         testutil.Date(t, date),
		NewStartTime:    testutil.Clock(t, start),
		DurationMinutes: minutes,
		Reason:          "clash with school trip",
		Actor:           actor,
	}
	var mod *models.BookingModification
	err := run(m.db, func(tx *gorm.DB) error {
		var err error
		if kind == models.ModificationRebook {
			mod, err = CreateRebookRequest(tx, in)
		} else {
			mod, err = CreateRescheduleRequest(tx, in)
		}
		return err
	})
	return mod, err
}

func (m *marketplace) respond(t *testing.T, op func(tx *gorm.DB) (*models.BookingModification, error)) (*models.BookingModification, error) {
	t.Helper()
	var mod *models.BookingModification
	err := run(m.db, func(tx *gorm.DB) error {
		var err error
		mod, err = op(tx)
		return err
	})
	return mod, err
}

func (m *marketplace) approveAndComplete(t *testing.T, id uuid.UUID) *models.BookingModification {
	t.Helper()
	_, err := m.respond(t, func(tx *gorm.DB) (*models.BookingModification, error) {
		return ApproveModification(tx, id, m.teacherActor(), "fine by me")
	})
	require.NoError(t, err)
	done, err := m.respond(t, func(tx *gorm.DB) (*models.BookingModification, error) {
		return CompleteModification(tx, id, m.studentActor())
	})
	require.NoError(t, err)
	return done
}

func TestRescheduleMovesBooking(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "60")
	booking := m.book(t, "2030-01-07", "10:00", 60)

	mod, err := m.requestChange(t, models.ModificationReschedule, booking.ID, m.studentActor(), "2030-01-08", "14:00", 0)
	require.NoError(t, err)
	assert.Equal(t, models.ModificationPending, mod.Status)
	assert.Equal(t, 60, mod.NewDuration)
	assert.Equal(t, "15:00", scheduling.Clock(mod.NewEndTime))
	assert.Equal(t, mondayMorning.Add(48*time.Hour), mod.ExpiresAt.UTC())

	done := m.approveAndComplete(t, mod.ID)
	assert.Equal(t, models.ModificationCompleted, done.Status)
	require.NotNil(t, done.RespondedBy)
	assert.Equal(t, m.teacher.UserID, *done.RespondedBy)

	actions := make([]string, len(done.ModificationHistory))
	for i, h := range done.ModificationHistory {
		actions[i] = h.Action
	}
	assert.Equal(t, []string{ModActionRequested, ModActionApproved, ModActionCompleted}, actions)

	moved := reloadBooking(t, m.db, booking.ID)
	assert.Equal(t, "2030-01-08", time.Time(moved.BookingDate).Format("2006-01-02"))
	assert.Equal(t, "14:00", scheduling.Clock(moved.StartTime))
	assert.Equal(t, models.BookingPending, moved.Status)

	w := studentWallet(t, m.db, m.student.ID)
	assert.True(t, w.Balance.IsZero(), "same duration costs nothing extra")

	slots, err := GetAvailableSlots(m.db, m.teacher.UserID, testutil.Date(t, "2030-01-07"), 60)
	require.NoError(t, err)
	assert.Contains(t, slotStarts(slots), "10:00")
}

func TestRescheduleSettlesPriceDifference(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "100")
	booking := m.book(t, "2030-01-07", "10:00", 60)

	longer, err := m.requestChange(t, models.ModificationReschedule, booking.ID, m.studentActor(), "2030-01-07", "10:00", 90)
	require.NoError(t, err)
	m.approveAndComplete(t, longer.ID)

	w := studentWallet(t, m.db, m.student.ID)
	assertAmount(t, "10.00", w.Balance)
	assertAmount(t, "90.00", reloadBooking(t, m.db, booking.ID).Price)

	shorter, err := m.requestChange(t, models.ModificationReschedule, booking.ID, m.studentActor(), "2030-01-07", "13:00", 30)
	require.NoError(t, err)
	m.approveAndComplete(t, shorter.ID)

	w = studentWallet(t, m.db, m.student.ID)
	assertAmount(t, "70.00", w.Balance)
	assertBalanced(t, m.db, w)
}

func TestOnlyOneActiveModification(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "60")
	booking := m.book(t, "2030-01-07", "10:00", 60)

	first, err := m.requestChange(t, models.ModificationReschedule, booking.ID, m.studentActor(), "2030-01-08", "10:00", 0)
	require.NoError(t, err)

	_, err = m.requestChange(t, models.ModificationReschedule, booking.ID, m.teacherActor(), "2030-01-08", "12:00", 0)
	assert.ErrorIs(t, err, ErrActiveModificationExists)

	_, err = m.respond(t, func(tx *gorm.DB) (*models.BookingModification, error) {
		return RejectModification(tx, first.ID, m.teacherActor(), "busy")
	})
	require.NoError(t, err)

	_, err = m.requestChange(t, models.ModificationReschedule, booking.ID, m.teacherActor(), "2030-01-08", "12:00", 0)
	assert.NoError(t, err)
}

func TestModificationResponderRules(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "60")
	booking := m.book(t, "2030-01-07", "10:00", 60)
	outsider := Actor{ID: testutil.CreateUser(t, m.db, models.RoleStudent).ID, Role: models.RoleStudent}

	_, err := m.requestChange(t, models.ModificationReschedule, booking.ID, outsider, "2030-01-08", "10:00", 0)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = m.requestChange(t, models.ModificationReschedule, booking.ID, System, "2030-01-08", "10:00", 0)
	assert.ErrorIs(t, err, ErrForbidden)

	mod, err := m.requestChange(t, models.ModificationReschedule, booking.ID, m.studentActor(), "2030-01-08", "10:00", 0)
	require.NoError(t, err)

	_, err = m.respond(t, func(tx *gorm.DB) (*models.BookingModification, error) {
		return ApproveModification(tx, mod.ID, m.studentActor(), "")
	})
	assert.ErrorIs(t, err, ErrForbidden, "requester cannot approve")

	_, err = m.respond(t, func(tx *gorm.DB) (*models.BookingModification, error) {
		return ApproveModification(tx, mod.ID, outsider, "")
	})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = m.respond(t, func(tx *gorm.DB) (*models.BookingModification, error) {
		return CancelModification(tx, mod.ID, m.teacherActor(), "")
	})
	assert.ErrorIs(t, err, ErrForbidden, "only the requester cancels")

	_, err = m.respond(t, func(tx *gorm.DB) (*models.BookingModification, error) {
		return CompleteModification(tx, mod.ID, m.teacherActor())
	})
	assert.ErrorIs(t, err, ErrInvalidTransition, "pending cannot complete")

	cancelled, err := m.respond(t, func(tx *gorm.DB) (*models.BookingModification, error) {
		return CancelModification(tx, mod.ID, m.studentActor(), "never mind")
	})
	require.NoError(t, err)
	assert.Equal(t, models.ModificationCancelled, cancelled.Status)
}

func TestRescheduleRejectsTakenSlot(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "120")
	booking := m.book(t, "2030-01-07", "10:00", 60)
	m.book(t, "2030-01-07", "12:00", 60)

	_, err := m.requestChange(t, models.ModificationReschedule, booking.ID, m.studentActor(), "2030-01-07", "11:30", 60)
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	_, err = m.requestChange(t, models.ModificationReschedule, booking.ID, m.studentActor(), "2030-01-07", "10:00", 150)
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// the booking's own slot does not block it
	_, err = m.requestChange(t, models.ModificationReschedule, booking.ID, m.studentActor(), "2030-01-07", "10:30", 90)
	assert.NoError(t, err)
}

func TestModificationExpiresExactlyOnce(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "60")
	booking := m.book(t, "2030-01-21", "10:00", 60)

	mod, err := m.requestChange(t, models.ModificationReschedule, booking.ID, m.studentActor(), "2030-01-22", "10:00", 0)
	require.NoError(t, err)

	now := mondayMorning.Add(49 * time.Hour)
	setClock(t, now)

	stale := *mod
	expired, ok, err := ExpireByID(m.db, mod.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.ModificationExpired, expired.Status)

	_, ok, err = ExpireByID(m.db, mod.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ExpireIfDue(m.db, &stale, now)
	require.NoError(t, err)
	assert.False(t, ok, "a stale copy must not expire the row again")

	again, err := ExpireStaleModifications(m.db, now)
	require.NoError(t, err)
	assert.Empty(t, again)

	var entries int64
	require.NoError(t, m.db.Model(&models.BookingHistory{}).
		Where("booking_id = ? AND action = ?", booking.ID, "modification_expired").
		Count(&entries).Error)
	assert.EqualValues(t, 1, entries)

	_, err = m.respond(t, func(tx *gorm.DB) (*models.BookingModification, error) {
		return ApproveModification(tx, mod.ID, m.teacherActor(), "")
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestExpiredRequestIsRefusedAndReplaceable(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "60")
	booking := m.book(t, "2030-01-21", "10:00", 60)

	mod, err := m.requestChange(t, models.ModificationReschedule, booking.ID, m.studentActor(), "2030-01-22", "10:00", 0)
	require.NoError(t, err)
	setClock(t, mondayMorning.Add(72*time.Hour))

	_, err = m.respond(t, func(tx *gorm.DB) (*models.BookingModification, error) {
		return ApproveModification(tx, mod.ID, m.teacherActor(), "")
	})
	assert.ErrorIs(t, err, ErrModificationExpired)

	// a new request lazily expires the old one
	_, err = m.requestChange(t, models.ModificationReschedule, booking.ID, m.studentActor(), "2030-01-22", "11:00", 0)
	require.NoError(t, err)

	var stored models.BookingModification
	require.NoError(t, m.db.First(&stored, "id = ?", mod.ID).Error)
	assert.Equal(t, models.ModificationExpired, stored.Status)
}

func TestRebookMissedBookingCarriesPayment(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "60")
	booking := m.book(t, "2030-01-07", "10:00", 60)
	_, err := ApproveBooking(m.db, booking.ID, m.teacherActor(), "https://meet.example.com/x")
	require.NoError(t, err)

	_, err = m.requestChange(t, models.ModificationRebook, booking.ID, m.studentActor(), "2030-01-08", "10:00", 0)
	assert.ErrorIs(t, err, ErrInvalidTransition, "a live booking is rescheduled, not rebooked")

	_, err = MarkMissed(m.db, booking.ID, m.teacherActor(), "teacher unwell")
	require.NoError(t, err)

	mod, err := m.requestChange(t, models.ModificationRebook, booking.ID, m.studentActor(), "2030-01-08", "10:00", 0)
	require.NoError(t, err)
	done := m.approveAndComplete(t, mod.ID)
	require.NotNil(t, done.NewBookingID)

	rebooked := reloadBooking(t, m.db, *done.NewBookingID)
	assert.Equal(t, models.BookingApproved, rebooked.Status)
	assert.Equal(t, "2030-01-08", time.Time(rebooked.BookingDate).Format("2006-01-02"))
	require.NotNil(t, rebooked.MeetingLink)
	assert.Equal(t, models.BookingMissed, reloadBooking(t, m.db, booking.ID).Status)

	w := studentWallet(t, m.db, m.student.ID)
	assert.True(t, w.Balance.IsZero())
	assert.EqualValues(t, 1, ledgerCount(t, m.db, w, models.TxPayment), "no second charge")
	assertBalanced(t, m.db, w)
}

func (m *marketplace) miss(t *testing.T, id uuid.UUID) {
	t.Helper()
	_, err := ApproveBooking(m.db, id, m.teacherActor(), "")
	require.NoError(t, err)
	_, err = MarkMissed(m.db, id, m.teacherActor(), "")
	require.NoError(t, err)
}

func TestBookingIsRebookedOnlyOnce(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "60")
	booking := m.book(t, "2030-01-07", "10:00", 60)
	m.miss(t, booking.ID)

	mod, err := m.requestChange(t, models.ModificationRebook, booking.ID, m.studentActor(), "2030-01-08", "10:00", 0)
	require.NoError(t, err)
	done := m.approveAndComplete(t, mod.ID)

	_, err = m.requestChange(t, models.ModificationRebook, booking.ID, m.studentActor(), "2030-01-08", "12:00", 0)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	var approved int64
	require.NoError(t, m.db.Model(&models.Booking{}).Where("status = ?", models.BookingApproved).Count(&approved).Error)
	assert.EqualValues(t, 1, approved)

	// the replacement keeps the carried payment when it is missed and rebooked in turn
	replacement := reloadBooking(t, m.db, *done.NewBookingID)
	_, err = MarkMissed(m.db, replacement.ID, m.teacherActor(), "")
	require.NoError(t, err)
	again, err := m.requestChange(t, models.ModificationRebook, replacement.ID, m.studentActor(), "2030-01-14", "10:00", 0)
	require.NoError(t, err)
	m.approveAndComplete(t, again.ID)

	w := studentWallet(t, m.db, m.student.ID)
	assert.True(t, w.Balance.IsZero())
	assert.EqualValues(t, 1, ledgerCount(t, m.db, w, models.TxPayment))
	assertBalanced(t, m.db, w)
}

func TestRebookCarriesNetOfPartialRefund(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "150")
	booking := m.book(t, "2030-01-07", "10:00", 90)

	shorter, err := m.requestChange(t, models.ModificationReschedule, booking.ID, m.studentActor(), "2030-01-07", "10:00", 60)
	require.NoError(t, err)
	m.approveAndComplete(t, shorter.ID)
	assertAmount(t, "90.00", studentWallet(t, m.db, m.student.ID).Balance)

	m.miss(t, booking.ID)
	mod, err := m.requestChange(t, models.ModificationRebook, booking.ID, m.studentActor(), "2030-01-08", "10:00", 60)
	require.NoError(t, err)
	m.approveAndComplete(t, mod.ID)

	w := studentWallet(t, m.db, m.student.ID)
	assertAmount(t, "90.00", w.Balance)
	assert.EqualValues(t, 1, ledgerCount(t, m.db, w, models.TxPayment))
	assertBalanced(t, m.db, w)
}

func TestRebookLongerLessonChargesDifference(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "100")
	booking := m.book(t, "2030-01-07", "10:00", 60)
	m.miss(t, booking.ID)

	mod, err := m.requestChange(t, models.ModificationRebook, booking.ID, m.studentActor(), "2030-01-08", "10:00", 90)
	require.NoError(t, err)
	m.approveAndComplete(t, mod.ID)

	w := studentWallet(t, m.db, m.student.ID)
	assertAmount(t, "10.00", w.Balance)
	assertBalanced(t, m.db, w)
}

func TestRebookRefundedBookingChargesAgain(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "60")
	booking := m.book(t, "2030-01-07", "10:00", 60)
	_, err := CancelBooking(m.db, booking.ID, m.studentActor(), "")
	require.NoError(t, err)

	mod, err := m.requestChange(t, models.ModificationRebook, booking.ID, m.studentActor(), "2030-01-08", "10:00", 0)
	require.NoError(t, err)
	m.approveAndComplete(t, mod.ID)

	w := studentWallet(t, m.db, m.student.ID)
	assert.True(t, w.Balance.IsZero())
	assert.EqualValues(t, 2, ledgerCount(t, m.db, w, models.TxPayment))
	assert.EqualValues(t, 1, ledgerCount(t, m.db, w, models.TxRefund))
	assertBalanced(t, m.db, w)
}

func TestListAndPendingModifications(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "60")
	booking := m.book(t, "2030-01-07", "10:00", 60)
	mod, err := m.requestChange(t, models.ModificationReschedule, booking.ID, m.studentActor(), "2030-01-08", "10:00", 0)
	require.NoError(t, err)

	pending, err := PendingModificationsFor(m.db, m.teacher.UserID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, mod.ID, pending[0].ID)

	mods, err := ListModifications(m.db, booking.ID, m.studentActor())
	require.NoError(t, err)
	assert.Len(t, mods, 1)

	_, err = ListModifications(m.db, booking.ID, Actor{ID: uuid.New(), Role: models.RoleStudent})
	assert.ErrorIs(t, err, ErrForbidden)

	setClock(t, mondayMorning.Add(49*time.Hour))
	pending, err = PendingModificationsFor(m.db, m.teacher.UserID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
