package services

import (
	"testing"
	"time"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/scheduling"
	"github.com/anjiri1684/tutor_marketplace/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func slotStarts(slots []scheduling.Range) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = scheduling.Clock(s.Start)
	}
	return out
}

func TestCreateBookingChargesStudent(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "100")

	booking := m.book(t, "2030-01-07", "10:00", 90)
	assert.Equal(t, models.BookingPending, booking.Status)
	assertAmount(t, "90.00", booking.Price)
	assert.Equal(t, "11:30", scheduling.Clock(booking.EndTime))

	w := studentWallet(t, m.db, m.student.ID)
	assertAmount(t, "10.00", w.Balance)
	assertBalanced(t, m.db, w)

	history, err := BookingHistory(m.db, booking.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ActionCreated, history[0].Action)
}

func TestCreateBookingRejectsConflicts(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "500")
	m.book(t, "2030-01-07", "10:00", 60)

	cases := []struct {
		name    string
		date    string
		start   string
		minutes int
		want    error
	}{
		{"same slot", "2030-01-07", "10:00", 60, ErrSlotUnavailable},
		{"overlapping slot", "2030-01-07", "10:30", 60, ErrSlotUnavailable},
		{"outside availability", "2030-01-07", "16:30", 60, ErrSlotUnavailable},
		{"no availability that day", "2030-01-09", "10:00", 60, ErrSlotUnavailable},
		{"before opening hours", "2030-01-07", "08:00", 60, ErrSlotUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.tryBook(t, tc.date, tc.start, tc.minutes)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	adjacent := m.book(t, "2030-01-07", "11:00", 60)
	assert.Equal(t, "12:00", scheduling.Clock(adjacent.EndTime))

	w := studentWallet(t, m.db, m.student.ID)
	assertAmount(t, "380.00", w.Balance)
	assertBalanced(t, m.db, w)
}

func TestCreateBookingRollsBackWithoutFunds(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "30")

	_, err := m.tryBook(t, "2030-01-07", "10:00", 60)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	var count int64
	require.NoError(t, m.db.Model(&models.Booking{}).Count(&count).Error)
	assert.Zero(t, count)

	slots, err := GetAvailableSlots(m.db, m.teacher.UserID, testutil.Date(t, "2030-01-07"), 60)
	require.NoError(t, err)
	assert.Contains(t, slotStarts(slots), "10:00")
}

func TestCreateBookingTeacherOnHoliday(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "100")
	require.NoError(t, m.db.Model(&models.Teacher{}).Where("user_id = ?", m.teacher.UserID).Update("holiday_mode", true).Error)

	_, err := m.tryBook(t, "2030-01-07", "10:00", 60)
	assert.ErrorIs(t, err, ErrTeacherOnHoliday)

	slots, err := GetAvailableSlots(m.db, m.teacher.UserID, testutil.Date(t, "2030-01-07"), 60)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGetAvailableSlotsSkipsBookedTime(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "100")
	m.book(t, "2030-01-07", "10:00", 60)

	slots, err := GetAvailableSlots(m.db, m.teacher.UserID, testutil.Date(t, "2030-01-07"), 60)
	require.NoError(t, err)
	starts := slotStarts(slots)
	assert.Contains(t, starts, "09:00")
	assert.NotContains(t, starts, "09:30")
	assert.NotContains(t, starts, "10:00")
	assert.NotContains(t, starts, "10:30")
	assert.Contains(t, starts, "11:00")
	assert.Equal(t, "16:00", starts[len(starts)-1])

	_, err = GetAvailableSlots(m.db, m.teacher.UserID, testutil.Date(t, "2030-01-07"), 0)
	assert.Error(t, err)
}

func TestGetAvailableSlotsDropsPastTimes(t *testing.T) {
	m := newMarketplace(t)
	setClock(t, time.Date(2030, 1, 7, 12, 15, 0, 0, time.UTC))

	slots, err := GetAvailableSlots(m.db, m.teacher.UserID, testutil.Date(t, "2030-01-07"), 60)
	require.NoError(t, err)
	assert.Equal(t, "12:30", slotStarts(slots)[0])
}

func TestAvailableDates(t *testing.T) {
	m := newMarketplace(t)

	dates, err := AvailableDates(m.db, m.teacher.UserID, testutil.Date(t, "2030-01-07"), 7, 60)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, time.Monday, time.Time(dates[0]).Weekday())
	assert.Equal(t, time.Tuesday, time.Time(dates[1]).Weekday())
}

func TestCancelBookingRefundsBeforeStart(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "60")
	booking := m.book(t, "2030-01-07", "10:00", 60)

	cancelled, err := CancelBooking(m.db, booking.ID, m.studentActor(), "changed plans")
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, m.student.ID, *cancelled.CancelledBy)

	w := studentWallet(t, m.db, m.student.ID)
	assertAmount(t, "60.00", w.Balance)
	assertBalanced(t, m.db, w)

	// the freed slot can be booked again
	m.book(t, "2030-01-07", "10:00", 60)
}

func TestCancelBookingAfterStartKeepsPayment(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "60")
	booking := m.book(t, "2030-01-07", "10:00", 60)
	setClock(t, time.Date(2030, 1, 7, 10, 5, 0, 0, time.UTC))

	_, err := CancelBooking(m.db, booking.ID, m.studentActor(), "")
	require.NoError(t, err)

	w := studentWallet(t, m.db, m.student.ID)
	assert.True(t, w.Balance.IsZero())
	assert.Zero(t, ledgerCount(t, m.db, w, models.TxRefund))
}

func TestCancelBookingPermissions(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "60")
	booking := m.book(t, "2030-01-07", "10:00", 60)
	outsider := testutil.CreateUser(t, m.db, models.RoleStudent)

	_, err := CancelBooking(m.db, booking.ID, Actor{ID: outsider.ID, Role: models.RoleStudent}, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = CancelBooking(m.db, booking.ID, m.teacherActor(), "")
	require.NoError(t, err)
	_, err = CancelBooking(m.db, booking.ID, m.studentActor(), "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRejectBookingRefunds(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "60")
	booking := m.book(t, "2030-01-07", "10:00", 60)

	_, err := RejectBooking(m.db, booking.ID, m.studentActor(), "")
	assert.ErrorIs(t, err, ErrForbidden)

	rejected, err := RejectBooking(m.db, booking.ID, m.teacherActor(), "unavailable")
	require.NoError(t, err)
	assert.Equal(t, models.BookingRejected, rejected.Status)

	w := studentWallet(t, m.db, m.student.ID)
	assertAmount(t, "60.00", w.Balance)
	assert.EqualValues(t, 1, ledgerCount(t, m.db, w, models.TxRefund))
}

func TestCompleteBookingCreditsTeacherOnce(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "100")
	_, err := Settings.Set(m.db, models.SettingCommissionRate, "0.25", "payouts")
	require.NoError(t, err)

	booking := m.book(t, "2030-01-07", "10:00", 60)
	_, err = ApproveBooking(m.db, booking.ID, m.teacherActor(), "https://meet.example.com/abc")
	require.NoError(t, err)

	_, err = CompleteBooking(m.db, booking.ID, m.teacherActor())
	assert.ErrorIs(t, err, ErrInvalidTransition, "class has not started")

	setClock(t, time.Date(2030, 1, 7, 11, 0, 0, 0, time.UTC))
	completed, err := CompleteBooking(m.db, booking.ID, m.teacherActor())
	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, completed.Status)

	_, err = CompleteBooking(m.db, booking.ID, m.teacherActor())
	require.NoError(t, err)

	var earnings []models.TeacherEarning
	require.NoError(t, m.db.Where("booking_id = ?", booking.ID).Find(&earnings).Error)
	require.Len(t, earnings, 1)
	assertAmount(t, "60.00", earnings[0].GrossAmount)
	assertAmount(t, "15.00", earnings[0].PlatformFee)
	assertAmount(t, "45.00", earnings[0].NetAmount)

	w := teacherWallet(t, m.db, m.teacher.UserID)
	assertAmount(t, "45.00", w.Balance)
	assertAmount(t, "45.00", w.TotalEarned)
	assert.EqualValues(t, 1, ledgerCount(t, m.db, w, models.TxEarning))
	assertBalanced(t, m.db, w)

	page, total, err := ListEarnings(m.db, m.teacher.UserID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, page, 1)
}

func TestBookingLifecycleTransitions(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "200")
	booking := m.book(t, "2030-01-07", "10:00", 60)

	_, err := MarkUpcoming(m.db, booking.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition, "pending cannot become upcoming")

	_, err = ApproveBooking(m.db, booking.ID, m.teacherActor(), "")
	require.NoError(t, err)
	_, err = MarkUpcoming(m.db, booking.ID)
	require.NoError(t, err)
	missed, err := MarkMissed(m.db, booking.ID, System, "no show")
	require.NoError(t, err)
	assert.Equal(t, models.BookingMissed, missed.Status)

	_, err = ApproveBooking(m.db, booking.ID, m.teacherActor(), "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	history, err := BookingHistory(m.db, booking.ID)
	require.NoError(t, err)
	actions := make([]string, len(history))
	for i, h := range history {
		actions[i] = h.Action
	}
	assert.Equal(t, []string{ActionCreated, ActionApproved, ActionUpcoming, ActionMissed}, actions)
	assert.Nil(t, history[3].PerformedBy)
}

func TestListAndGetBookings(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "200")
	first := m.book(t, "2030-01-07", "10:00", 60)
	m.book(t, "2030-01-08", "10:00", 60)
	_, err := CancelBooking(m.db, first.ID, m.studentActor(), "")
	require.NoError(t, err)

	all, total, err := ListBookings(m.db, BookingFilter{StudentID: &m.student.ID}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].Subject)

	cancelled, total, err := ListBookings(m.db, BookingFilter{TeacherID: &m.teacher.UserID, Status: models.BookingCancelled}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, first.ID, cancelled[0].ID)

	from := testutil.Date(t, "2030-01-08")
	later, total, err := ListBookings(m.db, BookingFilter{From: &from}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.NotEqual(t, first.ID, later[0].ID)

	_, err = GetBooking(m.db, first.ID, Actor{ID: testutil.CreateUser(t, m.db, models.RoleStudent).ID, Role: models.RoleStudent})
	assert.ErrorIs(t, err, ErrForbidden)
	got, err := GetBooking(m.db, first.ID, Actor{ID: testutil.CreateUser(t, m.db, models.RoleAdmin).ID, Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestConcurrentStyleDoubleBookingIsBlockedByIndex(t *testing.T) {
	m := newMarketplace(t)
	m.topUp(t, "100")
	booking := m.book(t, "2030-01-07", "10:00", 60)

	dup := models.Booking{
		StudentID:       m.student.ID,
		TeacherID:       m.teacher.UserID,
		SubjectID:       m.subject.ID,
		BookingDate:     booking.BookingDate,
		StartTime:       booking.StartTime,
		EndTime:         booking.EndTime,
		DurationMinutes: 60,
		Status:          models.BookingPending,
		Price:           booking.Price,
	}
	err := m.db.Transaction(func(tx *gorm.DB) error { return tx.Create(&dup).Error })
	assert.True(t, IsUniqueViolation(err), "got %v", err)
}
