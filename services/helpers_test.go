package services

import (
	"testing"
	"time"

	"github.com/anjiri1684/tutor_marketplace/cache"
	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// 2030-01-07 is a Monday.
var mondayMorning = time.Date(2030, 1, 7, 8, 0, 0, 0, time.UTC)

func setup(t *testing.T) *gorm.DB {
	t.Helper()
	config.Set("TIME_ZONE", "UTC")
	config.Set("SLOT_STEP_MINUTES", 30)
	UseSettingsCache(cache.NewMemory())
	setClock(t, mondayMorning)
	return testutil.OpenDB(t)
}

func setClock(t *testing.T, now time.Time) {
	t.Helper()
	prev := clock
	clock = func() time.Time { return now }
	t.Cleanup(func() { clock = prev })
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2))
}

func assertBalanced(t *testing.T, db *gorm.DB, w models.Wallet) {
	t.Helper()
	res, err := Reconcile(db, w)
	require.NoError(t, err)
	assert.True(t, res.Balanced, "balance %s, ledger %s", res.Balance, res.LedgerSum)
}

func ledgerCount(t *testing.T, db *gorm.DB, w models.Wallet, kind models.TransactionType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.UnifiedTransaction{}).
		Where("wallet_type = ? AND wallet_id = ? AND type = ?", w.WalletType(), w.WalletID(), kind).
		Count(&n).Error)
	return n
}

func studentWallet(t *testing.T, db *gorm.DB, studentID uuid.UUID) *models.StudentWallet {
	t.Helper()
	w, err := GetOrCreateStudentWallet(db, studentID)
	require.NoError(t, err)
	return w
}

func teacherWallet(t *testing.T, db *gorm.DB, teacherID uuid.UUID) *models.TeacherWallet {
	t.Helper()
	w, err := GetOrCreateTeacherWallet(db, teacherID)
	require.NoError(t, err)
	return w
}

// marketplace is one teacher open 09:00-17:00 on Mondays and Tuesdays, one student and a 60/hour subject.
type marketplace struct {
	db      *gorm.DB
	teacher models.Teacher
	student models.User
	subject models.Subject
}

func newMarketplace(t *testing.T) *marketplace {
	t.Helper()
	db := setup(t)
	teacher := testutil.CreateTeacher(t, db)
	testutil.AddAvailability(t, db, teacher.UserID, time.Monday, "09:00", "17:00")
	testutil.AddAvailability(t, db, teacher.UserID, time.Tuesday, "09:00", "17:00")
	return &marketplace{
		db:      db,
		teacher: teacher,
		student: testutil.CreateUser(t, db, models.RoleStudent),
		subject: testutil.CreateSubject(t, db, "60"),
	}
}

func (m *marketplace) teacherActor() Actor {
	return Actor{ID: m.teacher.UserID, Role: models.RoleTeacher}
}

func (m *marketplace) studentActor() Actor {
	return Actor{ID: m.student.ID, Role: models.RoleStudent}
}

func (m *marketplace) topUp(t *testing.T, amount string) {
	t.Helper()
	_, err := AddFunds(m.db, studentWallet(t, m.db, m.student.ID), dec(amount), "top up", Reference{})
	require.NoError(t, err)
}

func (m *marketplace) bookingInput(t *testing.T, date, start string, minutes int) CreateBookingInput {
	return CreateBookingInput{
		StudentID:       m.student.ID,
		TeacherID:       m.teacher.UserID,
		SubjectID:       m.subject.ID,
		Date:            testutil.Date(t, date),
		StartTime:       testutil.Clock(t, start),
		DurationMinutes: minutes,
	}
}

func (m *marketplace) tryBook(t *testing.T, date, start string, minutes int) (*models.Booking, error) {
	t.Helper()
	var booking *models.Booking
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = CreateBooking(tx, m.bookingInput(t, date, start, minutes))
		return err
	})
	return booking, err
}

func (m *marketplace) book(t *testing.T, date, start string, minutes int) *models.Booking {
	t.Helper()
	booking, err := m.tryBook(t, date, start, minutes)
	require.NoError(t, err)
	return booking
}

// run executes fn in a transaction, the way handlers call services.
func run(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.Transaction(fn)
}

func reloadBooking(t *testing.T, db *gorm.DB, id uuid.UUID) models.Booking {
	t.Helper()
	var b models.Booking
	require.NoError(t, db.First(&b, "id = ?", id).Error)
	return b
}
