package testutil

import (
	"testing"
	"time"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func CreateUser(t *testing.T, db *gorm.DB, role models.Role) models.User {
	t.Helper()
	id := uuid.New()
	u := models.User{
		ID:       id,
		FullName: string(role) + " " + id.String()[:8],
		Email:    id.String() + "@example.com",
		Password: "x",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// CreateTeacher adds an active teacher profile with its user.
func CreateTeacher(t *testing.T, db *gorm.DB) models.Teacher {
	t.Helper()
	u := CreateUser(t, db, models.RoleTeacher)
	teacher := models.Teacher{UserID: u.ID, Status: models.TeacherStatusActive}
	require.NoError(t, db.Create(&teacher).Error)
	return teacher
}

func CreateSubject(t *testing.T, db *gorm.DB, pricePerHour string) models.Subject {
	t.Helper()
	s := models.Subject{
		Name:         "Subject " + uuid.NewString()[:8],
		PricePerHour: decimal.RequireFromString(pricePerHour),
		Currency:     "USD",
		IsActive:     true,
	}
	require.NoError(t, db.Create(&s).Error)
	return s
}

// AddAvailability declares a weekly window given as "15:04" clock times.
func AddAvailability(t *testing.T, db *gorm.DB, teacherID uuid.UUID, day time.Weekday, start, end string) models.TeacherAvailability {
	t.Helper()
	a := models.TeacherAvailability{
		TeacherID: teacherID,
		DayOfWeek: day,
		StartTime: Clock(t, start),
		EndTime:   Clock(t, end),
		IsActive:  true,
	}
	require.NoError(t, db.Create(&a).Error)
	return a
}

func Clock(t *testing.T, hhmm string) datatypes.Time {
	t.Helper()
	parsed, err := time.Parse("15:04", hhmm)
	require.NoError(t, err)
	return datatypes.NewTime(parsed.Hour(), parsed.Minute(), 0, 0)
}

func Date(t *testing.T, s string) datatypes.Date {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return datatypes.Date(parsed)
}
