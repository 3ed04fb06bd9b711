package services

import (
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrInvalidAmount            = errors.New("amount must be positive")
	ErrInvalidTransition        = errors.New("invalid status transition")
	ErrChildNotOwned            = errors.New("student is not linked to this guardian")
	ErrAllowanceExceeded        = errors.New("allowance exceeded for this period")
	ErrSlotUnavailable          = errors.New("time slot is not available")
	ErrTeacherOnHoliday         = errors.New("teacher is on holiday")
	ErrActiveModificationExists = errors.New("booking already has an active modification")
	ErrModificationExpired      = errors.New("modification request has expired")
	ErrNotFound                 = errors.New("record not found")
	ErrForbidden                = errors.New("not allowed to act on this record")
	ErrDuplicateEvent           = errors.New("event already processed")
	ErrBelowMinimumPayout       = errors.New("amount is below the minimum payout")
	ErrInvalidSetting           = errors.New("invalid setting value")
)

// IsUniqueViolation reports whether err is a unique constraint failure from either driver.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// notFound maps gorm's missing-row error onto ErrNotFound, keeping context.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(ErrNotFound, what)
	}
	return errors.Wrapf(err, "load %s", what)
}
