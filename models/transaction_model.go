package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TeacherTransactionType string

const (
	TeacherTxEarning    TeacherTransactionType = "earning"
	TeacherTxWithdrawal TeacherTransactionType = "withdrawal"
)

// Transaction is the teacher-facing statement line for earnings and withdrawals.
type Transaction struct {
	ID              uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	TeacherID       uuid.UUID              `gorm:"type:uuid;not null;index" json:"teacher_id"`
	Type            TeacherTransactionType `gorm:"size:20;not null" json:"type"`
	Amount          decimal.Decimal        `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency        string                 `gorm:"size:3;not null" json:"currency"`
	Status          TransactionStatus      `gorm:"size:20;not null;default:'pending'" json:"status"`
	Reference       string                 `gorm:"size:50" json:"reference"`
	BookingID       *uuid.UUID             `gorm:"type:uuid" json:"booking_id,omitempty"`
	PayoutRequestID *uuid.UUID             `gorm:"type:uuid;uniqueIndex" json:"payout_request_id,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
