package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PayoutStatus string

const (
	PayoutPending  PayoutStatus = "pending"
	PayoutApproved PayoutStatus = "approved"
	PayoutDeclined PayoutStatus = "declined"
	PayoutPaid     PayoutStatus = "paid"
)

var payoutTransitions = map[PayoutStatus][]PayoutStatus{
	PayoutPending:  {PayoutApproved, PayoutDeclined},
	PayoutApproved: {PayoutPaid},
	PayoutDeclined: nil,
	PayoutPaid:     nil,
}

func (s PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	for _, allowed := range payoutTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s PayoutStatus) Valid() bool {
	_, ok := payoutTransitions[s]
	return ok
}

func (s PayoutStatus) IsTerminal() bool {
	return len(payoutTransitions[s]) == 0
}

type PayoutRequest struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey" json:"uuid"`
	Reference      string            `gorm:"size:20;not null;unique" json:"reference"`
	TeacherID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"teacher_id"`
	Amount         decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency       string            `gorm:"size:3;not null" json:"currency"`
	Status         PayoutStatus      `gorm:"size:20;not null;default:'pending';index" json:"status"`
	PaymentMethod  string            `gorm:"size:30;not null" json:"payment_method"`
	PaymentDetails datatypes.JSONMap `json:"payment_details,omitempty"`
	AdminNotes     *string           `gorm:"type:text" json:"admin_notes,omitempty"`
	RequestDate    time.Time         `gorm:"not null" json:"request_date"`
	ProcessedBy    *uuid.UUID        `gorm:"type:uuid" json:"processed_by,omitempty"`
	ProcessedDate  *time.Time        `json:"processed_date,omitempty"`
	PaidAt         *time.Time        `json:"paid_at,omitempty"`
	TransactionID  *uuid.UUID        `gorm:"type:uuid" json:"transaction_id,omitempty"`

	Teacher *User `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
}

func (p *PayoutRequest) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
