package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Subject struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string          `gorm:"size:100;not null;unique" json:"name"`
	PricePerHour decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price_per_hour"`
	Currency     string          `gorm:"size:3;not null;default:'USD'" json:"currency"`
	IsActive     bool            `gorm:"not null;default:true" json:"is_active"`
}

func (s *Subject) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// PriceFor returns the session price for a duration in minutes.
func (s Subject) PriceFor(durationMinutes int) decimal.Decimal {
	return s.PricePerHour.
		Mul(decimal.NewFromInt(int64(durationMinutes))).
		Div(decimal.NewFromInt(60)).
		Round(2)
}
