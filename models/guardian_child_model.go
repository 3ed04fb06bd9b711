package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AllowancePeriod string

const (
	AllowanceNone    AllowancePeriod = "none"
	AllowanceWeekly  AllowancePeriod = "weekly"
	AllowanceMonthly AllowancePeriod = "monthly"
)

// GuardianChild links a guardian to a student they may fund, with an optional spending allowance.
type GuardianChild struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	GuardianID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_guardian_child" json:"guardian_id"`
	StudentID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_guardian_child" json:"student_id"`
	AllowanceAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"allowance_amount"`
	AllowancePeriod AllowancePeriod `gorm:"size:10;not null;default:'none'" json:"allowance_period"`
	SpentThisPeriod decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"spent_this_period"`
	PeriodStartedAt time.Time       `gorm:"not null" json:"period_started_at"`

	Student *User `gorm:"foreignKey:StudentID" json:"student,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (g *GuardianChild) BeforeCreate(tx *gorm.DB) error {
	ensureID(&g.ID)
	if g.PeriodStartedAt.IsZero() {
		g.PeriodStartedAt = time.Now()
	}
	return nil
}

// HasAllowance reports whether funding this child is capped.
func (g GuardianChild) HasAllowance() bool {
	return g.AllowancePeriod != AllowanceNone && g.AllowancePeriod != "" && g.AllowanceAmount.IsPositive()
}

// RollPeriod resets the spent counter when the allowance period has elapsed.
func (g *GuardianChild) RollPeriod(now time.Time) {
	var next time.Time
	switch g.AllowancePeriod {
	case AllowanceWeekly:
		next = g.PeriodStartedAt.AddDate(0, 0, 7)
	case AllowanceMonthly:
		next = g.PeriodStartedAt.AddDate(0, 1, 0)
	default:
		return
	}
	if !now.Before(next) {
		g.SpentThisPeriod = decimal.Zero
		g.PeriodStartedAt = now
	}
}

// RemainingAllowance is what can still be spent this period.
func (g GuardianChild) RemainingAllowance() decimal.Decimal {
	remaining := g.AllowanceAmount.Sub(g.SpentThisPeriod)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}
