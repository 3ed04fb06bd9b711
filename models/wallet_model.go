package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type WalletType string

const (
	WalletStudent  WalletType = "student"
	WalletTeacher  WalletType = "teacher"
	WalletGuardian WalletType = "guardian"
)

func (t WalletType) Valid() bool {
	switch t {
	case WalletStudent, WalletTeacher, WalletGuardian:
		return true
	}
	return false
}

// Wallet is the common ledger view over the three role wallets.
// Apply is only called by the ledger service, together with a UnifiedTransaction row.
type Wallet interface {
	WalletType() WalletType
	WalletID() uuid.UUID
	OwnerID() uuid.UUID
	CurrentBalance() decimal.Decimal
	WalletCurrency() string
	Apply(kind TransactionType, signed decimal.Decimal)
}

type StudentWallet struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"student_id"`
	Balance       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"balance"`
	TotalSpent    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_spent"`
	TotalRefunded decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_refunded"`
	Currency      string          `gorm:"size:3;not null;default:'USD'" json:"currency"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (w *StudentWallet) BeforeCreate(tx *gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

func (w *StudentWallet) WalletType() WalletType          { return WalletStudent }
func (w *StudentWallet) WalletID() uuid.UUID             { return w.ID }
func (w *StudentWallet) OwnerID() uuid.UUID              { return w.StudentID }
func (w *StudentWallet) CurrentBalance() decimal.Decimal { return w.Balance }
func (w *StudentWallet) WalletCurrency() string          { return w.Currency }

func (w *StudentWallet) Apply(kind TransactionType, signed decimal.Decimal) {
	w.Balance = w.Balance.Add(signed)
	switch kind {
	case TxPayment:
		w.TotalSpent = w.TotalSpent.Add(signed.Abs())
	case TxRefund:
		w.TotalRefunded = w.TotalRefunded.Add(signed.Abs())
	}
}

type TeacherWallet struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TeacherID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"teacher_id"`
	Balance        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"balance"`
	TotalEarned    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_earned"`
	TotalWithdrawn decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_withdrawn"`
	PendingPayouts decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"pending_payouts"`
	Currency       string          `gorm:"size:3;not null;default:'USD'" json:"currency"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (w *TeacherWallet) BeforeCreate(tx *gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

func (w *TeacherWallet) WalletType() WalletType          { return WalletTeacher }
func (w *TeacherWallet) WalletID() uuid.UUID             { return w.ID }
func (w *TeacherWallet) OwnerID() uuid.UUID              { return w.TeacherID }
func (w *TeacherWallet) CurrentBalance() decimal.Decimal { return w.Balance }
func (w *TeacherWallet) WalletCurrency() string          { return w.Currency }

func (w *TeacherWallet) Apply(kind TransactionType, signed decimal.Decimal) {
	w.Balance = w.Balance.Add(signed)
	switch kind {
	case TxEarning:
		w.TotalEarned = w.TotalEarned.Add(signed.Abs())
	case TxPayoutReserve:
		w.PendingPayouts = w.PendingPayouts.Add(signed.Abs())
	case TxPayoutRelease:
		w.PendingPayouts = w.PendingPayouts.Sub(signed.Abs())
	}
}

// SettlePendingPayout moves reserved funds out of the wallet once disbursed.
// Balance is untouched: it was already reduced when the payout was reserved.
func (w *TeacherWallet) SettlePendingPayout(amount decimal.Decimal) bool {
	if amount.GreaterThan(w.PendingPayouts) {
		return false
	}
	w.PendingPayouts = w.PendingPayouts.Sub(amount)
	w.TotalWithdrawn = w.TotalWithdrawn.Add(amount)
	return true
}

type GuardianWallet struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	GuardianID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"guardian_id"`
	Balance    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"balance"`
	TotalAdded decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_added"`
	TotalSpent decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_spent"`
	Currency   string          `gorm:"size:3;not null;default:'USD'" json:"currency"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (w *GuardianWallet) BeforeCreate(tx *gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

func (w *GuardianWallet) WalletType() WalletType          { return WalletGuardian }
func (w *GuardianWallet) WalletID() uuid.UUID             { return w.ID }
func (w *GuardianWallet) OwnerID() uuid.UUID              { return w.GuardianID }
func (w *GuardianWallet) CurrentBalance() decimal.Decimal { return w.Balance }
func (w *GuardianWallet) WalletCurrency() string          { return w.Currency }

func (w *GuardianWallet) Apply(kind TransactionType, signed decimal.Decimal) {
	w.Balance = w.Balance.Add(signed)
	switch kind {
	case TxDeposit:
		w.TotalAdded = w.TotalAdded.Add(signed.Abs())
	case TxFamilyTransfer, TxPayment:
		w.TotalSpent = w.TotalSpent.Add(signed.Abs())
	}
}

var (
	_ Wallet = (*StudentWallet)(nil)
	_ Wallet = (*TeacherWallet)(nil)
	_ Wallet = (*GuardianWallet)(nil)
)
