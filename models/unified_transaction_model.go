package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TxDeposit        TransactionType = "deposit"
	TxPayment        TransactionType = "payment"
	TxRefund         TransactionType = "refund"
	TxFamilyTransfer TransactionType = "family_transfer"
	TxFamilyFunding  TransactionType = "family_funding"
	TxEarning        TransactionType = "earning"
	TxPayoutReserve  TransactionType = "payout_reserve"
	TxPayoutRelease  TransactionType = "payout_release"
)

// IsCredit reports whether the type increases the wallet balance.
func (t TransactionType) IsCredit() bool {
	switch t {
	case TxDeposit, TxRefund, TxFamilyFunding, TxEarning, TxPayoutRelease:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusCompleted TransactionStatus = "completed"
	TxStatusFailed    TransactionStatus = "failed"
)

// UnifiedTransaction is the append-only ledger shared by every wallet type.
// Amount is signed: credits positive, debits negative.
type UnifiedTransaction struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"uuid"`
	WalletType    WalletType        `gorm:"size:20;not null;index:idx_unified_wallet" json:"wallet_type"`
	WalletID      uuid.UUID         `gorm:"type:uuid;not null;index:idx_unified_wallet" json:"wallet_id"`
	Type          TransactionType   `gorm:"size:30;not null" json:"type"`
	Amount        decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"amount"`
	BalanceAfter  decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"balance_after"`
	Currency      string            `gorm:"size:3;not null" json:"currency"`
	Status        TransactionStatus `gorm:"size:20;not null;default:'completed'" json:"status"`
	Description   string            `gorm:"type:text" json:"description"`
	ReferenceType *string           `gorm:"size:50" json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID        `gorm:"type:uuid;index" json:"reference_id,omitempty"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (t *UnifiedTransaction) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

func (t *UnifiedTransaction) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableRecord
}

func (t *UnifiedTransaction) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableRecord
}
