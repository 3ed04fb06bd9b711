package services

import (
	"fmt"
	"time"

	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// clock is swapped in tests that need to move time forward.
var clock = time.Now

const (
	RefBooking       = "booking"
	RefPayoutRequest = "payout_request"
	RefGuardianChild = "guardian_child"
	RefWebhookEvent  = "webhook_event"
	RefAdminCredit   = "admin_credit"
)

// Reference ties a ledger row to the record that caused it. The zero value means none.
type Reference struct {
	Type     string
	ID       uuid.UUID
	Metadata datatypes.JSONMap
}

func BookingRef(b *models.Booking) Reference {
	return Reference{Type: RefBooking, ID: b.ID}
}

func PayoutRef(p *models.PayoutRequest) Reference {
	return Reference{Type: RefPayoutRequest, ID: p.ID, Metadata: datatypes.JSONMap{"reference": p.Reference}}
}

func defaultCurrency() string {
	if c := config.Config("DEFAULT_CURRENCY"); c != "" {
		return c
	}
	return "USD"
}

func GetOrCreateStudentWallet(tx *gorm.DB, studentID uuid.UUID) (*models.StudentWallet, error) {
	var w models.StudentWallet
	err := tx.Where(models.StudentWallet{StudentID: studentID}).
		Attrs(models.StudentWallet{Currency: defaultCurrency()}).
		FirstOrCreate(&w).Error
	return &w, errors.Wrap(err, "student wallet")
}

func GetOrCreateTeacherWallet(tx *gorm.DB, teacherID uuid.UUID) (*models.TeacherWallet, error) {
	var w models.TeacherWallet
	err := tx.Where(models.TeacherWallet{TeacherID: teacherID}).
		Attrs(models.TeacherWallet{Currency: defaultCurrency()}).
		FirstOrCreate(&w).Error
	return &w, errors.Wrap(err, "teacher wallet")
}

func GetOrCreateGuardianWallet(tx *gorm.DB, guardianID uuid.UUID) (*models.GuardianWallet, error) {
	var w models.GuardianWallet
	err := tx.Where(models.GuardianWallet{GuardianID: guardianID}).
		Attrs(models.GuardianWallet{Currency: defaultCurrency()}).
		FirstOrCreate(&w).Error
	return &w, errors.Wrap(err, "guardian wallet")
}

// WalletForOwner returns the wallet of the given type owned by a user, creating it on first use.
func WalletForOwner(tx *gorm.DB, walletType models.WalletType, ownerID uuid.UUID) (models.Wallet, error) {
	switch walletType {
	case models.WalletStudent:
		return GetOrCreateStudentWallet(tx, ownerID)
	case models.WalletTeacher:
		return GetOrCreateTeacherWallet(tx, ownerID)
	case models.WalletGuardian:
		return GetOrCreateGuardianWallet(tx, ownerID)
	}
	return nil, errors.Errorf("unknown wallet type %q", walletType)
}

// ResolveWallet loads a wallet by its discriminator and primary key.
func ResolveWallet(tx *gorm.DB, walletType models.WalletType, walletID uuid.UUID) (models.Wallet, error) {
	var w models.Wallet
	switch walletType {
	case models.WalletStudent:
		w = &models.StudentWallet{}
	case models.WalletTeacher:
		w = &models.TeacherWallet{}
	case models.WalletGuardian:
		w = &models.GuardianWallet{}
	default:
		return nil, errors.Errorf("unknown wallet type %q", walletType)
	}
	if err := tx.First(w, "id = ?", walletID).Error; err != nil {
		return nil, notFound(err, string(walletType)+" wallet")
	}
	return w, nil
}

// lockWallet reloads w under a row lock so the caller works on the committed balance.
func lockWallet(tx *gorm.DB, w models.Wallet) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(w, "id = ?", w.WalletID()).Error
	if err != nil {
		return notFound(err, string(w.WalletType())+" wallet")
	}
	return nil
}

// post is the only place wallet balances change. It applies the signed amount and
// appends the matching ledger row inside tx.
func post(tx *gorm.DB, w models.Wallet, kind models.TransactionType, amount decimal.Decimal, desc string, ref Reference) (*models.UnifiedTransaction, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if err := lockWallet(tx, w); err != nil {
		return nil, err
	}

	signed := amount
	if !kind.IsCredit() {
		if amount.GreaterThan(w.CurrentBalance()) {
			return nil, errors.Wrapf(ErrInsufficientBalance, "%s wallet has %s, needs %s",
				w.WalletType(), w.CurrentBalance().StringFixed(2), amount.StringFixed(2))
		}
		signed = amount.Neg()
	}

	w.Apply(kind, signed)
	if err := tx.Save(w).Error; err != nil {
		return nil, errors.Wrap(err, "save wallet")
	}

	entry := &models.UnifiedTransaction{
		WalletType:   w.WalletType(),
		WalletID:     w.WalletID(),
		Type:         kind,
		Amount:       signed,
		BalanceAfter: w.CurrentBalance(),
		Currency:     w.WalletCurrency(),
		Status:       models.TxStatusCompleted,
		Description:  desc,
		Metadata:     ref.Metadata,
	}
	if ref.Type != "" {
		refType, refID := ref.Type, ref.ID
		entry.ReferenceType = &refType
		entry.ReferenceID = &refID
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, errors.Wrap(err, "append ledger entry")
	}
	return entry, nil
}

func AddFunds(tx *gorm.DB, w models.Wallet, amount decimal.Decimal, desc string, ref Reference) (*models.UnifiedTransaction, error) {
	return post(tx, w, models.TxDeposit, amount, desc, ref)
}

// DeductFunds fails with ErrInsufficientBalance rather than letting the balance go negative.
func DeductFunds(tx *gorm.DB, w models.Wallet, amount decimal.Decimal, desc string, ref Reference) (*models.UnifiedTransaction, error) {
	return post(tx, w, models.TxPayment, amount, desc, ref)
}

func AddRefund(tx *gorm.DB, w models.Wallet, amount decimal.Decimal, desc string, ref Reference) (*models.UnifiedTransaction, error) {
	return post(tx, w, models.TxRefund, amount, desc, ref)
}

func CreditEarning(tx *gorm.DB, w *models.TeacherWallet, amount decimal.Decimal, booking *models.Booking) (*models.UnifiedTransaction, error) {
	return post(tx, w, models.TxEarning, amount, fmt.Sprintf("Earning for booking %s", booking.ID), BookingRef(booking))
}

// AddPendingPayout moves funds from the spendable balance into pending_payouts.
func AddPendingPayout(tx *gorm.DB, w *models.TeacherWallet, amount decimal.Decimal, ref Reference) (*models.UnifiedTransaction, error) {
	return post(tx, w, models.TxPayoutReserve, amount, "Payout reserved", ref)
}

// RemovePendingPayout resolves a reservation. With restore the funds go back to the
// balance through a payout_release entry; otherwise they are settled as withdrawn.
func RemovePendingPayout(tx *gorm.DB, w *models.TeacherWallet, amount decimal.Decimal, ref Reference, restore bool) error {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := lockWallet(tx, w); err != nil {
		return err
	}
	if amount.GreaterThan(w.PendingPayouts) {
		return errors.Wrapf(ErrInvalidAmount, "only %s is pending", w.PendingPayouts.StringFixed(2))
	}

	if restore {
		_, err := post(tx, w, models.TxPayoutRelease, amount, "Payout released", ref)
		return err
	}

	w.SettlePendingPayout(amount)
	return errors.Wrap(tx.Save(w).Error, "settle pending payout")
}

type ReconcileResult struct {
	WalletType models.WalletType `json:"wallet_type"`
	WalletID   uuid.UUID         `json:"wallet_id"`
	Balance    decimal.Decimal   `json:"balance"`
	LedgerSum  decimal.Decimal   `json:"ledger_sum"`
	Difference decimal.Decimal   `json:"difference"`
	Balanced   bool              `json:"balanced"`
}

// Reconcile compares the stored balance with the sum of the wallet's ledger entries.
func Reconcile(db *gorm.DB, w models.Wallet) (*ReconcileResult, error) {
	var row struct{ Total decimal.Decimal }
	err := db.Model(&models.UnifiedTransaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("wallet_type = ? AND wallet_id = ? AND status = ?", w.WalletType(), w.WalletID(), models.TxStatusCompleted).
		Scan(&row).Error
	if err != nil {
		return nil, errors.Wrap(err, "sum ledger")
	}

	balance := w.CurrentBalance().Round(2)
	sum := row.Total.Round(2)
	return &ReconcileResult{
		WalletType: w.WalletType(),
		WalletID:   w.WalletID(),
		Balance:    balance,
		LedgerSum:  sum,
		Difference: balance.Sub(sum),
		Balanced:   balance.Equal(sum),
	}, nil
}

// ListLedger returns a page of ledger entries for a wallet, newest first.
func ListLedger(db *gorm.DB, w models.Wallet, offset, limit int) ([]models.UnifiedTransaction, int64, error) {
	var (
		entries []models.UnifiedTransaction
		total   int64
	)
	q := db.Model(&models.UnifiedTransaction{}).
		Where("wallet_type = ? AND wallet_id = ?", w.WalletType(), w.WalletID()).
		Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count ledger")
	}
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, total, errors.Wrap(err, "list ledger")
}
