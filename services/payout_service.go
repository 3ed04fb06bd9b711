package services

import (
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PayoutInput struct {
	TeacherID      uuid.UUID
	Amount         decimal.Decimal
	PaymentMethod  string
	PaymentDetails map[string]interface{}
}

// RequestPayout opens a pending payout and reserves its amount from the teacher's balance.
func RequestPayout(tx *gorm.DB, in PayoutInput) (*models.PayoutRequest, error) {
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	minimum, err := Settings.GetDecimal(tx, models.SettingMinPayoutAmount)
	if err != nil {
		return nil, err
	}
	if amount.LessThan(minimum) {
		return nil, errors.Wrapf(ErrBelowMinimumPayout, "minimum is %s", minimum.StringFixed(2))
	}

	wallet, err := GetOrCreateTeacherWallet(tx, in.TeacherID)
	if err != nil {
		return nil, err
	}

	reference, err := utils.GenerateUniqueReference(tx, &models.PayoutRequest{}, "reference", "PO")
	if err != nil {
		return nil, err
	}

	payout := models.PayoutRequest{
		Reference:      reference,
		TeacherID:      in.TeacherID,
		Amount:         amount,
		Currency:       wallet.Currency,
		Status:         models.PayoutPending,
		PaymentMethod:  in.PaymentMethod,
		PaymentDetails: datatypes.JSONMap(in.PaymentDetails),
		RequestDate:    clock(),
	}
	if err := tx.Create(&payout).Error; err != nil {
		return nil, errors.Wrap(err, "create payout request")
	}

	if _, err := AddPendingPayout(tx, wallet, amount, PayoutRef(&payout)); err != nil {
		return nil, err
	}
	return &payout, nil
}

func lockPayout(tx *gorm.DB, id uuid.UUID) (*models.PayoutRequest, error) {
	var payout models.PayoutRequest
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payout, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "payout request")
	}
	return &payout, nil
}

func guardPayout(p *models.PayoutRequest, next models.PayoutStatus) error {
	if !p.Status.CanTransitionTo(next) {
		return errors.Wrapf(ErrInvalidTransition, "payout %s is %s, cannot become %s", p.Reference, p.Status, next)
	}
	return nil
}

func markProcessed(p *models.PayoutRequest, next models.PayoutStatus, adminID uuid.UUID, notes string) {
	now := clock()
	p.Status = next
	p.ProcessedBy = &adminID
	p.ProcessedDate = &now
	if notes != "" {
		p.AdminNotes = &notes
	}
}

// ApprovePayout records the withdrawal transaction. It is created once per payout,
// so a payout that already carries a transaction keeps it.
func ApprovePayout(tx *gorm.DB, id, adminID uuid.UUID, notes string) (*models.PayoutRequest, error) {
	payout, err := lockPayout(tx, id)
	if err != nil {
		return nil, err
	}
	if err := guardPayout(payout, models.PayoutApproved); err != nil {
		return nil, err
	}

	if payout.TransactionID == nil {
		withdrawal := models.Transaction{
			TeacherID:       payout.TeacherID,
			Type:            models.TeacherTxWithdrawal,
			Amount:          payout.Amount,
			Currency:        payout.Currency,
			Status:          models.TxStatusPending,
			Reference:       payout.Reference,
			PayoutRequestID: &payout.ID,
		}
		if err := tx.Create(&withdrawal).Error; err != nil {
			return nil, errors.Wrap(err, "create withdrawal transaction")
		}
		payout.TransactionID = &withdrawal.ID
	}

	markProcessed(payout, models.PayoutApproved, adminID, notes)
	if err := tx.Save(payout).Error; err != nil {
		return nil, errors.Wrap(err, "save payout request")
	}
	return payout, nil
}

// DeclinePayout returns the reserved amount to the teacher's balance.
func DeclinePayout(tx *gorm.DB, id, adminID uuid.UUID, notes string) (*models.PayoutRequest, error) {
	payout, err := lockPayout(tx, id)
	if err != nil {
		return nil, err
	}
	if err := guardPayout(payout, models.PayoutDeclined); err != nil {
		return nil, err
	}

	wallet, err := GetOrCreateTeacherWallet(tx, payout.TeacherID)
	if err != nil {
		return nil, err
	}
	if err := RemovePendingPayout(tx, wallet, payout.Amount, PayoutRef(payout), true); err != nil {
		return nil, err
	}

	markProcessed(payout, models.PayoutDeclined, adminID, notes)
	if err := tx.Save(payout).Error; err != nil {
		return nil, errors.Wrap(err, "save payout request")
	}
	return payout, nil
}

// MarkPayoutPaid settles the reserved funds and completes the withdrawal transaction.
func MarkPayoutPaid(tx *gorm.DB, id, adminID uuid.UUID) (*models.PayoutRequest, error) {
	payout, err := lockPayout(tx, id)
	if err != nil {
		return nil, err
	}
	if err := guardPayout(payout, models.PayoutPaid); err != nil {
		return nil, err
	}

	wallet, err := GetOrCreateTeacherWallet(tx, payout.TeacherID)
	if err != nil {
		return nil, err
	}
	if err := RemovePendingPayout(tx, wallet, payout.Amount, PayoutRef(payout), false); err != nil {
		return nil, err
	}

	if payout.TransactionID != nil {
		err := tx.Model(&models.Transaction{}).
			Where("id = ?", *payout.TransactionID).
			Update("status", models.TxStatusCompleted).Error
		if err != nil {
			return nil, errors.Wrap(err, "complete withdrawal transaction")
		}
	}

	now := clock()
	payout.Status = models.PayoutPaid
	payout.PaidAt = &now
	if payout.ProcessedBy == nil {
		payout.ProcessedBy = &adminID
	}
	if err := tx.Save(payout).Error; err != nil {
		return nil, errors.Wrap(err, "save payout request")
	}
	return payout, nil
}

// ListPayouts pages payout requests, optionally for one teacher or status.
func ListPayouts(db *gorm.DB, teacherID *uuid.UUID, status models.PayoutStatus, offset, limit int) ([]models.PayoutRequest, int64, error) {
	q := db.Model(&models.PayoutRequest{})
	if teacherID != nil {
		q = q.Where("teacher_id = ?", *teacherID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count payout requests")
	}
	var payouts []models.PayoutRequest
	err := q.Preload("Teacher").Order("request_date DESC").Offset(offset).Limit(limit).Find(&payouts).Error
	return payouts, total, errors.Wrap(err, "list payout requests")
}

func ListEarnings(db *gorm.DB, teacherID uuid.UUID, offset, limit int) ([]models.TeacherEarning, int64, error) {
	q := db.Model(&models.TeacherEarning{}).Where("teacher_id = ?", teacherID).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count earnings")
	}
	var earnings []models.TeacherEarning
	err := q.Order("earned_at DESC").Offset(offset).Limit(limit).Find(&earnings).Error
	return earnings, total, errors.Wrap(err, "list earnings")
}
