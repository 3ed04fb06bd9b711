package services

import (
	"fmt"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FamilyTransfer struct {
	Link   *models.GuardianChild      `json:"link"`
	Debit  *models.UnifiedTransaction `json:"debit"`
	Credit *models.UnifiedTransaction `json:"credit"`
}

type LinkChildInput struct {
	GuardianID      uuid.UUID
	StudentID       uuid.UUID
	AllowanceAmount decimal.Decimal
	AllowancePeriod models.AllowancePeriod
}

// LinkChild creates or updates the guardian-student link and its allowance.
func LinkChild(tx *gorm.DB, in LinkChildInput) (*models.GuardianChild, error) {
	if in.AllowancePeriod == "" {
		in.AllowancePeriod = models.AllowanceNone
	}
	if in.AllowanceAmount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	var link models.GuardianChild
	err := tx.Where(models.GuardianChild{GuardianID: in.GuardianID, StudentID: in.StudentID}).First(&link).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		link = models.GuardianChild{GuardianID: in.GuardianID, StudentID: in.StudentID}
	case err != nil:
		return nil, errors.Wrap(err, "load guardian link")
	}

	if link.AllowancePeriod != in.AllowancePeriod {
		link.SpentThisPeriod = decimal.Zero
		link.PeriodStartedAt = clock()
	}
	link.AllowanceAmount = in.AllowanceAmount.Round(2)
	link.AllowancePeriod = in.AllowancePeriod

	if err := tx.Save(&link).Error; err != nil {
		return nil, errors.Wrap(err, "save guardian link")
	}
	return &link, nil
}

// FundChildWallet moves amount from the guardian's wallet into a linked student's wallet.
// The guardian side is a single family_transfer entry and the child side a family_funding entry.
func FundChildWallet(tx *gorm.DB, guardianID, studentID uuid.UUID, amount decimal.Decimal) (*FamilyTransfer, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var link models.GuardianChild
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("guardian_id = ? AND student_id = ?", guardianID, studentID).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChildNotOwned
	}
	if err != nil {
		return nil, errors.Wrap(err, "load guardian link")
	}

	link.RollPeriod(clock())
	if link.HasAllowance() && link.SpentThisPeriod.Add(amount).GreaterThan(link.AllowanceAmount) {
		return nil, errors.Wrapf(ErrAllowanceExceeded, "%s remaining", link.RemainingAllowance().StringFixed(2))
	}

	guardianWallet, err := GetOrCreateGuardianWallet(tx, guardianID)
	if err != nil {
		return nil, err
	}
	childWallet, err := GetOrCreateStudentWallet(tx, studentID)
	if err != nil {
		return nil, err
	}

	ref := Reference{
		Type: RefGuardianChild,
		ID:   link.ID,
		Metadata: datatypes.JSONMap{
			"guardian_id": guardianID.String(),
			"student_id":  studentID.String(),
		},
	}
	debit, err := post(tx, guardianWallet, models.TxFamilyTransfer, amount, fmt.Sprintf("Transfer to student %s", studentID), ref)
	if err != nil {
		return nil, err
	}
	credit, err := post(tx, childWallet, models.TxFamilyFunding, amount, "Funding from guardian", ref)
	if err != nil {
		return nil, err
	}

	link.SpentThisPeriod = link.SpentThisPeriod.Add(amount)
	if err := tx.Save(&link).Error; err != nil {
		return nil, errors.Wrap(err, "update allowance")
	}

	return &FamilyTransfer{Link: &link, Debit: debit, Credit: credit}, nil
}

func ListChildren(db *gorm.DB, guardianID uuid.UUID) ([]models.GuardianChild, error) {
	var links []models.GuardianChild
	err := db.Preload("Student").Where("guardian_id = ?", guardianID).Order("created_at").Find(&links).Error
	return links, errors.Wrap(err, "list children")
}
