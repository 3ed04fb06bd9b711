package services

import (
	"testing"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type family struct {
	db       *gorm.DB
	guardian models.User
	child    models.User
}

func newFamily(t *testing.T, allowance string, period models.AllowancePeriod) *family {
	t.Helper()
	db := setup(t)
	f := &family{
		db:       db,
		guardian: testutil.CreateUser(t, db, models.RoleGuardian),
		child:    testutil.CreateUser(t, db, models.RoleStudent),
	}
	in := LinkChildInput{GuardianID: f.guardian.ID, StudentID: f.child.ID, AllowancePeriod: period}
	if allowance != "" {
		in.AllowanceAmount = dec(allowance)
	}
	_, err := LinkChild(db, in)
	require.NoError(t, err)

	gw, err := GetOrCreateGuardianWallet(db, f.guardian.ID)
	require.NoError(t, err)
	_, err = AddFunds(db, gw, dec("5000"), "deposit", Reference{})
	require.NoError(t, err)
	return f
}

func (f *family) fund(amount string) (*FamilyTransfer, error) {
	var transfer *FamilyTransfer
	err := run(f.db, func(tx *gorm.DB) error {
		var err error
		transfer, err = FundChildWallet(tx, f.guardian.ID, f.child.ID, dec(amount))
		return err
	})
	return transfer, err
}

func TestFundChildWalletMovesFunds(t *testing.T) {
	f := newFamily(t, "", models.AllowanceNone)

	transfer, err := f.fund("2000")
	require.NoError(t, err)
	assert.Equal(t, models.TxFamilyTransfer, transfer.Debit.Type)
	assert.Equal(t, models.TxFamilyFunding, transfer.Credit.Type)
	assertAmount(t, "-2000.00", transfer.Debit.Amount)
	assertAmount(t, "2000.00", transfer.Credit.Amount)

	gw, err := GetOrCreateGuardianWallet(f.db, f.guardian.ID)
	require.NoError(t, err)
	cw := studentWallet(t, f.db, f.child.ID)
	assertAmount(t, "3000.00", gw.Balance)
	assertAmount(t, "2000.00", gw.TotalSpent)
	assertAmount(t, "2000.00", cw.Balance)

	assert.EqualValues(t, 1, ledgerCount(t, f.db, gw, models.TxFamilyTransfer))
	assert.EqualValues(t, 1, ledgerCount(t, f.db, cw, models.TxFamilyFunding))
	assertBalanced(t, f.db, gw)
	assertBalanced(t, f.db, cw)
}

func TestFundChildWalletRequiresLink(t *testing.T) {
	f := newFamily(t, "", models.AllowanceNone)
	stranger := testutil.CreateUser(t, f.db, models.RoleStudent)

	_, err := FundChildWallet(f.db, f.guardian.ID, stranger.ID, dec("10"))
	assert.ErrorIs(t, err, ErrChildNotOwned)
}

func TestFundChildWalletInsufficientBalanceRollsBack(t *testing.T) {
	f := newFamily(t, "", models.AllowanceNone)

	_, err := f.fund("5000.01")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	cw := studentWallet(t, f.db, f.child.ID)
	assert.True(t, cw.Balance.IsZero())
	assertBalanced(t, f.db, cw)
}

func TestFundChildWalletEnforcesAllowance(t *testing.T) {
	f := newFamily(t, "100", models.AllowanceWeekly)

	_, err := f.fund("60")
	require.NoError(t, err)
	_, err = f.fund("50")
	assert.ErrorIs(t, err, ErrAllowanceExceeded)

	transfer, err := f.fund("40")
	require.NoError(t, err)
	assertAmount(t, "100.00", transfer.Link.SpentThisPeriod)
	assert.True(t, transfer.Link.RemainingAllowance().IsZero())

	t.Run("resets when the period rolls over", func(t *testing.T) {
		setClock(t, mondayMorning.AddDate(0, 0, 7))
		transfer, err := f.fund("80")
		require.NoError(t, err)
		assertAmount(t, "80.00", transfer.Link.SpentThisPeriod)
	})
}

func TestLinkChildUpdatesAllowance(t *testing.T) {
	f := newFamily(t, "100", models.AllowanceWeekly)
	_, err := f.fund("30")
	require.NoError(t, err)

	link, err := LinkChild(f.db, LinkChildInput{
		GuardianID:      f.guardian.ID,
		StudentID:       f.child.ID,
		AllowanceAmount: dec("500"),
		AllowancePeriod: models.AllowanceMonthly,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AllowanceMonthly, link.AllowancePeriod)
	assert.True(t, link.SpentThisPeriod.IsZero())

	_, err = LinkChild(f.db, LinkChildInput{GuardianID: f.guardian.ID, StudentID: f.child.ID, AllowanceAmount: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	children, err := ListChildren(f.db, f.guardian.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.NotNil(t, children[0].Student)
	assert.Equal(t, f.child.ID, children[0].Student.ID)
}
