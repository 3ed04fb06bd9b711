package handlers

import (
	"github.com/anjiri1684/tutor_marketplace/database"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/notifications"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/anjiri1684/tutor_marketplace/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var walletTypeForRole = map[models.Role]models.WalletType{
	models.RoleStudent:  models.WalletStudent,
	models.RoleTeacher:  models.WalletTeacher,
	models.RoleGuardian: models.WalletGuardian,
}

func myWallet(c *fiber.Ctx) (models.Wallet, error) {
	actor, ok := actorOf(c)
	if !ok {
		return nil, services.ErrForbidden
	}
	walletType, ok := walletTypeForRole[actor.Role]
	if !ok {
		return nil, services.ErrForbidden
	}
	return services.WalletForOwner(database.DB, walletType, actor.ID)
}

// GetMyWallet returns the wallet of the caller's role.
func GetMyWallet(c *fiber.Ctx) error {
	wallet, err := myWallet(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(wallet)
}

func GetMyTransactions(c *fiber.Ctx) error {
	wallet, err := myWallet(c)
	if err != nil {
		return respondError(c, err)
	}
	page := utils.ParsePage(c)
	entries, total, err := services.ListLedger(database.DB, wallet, page.Offset(), page.Limit())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.NewPage(c, page, entries, len(entries), total))
}

type FundChildRequest struct {
	Amount string `json:"amount" validate:"required,money"`
}

func FundChild(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	studentID, ok := paramUUID(c, "studentId")
	if !ok {
		return badRequest(c, "Invalid student ID")
	}
	var req FundChildRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	amount := decimal.RequireFromString(req.Amount)

	var transfer *services.FamilyTransfer
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		transfer, err = services.FundChildWallet(tx, actor.ID, studentID, amount)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}

	go notifications.Dispatch(notifications.ForWallet(database.DB, studentID, transfer.Credit))
	return c.JSON(fiber.Map{
		"message":  "Child wallet funded.",
		"transfer": transfer,
	})
}

func GetMyChildren(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	children, err := services.ListChildren(database.DB, actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	if children == nil {
		children = []models.GuardianChild{}
	}
	return c.JSON(children)
}
