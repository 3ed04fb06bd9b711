package handlers

import (
	"github.com/anjiri1684/tutor_marketplace/database"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/notifications"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/anjiri1684/tutor_marketplace/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func ListPendingApplications(c *fiber.Ctx) error {
	pending := []models.Teacher{}
	if err := database.DB.Preload("User").Where("status = ?", models.TeacherStatusPending).Find(&pending).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(pending)
}

func ManageApplication(c *fiber.Ctx) error {
	type MgtRequest struct {
		Status string `json:"status" validate:"required,oneof=active rejected"`
	}
	var req MgtRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	teacherID, ok := paramUUID(c, "teacherId")
	if !ok {
		return badRequest(c, "Invalid teacher ID")
	}

	var application models.Teacher
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&application, "user_id = ?", teacherID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.Wrap(services.ErrNotFound, "application")
			}
			return err
		}
		application.Status = req.Status
		if err := tx.Save(&application).Error; err != nil {
			return err
		}
		if req.Status != models.TeacherStatusActive {
			return nil
		}
		if err := tx.Model(&models.User{}).Where("id = ?", teacherID).Update("role", models.RoleTeacher).Error; err != nil {
			return err
		}
		_, err := services.GetOrCreateTeacherWallet(tx, teacherID)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Application status updated successfully", "teacher": application})
}

type SubjectRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=100"`
	PricePerHour string `json:"price_per_hour" validate:"required,money"`
	Currency     string `json:"currency" validate:"required,iso4217"`
	IsActive     *bool  `json:"is_active"`
}

func CreateSubject(c *fiber.Ctx) error {
	var req SubjectRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	subject := models.Subject{
		Name:         req.Name,
		PricePerHour: decimal.RequireFromString(req.PricePerHour),
		Currency:     req.Currency,
		IsActive:     req.IsActive == nil || *req.IsActive,
	}
	if err := database.DB.Create(&subject).Error; err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(subject)
}

func UpdateSubject(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "subjectId")
	if !ok {
		return badRequest(c, "Invalid subject ID")
	}
	var req SubjectRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}

	var subject models.Subject
	if err := database.DB.First(&subject, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Subject not found"})
	}
	subject.Name = req.Name
	subject.PricePerHour = decimal.RequireFromString(req.PricePerHour)
	subject.Currency = req.Currency
	if req.IsActive != nil {
		subject.IsActive = *req.IsActive
	}
	if err := database.DB.Save(&subject).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(subject)
}

func AdminGetAllBookings(c *fiber.Ctx) error {
	var f services.BookingFilter
	if raw := c.Query("student_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "Invalid student_id")
		}
		f.StudentID = &id
	}
	if raw := c.Query("teacher_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "Invalid teacher_id")
		}
		f.TeacherID = &id
	}
	return listBookings(c, f)
}

func ListPayoutRequests(c *fiber.Ctx) error {
	status := models.PayoutStatus(c.Query("status", string(models.PayoutPending)))
	if !status.Valid() {
		return badRequest(c, "Unknown payout status")
	}
	page := utils.ParsePage(c)
	payouts, total, err := services.ListPayouts(database.DB, nil, status, page.Offset(), page.Limit())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.NewPage(c, page, payouts, len(payouts), total))
}

type PayoutDecisionRequest struct {
	AdminNotes string `json:"admin_notes" validate:"max=1000"`
}

type payoutOp func(tx *gorm.DB, id, adminID uuid.UUID, notes string) (*models.PayoutRequest, error)

func ApprovePayout(c *fiber.Ctx) error {
	return decidePayout(c, services.ApprovePayout, notifications.PayoutApproved, "Payout approved.")
}

func DeclinePayout(c *fiber.Ctx) error {
	return decidePayout(c, services.DeclinePayout, notifications.PayoutDeclined, "Payout declined. Funds returned to the teacher.")
}

func MarkPayoutPaid(c *fiber.Ctx) error {
	op := func(tx *gorm.DB, id, adminID uuid.UUID, _ string) (*models.PayoutRequest, error) {
		return services.MarkPayoutPaid(tx, id, adminID)
	}
	return decidePayout(c, op, notifications.PayoutPaid, "Payout marked as paid.")
}

func decidePayout(c *fiber.Ctx, op payoutOp, kind notifications.Kind, message string) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramUUID(c, "requestId")
	if !ok {
		return badRequest(c, "Invalid payout request ID")
	}
	var req PayoutDecisionRequest
	if len(c.Body()) > 0 {
		if ok, err := parseAndValidate(c, &req); !ok {
			return err
		}
	}

	var payout *models.PayoutRequest
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		payout, err = op(tx, id, actor.ID, req.AdminNotes)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}

	go notifications.Dispatch(notifications.ForPayout(database.DB, kind, payout))
	return c.JSON(fiber.Map{"message": message, "payout": payout})
}

func GetSettings(c *fiber.Ctx) error {
	settings, err := services.Settings.List(database.DB, c.Query("group"))
	if err != nil {
		return respondError(c, err)
	}
	if settings == nil {
		settings = []models.Setting{}
	}
	return c.JSON(settings)
}

type SettingRequest struct {
	Value string `json:"value" validate:"required,max=1000"`
	Group string `json:"group" validate:"max=50"`
}

func UpdateSetting(c *fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return badRequest(c, "Setting key is required")
	}
	var req SettingRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	setting, err := services.Settings.Set(database.DB, key, req.Value, req.Group)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(setting)
}

// ReconcileWallet compares a wallet's balance against its ledger.
func ReconcileWallet(c *fiber.Ctx) error {
	walletType := models.WalletType(c.Params("walletType"))
	if !walletType.Valid() {
		return badRequest(c, "Unknown wallet type")
	}
	walletID, ok := paramUUID(c, "walletId")
	if !ok {
		return badRequest(c, "Invalid wallet ID")
	}

	wallet, err := services.ResolveWallet(database.DB, walletType, walletID)
	if err != nil {
		return respondError(c, err)
	}
	result, err := services.Reconcile(database.DB, wallet)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

type LinkChildRequest struct {
	GuardianID      string `json:"guardian_id" validate:"required,uuid"`
	StudentID       string `json:"student_id" validate:"required,uuid"`
	AllowanceAmount string `json:"allowance_amount" validate:"omitempty,money"`
	AllowancePeriod string `json:"allowance_period" validate:"omitempty,oneof=none weekly monthly"`
}

func LinkGuardianChild(c *fiber.Ctx) error {
	var req LinkChildRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	in := services.LinkChildInput{
		GuardianID:      uuid.MustParse(req.GuardianID),
		StudentID:       uuid.MustParse(req.StudentID),
		AllowancePeriod: models.AllowancePeriod(req.AllowancePeriod),
	}
	if req.AllowanceAmount != "" {
		in.AllowanceAmount = decimal.RequireFromString(req.AllowanceAmount)
	}

	var link *models.GuardianChild
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		link, err = services.LinkChild(tx, in)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(link)
}

type AdminCreditRequest struct {
	WalletType  string `json:"wallet_type" validate:"required,oneof=student teacher guardian"`
	OwnerID     string `json:"owner_id" validate:"required,uuid"`
	Amount      string `json:"amount" validate:"required,money"`
	Description string `json:"description" validate:"required,max=255"`
}

// AdminCreditWallet posts a manual deposit, e.g. for an offline payment.
func AdminCreditWallet(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var req AdminCreditRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	ownerID := uuid.MustParse(req.OwnerID)

	var entry *models.UnifiedTransaction
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		wallet, err := services.WalletForOwner(tx, models.WalletType(req.WalletType), ownerID)
		if err != nil {
			return err
		}
		ref := services.Reference{
			Type:     services.RefAdminCredit,
			ID:       actor.ID,
			Metadata: datatypes.JSONMap{"admin_id": actor.ID.String()},
		}
		entry, err = services.AddFunds(tx, wallet, decimal.RequireFromString(req.Amount), req.Description, ref)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}

	go notifications.Dispatch(notifications.ForWallet(database.DB, ownerID, entry))
	return c.Status(fiber.StatusCreated).JSON(entry)
}
