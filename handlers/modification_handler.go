package handlers

import (
	"github.com/anjiri1684/tutor_marketplace/database"
	"github.com/anjiri1684/tutor_marketplace/logging"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/notifications"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type ModificationResponseRequest struct {
	Notes string `json:"notes" validate:"max=500"`
}

type modificationOp func(tx *gorm.DB, id uuid.UUID, actor services.Actor, notes string) (*models.BookingModification, error)

func ApproveModification(c *fiber.Ctx) error {
	return respondToModification(c, services.ApproveModification, notifications.ModificationApproved, "Request approved.")
}

func RejectModification(c *fiber.Ctx) error {
	return respondToModification(c, services.RejectModification, notifications.ModificationRejected, "Request rejected.")
}

func CancelModification(c *fiber.Ctx) error {
	return respondToModification(c, services.CancelModification, notifications.ModificationCancelled, "Request cancelled.")
}

func CompleteModification(c *fiber.Ctx) error {
	op := func(tx *gorm.DB, id uuid.UUID, actor services.Actor, _ string) (*models.BookingModification, error) {
		return services.CompleteModification(tx, id, actor)
	}
	return respondToModification(c, op, notifications.ModificationCompleted, "Booking updated.")
}

func respondToModification(c *fiber.Ctx, op modificationOp, kind notifications.Kind, message string) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid modification ID")
	}
	var req ModificationResponseRequest
	if len(c.Body()) > 0 {
		if ok, err := parseAndValidate(c, &req); !ok {
			return err
		}
	}

	var mod *models.BookingModification
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		mod, err = op(tx, id, actor, req.Notes)
		return err
	})
	if errors.Is(err, services.ErrModificationExpired) {
		persistExpiry(id)
	}
	if err != nil {
		return respondError(c, err)
	}

	go notifications.Dispatch(notifications.ForModification(database.DB, kind, mod))
	return c.JSON(fiber.Map{"message": message, "modification": mod})
}

// persistExpiry stores the expiry a rolled-back transition observed.
func persistExpiry(id uuid.UUID) {
	var mod *models.BookingModification
	var expired bool
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		mod, expired, err = services.ExpireByID(tx, id)
		return err
	})
	if err != nil {
		logging.Warn("persist modification expiry", err, map[string]interface{}{"modification_id": id})
		return
	}
	if expired {
		go notifications.Dispatch(notifications.ForModification(database.DB, notifications.ModificationExpired, mod))
	}
}

func GetPendingModifications(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}

	var mods []models.BookingModification
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		mods, err = services.PendingModificationsFor(tx, actor.ID)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	if mods == nil {
		mods = []models.BookingModification{}
	}
	return c.JSON(mods)
}
