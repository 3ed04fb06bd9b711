package handlers

import (
	"github.com/anjiri1684/tutor_marketplace/database"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/gofiber/fiber/v2"
)

type UpdateProfileRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=2,max=255"`
	TimeZone *string `json:"time_zone" validate:"omitempty,timezone"`
}

func GetProfile(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var user models.User
	if err := database.DB.First(&user, "id = ?", actor.ID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	resp := fiber.Map{"user": user}
	if _, ok := walletTypeForRole[user.Role]; ok {
		if wallet, err := myWallet(c); err == nil {
			resp["wallet"] = wallet
		}
	}
	return c.JSON(resp)
}

func UpdateProfile(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var req UpdateProfileRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", actor.ID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.TimeZone != nil {
		user.TimeZone = req.TimeZone
	}
	if err := database.DB.Save(&user).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}
