package auth

import (
	"rental-backend/internal/config"
	"rental-backend/internal/models"
	"rental-backend/internal/otp"
	"rental-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type OTPRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type OTPVerifyRequest struct {
	Phone string `json:"phone" validate:"required"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// RequestOTPHandler sends a login code. The answer is the same whether or
// not the number belongs to an account.
func RequestOTPHandler(svc *otp.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body OTPRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validation.Struct(body); err != nil {
			return err
		}
		if err := svc.Request(c.UserContext(), body.Phone, models.OTPLogin); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "if the number is registered, a code has been sent"})
	}
}

func VerifyOTPHandler(cfg *config.Config, db *gorm.DB, svc *otp.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body OTPVerifyRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validation.Struct(body); err != nil {
			return err
		}
		user, err := svc.Verify(c.UserContext(), body.Phone, body.Code, models.OTPLogin)
		if err != nil {
			return err
		}
		return issueToken(c, cfg, db, user)
	}
}
