package auth

import (
	"errors"
	"strings"

	"rental-backend/internal/apperror"
	"rental-backend/internal/config"
	"rental-backend/internal/models"
	"rental-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Login    string `json:"login" validate:"required"` // username or email
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// tenantIDFor returns the tenant linked to a tenant user.
func tenantIDFor(db *gorm.DB, user *models.User) (*uint, error) {
	if user.Role != models.RoleTenant {
		return nil, nil
	}
	var t models.Tenant
	err := db.Select("id").Where("user_id = ?", user.ID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t.ID, nil
}

func issueToken(c *fiber.Ctx, cfg *config.Config, db *gorm.DB, user *models.User) error {
	tenantID, err := tenantIDFor(db, user)
	if err != nil {
		return apperror.Internal(err)
	}
	token, err := GenerateToken(cfg.JWTSecret, user, tenantID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
	}
	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":        user.ID,
			"username":  user.Username,
			"name":      user.Name,
			"email":     user.Email,
			"role":      user.Role,
			"tenant_id": tenantID,
		},
	})
}

func LoginHandler(cfg *config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validation.Struct(body); err != nil {
			return err
		}

		login := strings.TrimSpace(body.Login)
		var user models.User
		err := db.Where("username = ? OR email = ?", login, strings.ToLower(login)).First(&user).Error
		if err != nil || !user.IsActive || !CheckPassword(user.PasswordHash, body.Password) {
			return fiber.NewError(fiber.StatusUnauthorized, "wrong username or password")
		}

		return issueToken(c, cfg, db, &user)
	}
}

func MeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var user models.User
		if err := db.First(&user, UserID(c)).Error; err != nil {
			return apperror.FromDB(err, "user")
		}
		response := fiber.Map{
			"user_id":  user.ID,
			"username": user.Username,
			"name":     user.Name,
			"email":    user.Email,
			"phone":    user.Phone,
			"role":     user.Role,
		}
		if id, ok := TenantID(c); ok {
			var tenant models.Tenant
			if err := db.First(&tenant, id).Error; err == nil {
				response["tenant"] = fiber.Map{
					"id":    tenant.ID,
					"name":  tenant.Name,
					"phone": tenant.Phone,
					"email": tenant.Email,
				}
			}
		}
		return c.JSON(response)
	}
}

func ChangePasswordHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ChangePasswordRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validation.Struct(body); err != nil {
			return err
		}

		var user models.User
		if err := db.First(&user, UserID(c)).Error; err != nil {
			return apperror.FromDB(err, "user")
		}
		if !CheckPassword(user.PasswordHash, body.CurrentPassword) {
			return apperror.Invalid("current_password", "is incorrect")
		}
		hash, err := HashPassword(body.NewPassword)
		if err != nil {
			return apperror.Internal(err)
		}
		if err := db.Model(&user).Update("password_hash", hash).Error; err != nil {
			return apperror.Internal(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
