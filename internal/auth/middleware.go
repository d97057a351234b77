package auth

import (
	"fmt"
	"strings"

	"rental-backend/internal/config"
	"rental-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
	CtxTenantIDKey = "tenant_id"
)

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
		}

		token, err := jwt.ParseWithClaims(parts[1], &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		claims, ok := token.Claims.(*JWTCustomClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "could not read token claims")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserRoleKey, claims.Role)
		c.Locals(CtxTenantIDKey, claims.TenantID)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "role missing from token")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "you are not allowed to do this")
	}
}

// RequireStaff admits admins and staff.
func RequireStaff() fiber.Handler {
	return RequireRole(models.RoleAdmin, models.RoleStaff)
}

// RequireTenant admits tenant users that are linked to a tenant record.
func RequireTenant() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role, _ := c.Locals(CtxUserRoleKey).(models.UserRole); role != models.RoleTenant {
			return fiber.NewError(fiber.StatusForbidden, "tenant portal only")
		}
		if _, ok := TenantID(c); !ok {
			return fiber.NewError(fiber.StatusForbidden, "account is not linked to a tenant")
		}
		return c.Next()
	}
}

func UserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(CtxUserIDKey).(uint)
	return id
}

func Role(c *fiber.Ctx) models.UserRole {
	r, _ := c.Locals(CtxUserRoleKey).(models.UserRole)
	return r
}

func TenantID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(CtxTenantIDKey).(*uint)
	if !ok || id == nil {
		return 0, false
	}
	return *id, true
}
