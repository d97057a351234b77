package admin

import (
	"errors"
	"strings"

	"rental-backend/internal/apperror"
	"rental-backend/internal/audit"
	"rental-backend/internal/auth"
	"rental-backend/internal/httpx"
	"rental-backend/internal/models"
	"rental-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserResponse struct {
	ID        uint            `json:"id"`
	Username  string          `json:"username"`
	Name      string          `json:"name"`
	Email     *string         `json:"email"`
	Phone     *string         `json:"phone"`
	Role      models.UserRole `json:"role"`
	IsActive  bool            `json:"is_active"`
	CreatedAt string          `json:"created_at"`
}

func toUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

type CreateUserRequest struct {
	Username string          `json:"username" validate:"required,min=3,max=150"`
	Name     string          `json:"name" validate:"required,max=150"`
	Email    string          `json:"email" validate:"omitempty,email"`
	Phone    string          `json:"phone"`
	Password string          `json:"password" validate:"required,min=8"`
	Role     models.UserRole `json:"role" validate:"required,oneof=admin staff"`
}

type UpdateUserRequest struct {
	Name     *string          `json:"name" validate:"omitempty,max=150"`
	Email    *string          `json:"email" validate:"omitempty,email"`
	Phone    *string          `json:"phone"`
	Role     *models.UserRole `json:"role" validate:"omitempty,oneof=admin staff"`
	IsActive *bool            `json:"is_active"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func checkUnique(db *gorm.DB, column string, value *string, exceptID uint) error {
	if value == nil {
		return nil
	}
	var n int64
	if err := db.Model(&models.User{}).Where(column+" = ? AND id <> ?", *value, exceptID).Count(&n).Error; err != nil {
		return apperror.Internal(err)
	}
	if n > 0 {
		return apperror.Invalid(column, "is already in use")
	}
	return nil
}

// CreateUser adds a back-office account.
func CreateUser(db *gorm.DB, in CreateUserRequest) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	u := models.User{
		Username: in.Username,
		Name:     in.Name,
		Email:    optional(strings.ToLower(in.Email)),
		Phone:    optional(in.Phone),
		Role:     in.Role,
		IsActive: true,
	}
	if err := checkUnique(db, "username", &u.Username, 0); err != nil {
		return nil, err
	}
	if err := checkUnique(db, "email", u.Email, 0); err != nil {
		return nil, err
	}
	if err := checkUnique(db, "phone", u.Phone, 0); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	u.PasswordHash = hash
	if err := db.Create(&u).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	return &u, nil
}

// GET /api/admin/users?role=&active=
func ListUsersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Model(&models.User{})
		if r := c.Query("role"); r != "" {
			q = q.Where("role = ?", r)
		} else {
			q = q.Where("role IN ?", []models.UserRole{models.RoleAdmin, models.RoleStaff})
		}
		if a := c.Query("active"); a != "" {
			q = q.Where("is_active = ?", a == "true" || a == "1")
		}
		var users []models.User
		if err := q.Order("name").Find(&users).Error; err != nil {
			return apperror.Internal(err)
		}
		out := make([]UserResponse, 0, len(users))
		for _, u := range users {
			out = append(out, toUserResponse(u))
		}
		return c.JSON(out)
	}
}

// POST /api/admin/users
func CreateUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		u, err := CreateUser(db, body)
		if err != nil {
			return err
		}
		audit.Record(c, db, audit.LogOptions{
			EntityType:  "user",
			EntityID:    u.ID,
			Action:      models.AuditActionCreate,
			Description: "User created: " + u.Username,
			After:       toUserResponse(*u),
		})
		return c.Status(fiber.StatusCreated).JSON(toUserResponse(*u))
	}
}

func loadStaffUser(db *gorm.DB, c *fiber.Ctx) (*models.User, error) {
	id, err := httpx.ID(c, "id")
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := db.First(&u, id).Error; err != nil {
		return nil, apperror.FromDB(err, "user")
	}
	if !u.Role.IsStaff() {
		// tenant accounts are managed through the tenant record
		return nil, apperror.NotFound("user")
	}
	return &u, nil
}

// PUT /api/admin/users/:id
func UpdateUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := loadStaffUser(db, c)
		if err != nil {
			return err
		}
		var body UpdateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validation.Struct(body); err != nil {
			return err
		}
		before := toUserResponse(*u)

		if u.ID == auth.UserID(c) {
			if body.IsActive != nil && !*body.IsActive {
				return apperror.Invalid("is_active", "you cannot deactivate your own account")
			}
			if body.Role != nil && *body.Role != u.Role {
				return apperror.Invalid("role", "you cannot change your own role")
			}
		}
		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return apperror.Invalid("name", "is required")
			}
			u.Name = name
		}
		if body.Email != nil {
			u.Email = optional(strings.ToLower(*body.Email))
			if err := checkUnique(db, "email", u.Email, u.ID); err != nil {
				return err
			}
		}
		if body.Phone != nil {
			u.Phone = optional(*body.Phone)
			if err := checkUnique(db, "phone", u.Phone, u.ID); err != nil {
				return err
			}
		}
		if body.Role != nil {
			u.Role = *body.Role
		}
		if body.IsActive != nil {
			u.IsActive = *body.IsActive
		}
		if err := db.Save(u).Error; err != nil {
			return apperror.Internal(err)
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  "user",
			EntityID:    u.ID,
			Action:      models.AuditActionUpdate,
			Description: "User updated: " + u.Username,
			Before:      before,
			After:       toUserResponse(*u),
		})
		return c.JSON(toUserResponse(*u))
	}
}

// POST /api/admin/users/:id/password
func ResetPasswordHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := loadStaffUser(db, c)
		if err != nil {
			return err
		}
		var body ResetPasswordRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validation.Struct(body); err != nil {
			return err
		}
		hash, err := auth.HashPassword(body.Password)
		if err != nil {
			return apperror.Internal(err)
		}
		if err := db.Model(u).Update("password_hash", hash).Error; err != nil {
			return apperror.Internal(err)
		}
		audit.Record(c, db, audit.LogOptions{
			EntityType:  "user",
			EntityID:    u.ID,
			Action:      models.AuditActionUpdate,
			Description: "Password reset: " + u.Username,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ErrUserExists is returned by EnsureAdmin when the username is taken.
var ErrUserExists = errors.New("user already exists")

// EnsureAdmin creates the first administrator. It fails with ErrUserExists
// when the username is already present.
func EnsureAdmin(db *gorm.DB, username, name, password string) (*models.User, error) {
	var n int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrUserExists
	}
	return CreateUser(db, CreateUserRequest{Username: username, Name: name, Password: password, Role: models.RoleAdmin})
}
