// Package tenant manages tenants, their portal accounts and staff messages.
package tenant

import (
	"context"
	"fmt"
	"log"
	"strings"

	"rental-backend/internal/apperror"
	"rental-backend/internal/auth"
	"rental-backend/internal/config"
	"rental-backend/internal/models"
	"rental-backend/internal/notification"
	"rental-backend/internal/otp"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db    *gorm.DB
	phone config.OTPConfig
}

func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{db: db, phone: cfg.OTP}
}

func (s *Service) DB() *gorm.DB { return s.db }

type Input struct {
	Name                string
	Type                models.TenantType
	Phone               string
	Email               *string
	AuthorizedSignatory string
	Rating              int
	Notes               string
}

func (s *Service) apply(t *models.Tenant, in Input) error {
	phone, err := otp.NormalizePhone(s.phone, in.Phone)
	if err != nil {
		return err
	}
	if in.Rating == 0 {
		in.Rating = 5
	}
	if in.Rating < 1 || in.Rating > 5 {
		return apperror.Invalid("rating", "must be between 1 and 5")
	}
	t.Name = strings.TrimSpace(in.Name)
	t.Type = in.Type
	t.Phone = phone
	t.Email = nil
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		e := strings.ToLower(strings.TrimSpace(*in.Email))
		t.Email = &e
	}
	t.AuthorizedSignatory = ""
	if in.Type == models.TenantCompany {
		t.AuthorizedSignatory = strings.TrimSpace(in.AuthorizedSignatory)
	}
	t.Rating = in.Rating
	t.Notes = in.Notes
	return nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Tenant, error) {
	var t models.Tenant
	if err := s.db.WithContext(ctx).Preload("User").First(&t, id).Error; err != nil {
		return nil, apperror.FromDB(err, "tenant")
	}
	return &t, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*models.Tenant, error) {
	var t models.Tenant
	if err := s.apply(&t, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&t).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	log.Printf("[TENANT] created %d %q", t.ID, t.Name)
	return &t, nil
}

// Update changes the tenant and keeps the contact details of a linked
// portal account in step.
func (s *Service) Update(ctx context.Context, id uint, in Input) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&t, id).Error; err != nil {
			return apperror.FromDB(err, "tenant")
		}
		if err := s.apply(&t, in); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(&t).Error; err != nil {
			return err
		}
		if t.UserID == nil {
			return nil
		}
		if err := checkPhoneFree(tx, t.Phone, *t.UserID); err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", *t.UserID).
			Updates(map[string]interface{}{"name": t.Name, "phone": t.Phone}).Error
	})
	if err != nil {
		return nil, apperror.FromDB(err, "tenant")
	}
	return &t, nil
}

// Delete removes a tenant without leases and deactivates its account.
func (s *Service) Delete(ctx context.Context, id uint) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&t, id).Error; err != nil {
			return err
		}
		var leases int64
		if err := tx.Model(&models.Lease{}).Where("tenant_id = ?", id).Count(&leases).Error; err != nil {
			return err
		}
		if leases > 0 {
			return apperror.Conflict("tenant has leases and cannot be deleted")
		}
		if err := tx.Delete(&t).Error; err != nil {
			return err
		}
		if t.UserID != nil {
			return tx.Model(&models.User{}).Where("id = ?", *t.UserID).
				Updates(map[string]interface{}{"is_active": false, "phone": nil}).Error
		}
		return nil
	})
	if err != nil {
		return nil, apperror.FromDB(err, "tenant")
	}
	return &t, nil
}

func checkPhoneFree(tx *gorm.DB, phone string, exceptUserID uint) error {
	var n int64
	if err := tx.Model(&models.User{}).Where("phone = ? AND id <> ?", phone, exceptUserID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperror.Conflict("phone number is already used by another account")
	}
	return nil
}

// usernameFor derives the login name: the local part of the e-mail, or
// user_{digits of phone}. A taken name gets the tenant id appended.
func usernameFor(tx *gorm.DB, t *models.Tenant) (string, error) {
	var base string
	if t.Email != nil && *t.Email != "" {
		base, _, _ = strings.Cut(*t.Email, "@")
	} else {
		base = "user_" + strings.TrimPrefix(t.Phone, "+")
	}
	var n int64
	if err := tx.Model(&models.User{}).Where("username = ?", base).Count(&n).Error; err != nil {
		return "", err
	}
	if n > 0 {
		base = fmt.Sprintf("%s_%d", base, t.ID)
	}
	return base, nil
}

// ProvisionUser creates the portal account of a tenant. The account signs in
// with one-time codes sent to the tenant phone; its password is random.
func (s *Service) ProvisionUser(ctx context.Context, tenantID uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Tenant
		if err := tx.First(&t, tenantID).Error; err != nil {
			return err
		}
		if t.UserID != nil {
			return apperror.Conflict("tenant already has a portal account")
		}
		if err := checkPhoneFree(tx, t.Phone, 0); err != nil {
			return err
		}
		username, err := usernameFor(tx, &t)
		if err != nil {
			return err
		}
		hash, err := auth.RandomPasswordHash()
		if err != nil {
			return err
		}

		phone := t.Phone
		user = models.User{
			Username:     username,
			Name:         t.Name,
			Phone:        &phone,
			PasswordHash: hash,
			Role:         models.RoleTenant,
			IsActive:     true,
		}
		if t.Email != nil {
			var taken int64
			if err := tx.Model(&models.User{}).Where("email = ?", *t.Email).Count(&taken).Error; err != nil {
				return err
			}
			if taken == 0 {
				email := *t.Email
				user.Email = &email
			}
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Model(&t).Update("user_id", user.ID).Error
	})
	if err != nil {
		return nil, apperror.FromDB(err, "tenant")
	}
	log.Printf("[TENANT] portal account %q created for tenant %d", user.Username, tenantID)
	return &user, nil
}

// SendMessage stores a notification from a staff member to the tenant.
func (s *Service) SendMessage(ctx context.Context, tenantID, senderID uint, message string) (*models.Notification, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperror.Invalid("message", "is required")
	}
	t, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t.UserID == nil {
		return nil, apperror.Conflict("tenant has no portal account")
	}
	n, err := notification.Create(s.db.WithContext(ctx), *t.UserID, message, models.Related{}, &senderID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return n, nil
}
