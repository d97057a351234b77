package tenant

import (
	"fmt"
	"strings"

	"rental-backend/internal/apperror"
	"rental-backend/internal/audit"
	"rental-backend/internal/auth"
	"rental-backend/internal/httpx"
	"rental-backend/internal/lease"
	"rental-backend/internal/maintenance"
	"rental-backend/internal/models"
	"rental-backend/internal/payment"
	"rental-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type TenantRequest struct {
	Name                string            `json:"name" validate:"required,max=150"`
	Type                models.TenantType `json:"type" validate:"required,oneof=individual company"`
	Phone               string            `json:"phone" validate:"required"`
	Email               *string           `json:"email" validate:"omitempty,email"`
	AuthorizedSignatory string            `json:"authorized_signatory" validate:"max=150"`
	Rating              int               `json:"rating" validate:"omitempty,min=1,max=5"`
	Notes               string            `json:"notes"`
	CreateAccount       bool              `json:"create_account"`
}

type MessageRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

type TenantResponse struct {
	ID                  uint              `json:"id"`
	Name                string            `json:"name"`
	Type                models.TenantType `json:"type"`
	Phone               string            `json:"phone"`
	Email               *string           `json:"email"`
	AuthorizedSignatory string            `json:"authorized_signatory,omitempty"`
	Rating              int               `json:"rating"`
	Notes               string            `json:"notes"`
	UserID              *uint             `json:"user_id"`
	Username            string            `json:"username,omitempty"`
	CreatedAt           string            `json:"created_at"`
}

func ToResponse(t models.Tenant) TenantResponse {
	r := TenantResponse{
		ID:                  t.ID,
		Name:                t.Name,
		Type:                t.Type,
		Phone:               t.Phone,
		Email:               t.Email,
		AuthorizedSignatory: t.AuthorizedSignatory,
		Rating:              t.Rating,
		Notes:               t.Notes,
		UserID:              t.UserID,
		CreatedAt:           t.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if t.User != nil {
		r.Username = t.User.Username
	}
	return r
}

func (b TenantRequest) input() Input {
	return Input{
		Name:                b.Name,
		Type:                b.Type,
		Phone:               b.Phone,
		Email:               b.Email,
		AuthorizedSignatory: b.AuthorizedSignatory,
		Rating:              b.Rating,
		Notes:               b.Notes,
	}
}

func parseTenant(c *fiber.Ctx) (TenantRequest, error) {
	var body TenantRequest
	if err := c.BodyParser(&body); err != nil {
		return body, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	body.Name = strings.TrimSpace(body.Name)
	if err := validation.Struct(body); err != nil {
		return body, err
	}
	return body, nil
}

// GET /api/tenants?q=&type=
func ListTenantsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := svc.DB().Model(&models.Tenant{})
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			dbq = dbq.Where("LOWER(name) LIKE ? OR phone LIKE ?", like, like)
		}
		if tp := c.Query("type"); tp != "" {
			dbq = dbq.Where("type = ?", tp)
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return apperror.Internal(err)
		}
		page := httpx.Paging(c)
		var rows []models.Tenant
		if err := dbq.Preload("User").Order("name, id").Limit(page.Limit).Offset(page.Offset).Find(&rows).Error; err != nil {
			return apperror.Internal(err)
		}
		items := make([]TenantResponse, 0, len(rows))
		for _, t := range rows {
			items = append(items, ToResponse(t))
		}
		return c.JSON(fiber.Map{"items": items, "total": total})
	}
}

// POST /api/tenants
//
// With create_account the portal account is provisioned right after the
// tenant row is stored.
func CreateTenantHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, err := parseTenant(c)
		if err != nil {
			return err
		}
		t, err := svc.Create(c.UserContext(), body.input())
		if err != nil {
			return err
		}
		if body.CreateAccount {
			u, err := svc.ProvisionUser(c.UserContext(), t.ID)
			if err != nil {
				return err
			}
			t.UserID, t.User = &u.ID, u
		}

		audit.Record(c, svc.DB(), audit.LogOptions{
			EntityType:  "tenant",
			EntityID:    t.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Tenant %s created", t.Name),
			After:       ToResponse(*t),
		})
		return c.Status(fiber.StatusCreated).JSON(ToResponse(*t))
	}
}

// GET /api/tenants/:id
func GetTenantHandler(svc *Service, leases *lease.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		t, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}

		var rows []models.Lease
		if err := svc.DB().Preload("Unit.Building").Where("tenant_id = ?", id).Order("start_date desc").Find(&rows).Error; err != nil {
			return apperror.Internal(err)
		}
		items := make([]fiber.Map, 0, len(rows))
		for _, l := range rows {
			l.Tenant = *t
			records, err := lease.LoadSummary(svc.DB(), l, leases.Today(), leases.Locale())
			if err != nil {
				return apperror.Internal(err)
			}
			items = append(items, fiber.Map{"lease": lease.ToResponse(l), "totals": lease.Total(records)})
		}

		var payments []models.Payment
		if err := svc.DB().Preload("Lease.Unit").
			Joins("JOIN leases ON leases.id = payments.lease_id").
			Where("leases.tenant_id = ?", id).
			Order("payments.payment_date desc, payments.id desc").
			Limit(50).
			Find(&payments).Error; err != nil {
			return apperror.Internal(err)
		}
		var requests []models.MaintenanceRequest
		if err := svc.DB().Preload("Lease.Unit.Building").
			Joins("JOIN leases ON leases.id = maintenance_requests.lease_id").
			Where("leases.tenant_id = ?", id).
			Order("maintenance_requests.reported_at desc").
			Find(&requests).Error; err != nil {
			return apperror.Internal(err)
		}

		return c.JSON(fiber.Map{
			"tenant":               ToResponse(*t),
			"leases":               items,
			"payments":             payment.ToResponses(payments),
			"maintenance_requests": maintenance.ToResponses(requests),
		})
	}
}

// PUT /api/tenants/:id
func UpdateTenantHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		body, err := parseTenant(c)
		if err != nil {
			return err
		}
		before, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		t, err := svc.Update(c.UserContext(), id, body.input())
		if err != nil {
			return err
		}
		audit.Record(c, svc.DB(), audit.LogOptions{
			EntityType:  "tenant",
			EntityID:    t.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Tenant %s updated", t.Name),
			Before:      ToResponse(*before),
			After:       ToResponse(*t),
		})
		return c.JSON(ToResponse(*t))
	}
}

// DELETE /api/tenants/:id
func DeleteTenantHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		t, err := svc.Delete(c.UserContext(), id)
		if err != nil {
			return err
		}
		audit.Record(c, svc.DB(), audit.LogOptions{
			EntityType:  "tenant",
			EntityID:    t.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Tenant %s deleted", t.Name),
			Before:      ToResponse(*t),
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/tenants/:id/account
func ProvisionAccountHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		u, err := svc.ProvisionUser(c.UserContext(), id)
		if err != nil {
			return err
		}
		audit.Record(c, svc.DB(), audit.LogOptions{
			EntityType:  "tenant",
			EntityID:    id,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Portal account %s created", u.Username),
		})
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"user_id":  u.ID,
			"username": u.Username,
			"phone":    u.Phone,
			"email":    u.Email,
		})
	}
}

// POST /api/tenants/:id/messages
func SendMessageHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		var body MessageRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validation.Struct(body); err != nil {
			return err
		}
		n, err := svc.SendMessage(c.UserContext(), id, auth.UserID(c), body.Message)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": n.ID, "message": n.Message})
	}
}
