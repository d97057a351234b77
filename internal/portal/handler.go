// Package portal serves the tenant-facing endpoints. Every query is scoped
// to the tenant carried in the caller's token.
package portal

import (
	"rental-backend/internal/apperror"
	"rental-backend/internal/auth"
	"rental-backend/internal/httpx"
	"rental-backend/internal/lease"
	"rental-backend/internal/maintenance"
	"rental-backend/internal/models"
	"rental-backend/internal/payment"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Handlers struct {
	Leases      *lease.Service
	Maintenance *maintenance.Service
}

func (h *Handlers) db() *gorm.DB { return h.Leases.DB() }

func tenantID(c *fiber.Ctx) (uint, error) {
	id, ok := auth.TenantID(c)
	if !ok {
		return 0, apperror.Forbidden("account is not linked to a tenant")
	}
	return id, nil
}

// ownLease loads a lease of the calling tenant. Leases of other tenants are
// reported as missing.
func (h *Handlers) ownLease(c *fiber.Ctx) (*models.Lease, error) {
	tid, err := tenantID(c)
	if err != nil {
		return nil, err
	}
	id, err := httpx.ID(c, "id")
	if err != nil {
		return nil, err
	}
	var l models.Lease
	if err := h.db().Preload("Unit.Building").Preload("Tenant").
		Where("id = ? AND tenant_id = ?", id, tid).First(&l).Error; err != nil {
		return nil, apperror.FromDB(err, "lease")
	}
	return &l, nil
}

// GET /api/portal/leases
func (h *Handlers) ListLeases() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tid, err := tenantID(c)
		if err != nil {
			return err
		}
		var rows []models.Lease
		if err := h.db().Preload("Unit.Building").Preload("Tenant").
			Where("tenant_id = ?", tid).Order("start_date desc").Find(&rows).Error; err != nil {
			return apperror.Internal(err)
		}
		items := make([]fiber.Map, 0, len(rows))
		for _, l := range rows {
			records, err := lease.LoadSummary(h.db(), l, h.Leases.Today(), h.Leases.Locale())
			if err != nil {
				return apperror.Internal(err)
			}
			items = append(items, fiber.Map{"lease": lease.ToResponse(l), "totals": lease.Total(records)})
		}
		return c.JSON(items)
	}
}

// GET /api/portal/leases/:id
func (h *Handlers) GetLease() fiber.Handler {
	return func(c *fiber.Ctx) error {
		l, err := h.ownLease(c)
		if err != nil {
			return err
		}
		records, err := lease.LoadSummary(h.db(), *l, h.Leases.Today(), h.Leases.Locale())
		if err != nil {
			return apperror.Internal(err)
		}
		var payments []models.Payment
		if err := h.db().Where("lease_id = ?", l.ID).Order("payment_date desc, id desc").Find(&payments).Error; err != nil {
			return apperror.Internal(err)
		}
		return c.JSON(fiber.Map{
			"lease":           lease.ToResponse(*l),
			"payment_summary": records,
			"totals":          lease.Total(records),
			"payments":        payment.ToResponses(payments),
		})
	}
}

// GET /api/portal/payments
func (h *Handlers) ListPayments() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tid, err := tenantID(c)
		if err != nil {
			return err
		}
		page := httpx.Paging(c)
		var rows []models.Payment
		if err := h.db().Preload("Lease.Unit").
			Where("lease_id IN (?)", h.db().Model(&models.Lease{}).Select("id").Where("tenant_id = ?", tid)).
			Order("payment_date desc, id desc").
			Limit(page.Limit).Offset(page.Offset).
			Find(&rows).Error; err != nil {
			return apperror.Internal(err)
		}
		return c.JSON(payment.ToResponses(rows))
	}
}

// GET /api/portal/maintenance
func (h *Handlers) ListMaintenance() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tid, err := tenantID(c)
		if err != nil {
			return err
		}
		var rows []models.MaintenanceRequest
		if err := h.Maintenance.Query(maintenance.Filter{TenantID: tid}).
			Preload("Lease.Unit.Building").
			Order("reported_at desc, id desc").
			Find(&rows).Error; err != nil {
			return apperror.Internal(err)
		}
		return c.JSON(maintenance.ToResponses(rows))
	}
}

// POST /api/portal/maintenance
func (h *Handlers) CreateMaintenance() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tid, err := tenantID(c)
		if err != nil {
			return err
		}
		in, err := maintenance.ParseCreate(c)
		if err != nil {
			return err
		}
		r, err := h.Maintenance.Create(c.UserContext(), in, auth.UserID(c), tid)
		if err != nil {
			return err
		}
		full, err := h.Maintenance.Get(c.UserContext(), r.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(maintenance.ToResponse(*full))
	}
}
