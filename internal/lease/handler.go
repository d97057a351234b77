package lease

import (
	"fmt"
	"strings"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/audit"
	"rental-backend/internal/httpx"
	"rental-backend/internal/maintenance"
	"rental-backend/internal/models"
	"rental-backend/internal/payment"
	"rental-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateLeaseRequest struct {
	UnitID             uint             `json:"unit_id" validate:"required"`
	TenantID           uint             `json:"tenant_id" validate:"required"`
	TemplateID         *uint            `json:"template_id"`
	ContractNumber     string           `json:"contract_number" validate:"required,max=50"`
	ContractFormNumber string           `json:"contract_form_number" validate:"max=50"`
	MonthlyRent        decimal.Decimal  `json:"monthly_rent"`
	StartDate          string           `json:"start_date" validate:"required"`
	EndDate            string           `json:"end_date" validate:"required"`
	ElectricityMeter   string           `json:"electricity_meter" validate:"max=50"`
	WaterMeter         string           `json:"water_meter" validate:"max=50"`
	OfficeFee          *decimal.Decimal `json:"office_fee"`
	AdminFee           *decimal.Decimal `json:"admin_fee"`
	AutoRenew          bool             `json:"auto_renew"`
}

type UpdateLeaseRequest struct {
	UnitID             *uint            `json:"unit_id"`
	TemplateID         *uint            `json:"template_id"`
	ContractFormNumber *string          `json:"contract_form_number"`
	MonthlyRent        *decimal.Decimal `json:"monthly_rent"`
	StartDate          *string          `json:"start_date"`
	EndDate            *string          `json:"end_date"`
	ElectricityMeter   *string          `json:"electricity_meter"`
	WaterMeter         *string          `json:"water_meter"`
	OfficeFee          *decimal.Decimal `json:"office_fee"`
	AdminFee           *decimal.Decimal `json:"admin_fee"`
	AutoRenew          *bool            `json:"auto_renew"`
}

type CancelLeaseRequest struct {
	Date   string `json:"cancellation_date"` // defaults to today
	Reason string `json:"cancellation_reason" validate:"required,max=500"`
}

type RenewLeaseRequest struct {
	Duration    Duration         `json:"duration" validate:"required,oneof=1y 6m 3m manual"`
	EndDate     *string          `json:"end_date"`
	MonthlyRent *decimal.Decimal `json:"monthly_rent"`
	AutoRenew   bool             `json:"auto_renew"`
}

type LeaseResponse struct {
	ID                 uint               `json:"id"`
	ContractNumber     string             `json:"contract_number"`
	ContractFormNumber string             `json:"contract_form_number"`
	UnitID             uint               `json:"unit_id"`
	UnitNumber         string             `json:"unit_number,omitempty"`
	BuildingName       string             `json:"building_name,omitempty"`
	TenantID           uint               `json:"tenant_id"`
	TenantName         string             `json:"tenant_name,omitempty"`
	TemplateID         *uint              `json:"template_id"`
	MonthlyRent        decimal.Decimal    `json:"monthly_rent"`
	StartDate          string             `json:"start_date"`
	EndDate            string             `json:"end_date"`
	Status             models.LeaseStatus `json:"status"`
	ElectricityMeter   string             `json:"electricity_meter"`
	WaterMeter         string             `json:"water_meter"`
	OfficeFee          decimal.Decimal    `json:"office_fee"`
	AdminFee           decimal.Decimal    `json:"admin_fee"`
	RegistrationFee    decimal.Decimal    `json:"registration_fee"`
	AutoRenew          bool               `json:"auto_renew"`
	CancellationDate   *string            `json:"cancellation_date"`
	CancellationReason string             `json:"cancellation_reason,omitempty"`
	RenewedFromID      *uint              `json:"renewed_from_id"`
}

func ToResponse(l models.Lease) LeaseResponse {
	r := LeaseResponse{
		ID:                 l.ID,
		ContractNumber:     l.ContractNumber,
		ContractFormNumber: l.ContractFormNumber,
		UnitID:             l.UnitID,
		UnitNumber:         l.Unit.UnitNumber,
		BuildingName:       l.Unit.Building.Name,
		TenantID:           l.TenantID,
		TenantName:         l.Tenant.Name,
		TemplateID:         l.TemplateID,
		MonthlyRent:        l.MonthlyRent,
		StartDate:          l.StartDate.Format(time.DateOnly),
		EndDate:            l.EndDate.Format(time.DateOnly),
		Status:             l.Status,
		ElectricityMeter:   l.ElectricityMeter,
		WaterMeter:         l.WaterMeter,
		OfficeFee:          l.OfficeFee,
		AdminFee:           l.AdminFee,
		RegistrationFee:    l.RegistrationFee,
		AutoRenew:          l.AutoRenew,
		CancellationReason: l.CancellationReason,
		RenewedFromID:      l.RenewedFromID,
	}
	if l.CancellationDate != nil {
		s := l.CancellationDate.Format(time.DateOnly)
		r.CancellationDate = &s
	}
	return r
}

func checkRent(rent decimal.Decimal) error {
	if !rent.IsPositive() {
		return apperror.Invalid("monthly_rent", "must be greater than 0")
	}
	return nil
}

// FilterFromQuery builds the lease query shared by the list and export
// endpoints. The result can be reused for several statements.
func FilterFromQuery(c *fiber.Ctx, db *gorm.DB) (*gorm.DB, error) {
	dbq := db.Model(&models.Lease{})

	if st := c.Query("status"); st != "" {
		dbq = dbq.Where("leases.status = ?", st)
	}
	for _, col := range []string{"unit_id", "tenant_id"} {
		id, err := httpx.QueryUint(c, col)
		if err != nil {
			return nil, err
		}
		if id > 0 {
			dbq = dbq.Where("leases."+col+" = ?", id)
		}
	}
	bid, err := httpx.QueryUint(c, "building_id")
	if err != nil {
		return nil, err
	}
	if bid > 0 {
		dbq = dbq.Where("leases.unit_id IN (?)", db.Model(&models.Unit{}).Select("id").Where("building_id = ?", bid))
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("LOWER(leases.contract_number) LIKE ? OR leases.tenant_id IN (?)", like,
			db.Model(&models.Tenant{}).Select("id").Where("LOWER(name) LIKE ?", like))
	}

	return dbq.Session(&gorm.Session{}), nil
}

// GET /api/leases?status=&unit_id=&tenant_id=&building_id=&q=
func ListLeasesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq, err := FilterFromQuery(c, svc.DB())
		if err != nil {
			return err
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return apperror.Internal(err)
		}
		page := httpx.Paging(c)
		var rows []models.Lease
		if err := dbq.Preload("Unit.Building").Preload("Tenant").
			Order("leases.end_date asc, leases.id asc").Limit(page.Limit).Offset(page.Offset).Find(&rows).Error; err != nil {
			return apperror.Internal(err)
		}

		items := make([]LeaseResponse, 0, len(rows))
		for _, l := range rows {
			items = append(items, ToResponse(l))
		}

		stats, err := CountByStatus(svc.DB())
		if err != nil {
			return apperror.Internal(err)
		}
		return c.JSON(fiber.Map{"items": items, "total": total, "stats": stats})
	}
}

// POST /api/leases
func CreateLeaseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateLeaseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validation.Struct(body); err != nil {
			return err
		}
		if err := checkRent(body.MonthlyRent); err != nil {
			return err
		}
		start, err := httpx.Date("start_date", body.StartDate)
		if err != nil {
			return err
		}
		end, err := httpx.Date("end_date", body.EndDate)
		if err != nil {
			return err
		}

		l, err := svc.Create(c.UserContext(), CreateInput{
			UnitID:             body.UnitID,
			TenantID:           body.TenantID,
			TemplateID:         body.TemplateID,
			ContractNumber:     strings.TrimSpace(body.ContractNumber),
			ContractFormNumber: body.ContractFormNumber,
			MonthlyRent:        body.MonthlyRent,
			StartDate:          start,
			EndDate:            end,
			ElectricityMeter:   body.ElectricityMeter,
			WaterMeter:         body.WaterMeter,
			OfficeFee:          body.OfficeFee,
			AdminFee:           body.AdminFee,
			AutoRenew:          body.AutoRenew,
		})
		if err != nil {
			return err
		}

		audit.Record(c, svc.DB(), audit.LogOptions{
			EntityType:  "lease",
			EntityID:    l.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Lease %s created", l.ContractNumber),
			After:       ToResponse(*l),
		})
		return c.Status(fiber.StatusCreated).JSON(ToResponse(*l))
	}
}

// GET /api/leases/:id
func GetLeaseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		l, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		records, err := LoadSummary(svc.DB().WithContext(c.UserContext()), *l, svc.Today(), svc.Locale())
		if err != nil {
			return apperror.Internal(err)
		}

		var payments []models.Payment
		if err := svc.DB().Where("lease_id = ?", id).Order("payment_date desc, id desc").Find(&payments).Error; err != nil {
			return apperror.Internal(err)
		}
		var requests []models.MaintenanceRequest
		if err := svc.DB().Where("lease_id = ?", id).Order("reported_at desc").Find(&requests).Error; err != nil {
			return apperror.Internal(err)
		}

		return c.JSON(fiber.Map{
			"lease":                ToResponse(*l),
			"payment_summary":      records,
			"totals":               Total(records),
			"payments":             payment.ToResponses(payments),
			"maintenance_requests": maintenance.ToResponses(requests),
		})
	}
}

// GET /api/leases/:id/summary
func SummaryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		l, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		records, err := LoadSummary(svc.DB().WithContext(c.UserContext()), *l, svc.Today(), svc.Locale())
		if err != nil {
			return apperror.Internal(err)
		}
		return c.JSON(fiber.Map{"lease_id": id, "months": records, "totals": Total(records)})
	}
}

// PUT /api/leases/:id
func UpdateLeaseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateLeaseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.MonthlyRent != nil {
			if err := checkRent(*body.MonthlyRent); err != nil {
				return err
			}
		}
		start, err := httpx.OptionalDate("start_date", body.StartDate)
		if err != nil {
			return err
		}
		end, err := httpx.OptionalDate("end_date", body.EndDate)
		if err != nil {
			return err
		}

		before, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		l, err := svc.Update(c.UserContext(), id, UpdateInput{
			UnitID:             body.UnitID,
			TemplateID:         body.TemplateID,
			ContractFormNumber: body.ContractFormNumber,
			MonthlyRent:        body.MonthlyRent,
			StartDate:          start,
			EndDate:            end,
			ElectricityMeter:   body.ElectricityMeter,
			WaterMeter:         body.WaterMeter,
			OfficeFee:          body.OfficeFee,
			AdminFee:           body.AdminFee,
			AutoRenew:          body.AutoRenew,
		})
		if err != nil {
			return err
		}

		audit.Record(c, svc.DB(), audit.LogOptions{
			EntityType:  "lease",
			EntityID:    l.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Lease %s updated", l.ContractNumber),
			Before:      ToResponse(*before),
			After:       ToResponse(*l),
		})
		return c.JSON(ToResponse(*l))
	}
}

// POST /api/leases/:id/cancel
func CancelLeaseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		var body CancelLeaseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validation.Struct(body); err != nil {
			return err
		}
		date := svc.Today()
		if body.Date != "" {
			if date, err = httpx.Date("cancellation_date", body.Date); err != nil {
				return err
			}
		}

		l, err := svc.Cancel(c.UserContext(), id, date, strings.TrimSpace(body.Reason))
		if err != nil {
			return err
		}
		audit.Record(c, svc.DB(), audit.LogOptions{
			EntityType:  "lease",
			EntityID:    l.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Lease %s cancelled: %s", l.ContractNumber, l.CancellationReason),
			After:       ToResponse(*l),
		})
		return c.JSON(ToResponse(*l))
	}
}

// POST /api/leases/:id/reinstate
func ReinstateLeaseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		l, err := svc.Reinstate(c.UserContext(), id)
		if err != nil {
			return err
		}
		audit.Record(c, svc.DB(), audit.LogOptions{
			EntityType:  "lease",
			EntityID:    l.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Lease %s reinstated", l.ContractNumber),
			After:       ToResponse(*l),
		})
		return c.JSON(ToResponse(*l))
	}
}

// POST /api/leases/:id/renew
func RenewLeaseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		var body RenewLeaseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validation.Struct(body); err != nil {
			return err
		}
		if body.MonthlyRent != nil {
			if err := checkRent(*body.MonthlyRent); err != nil {
				return err
			}
		}
		end, err := httpx.OptionalDate("end_date", body.EndDate)
		if err != nil {
			return err
		}

		next, err := svc.Renew(c.UserContext(), id, RenewInput{
			Duration:    body.Duration,
			EndDate:     end,
			MonthlyRent: body.MonthlyRent,
			AutoRenew:   body.AutoRenew,
		})
		if err != nil {
			return err
		}
		audit.Record(c, svc.DB(), audit.LogOptions{
			EntityType:  "lease",
			EntityID:    next.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Lease %d renewed as %s", id, next.ContractNumber),
			After:       ToResponse(*next),
		})
		return c.Status(fiber.StatusCreated).JSON(ToResponse(*next))
	}
}
