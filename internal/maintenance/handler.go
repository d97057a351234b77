package maintenance

import (
	"fmt"

	"rental-backend/internal/apperror"
	"rental-backend/internal/audit"
	"rental-backend/internal/auth"
	"rental-backend/internal/httpx"
	"rental-backend/internal/models"
	"rental-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type CreateRequest struct {
	LeaseID     uint                       `json:"lease_id" validate:"required"`
	Title       string                     `json:"title" validate:"required,max=200"`
	Description string                     `json:"description"`
	Priority    models.MaintenancePriority `json:"priority" validate:"omitempty,oneof=low medium high"`
}

type UpdateRequest struct {
	Status     *models.MaintenanceStatus   `json:"status" validate:"omitempty,oneof=submitted in_progress completed cancelled"`
	Priority   *models.MaintenancePriority `json:"priority" validate:"omitempty,oneof=low medium high"`
	StaffNotes *string                     `json:"staff_notes"`
}

type Response struct {
	ID             uint                       `json:"id"`
	LeaseID        uint                       `json:"lease_id"`
	ContractNumber string                     `json:"contract_number,omitempty"`
	TenantName     string                     `json:"tenant_name,omitempty"`
	UnitNumber     string                     `json:"unit_number,omitempty"`
	BuildingName   string                     `json:"building_name,omitempty"`
	Title          string                     `json:"title"`
	Description    string                     `json:"description"`
	Priority       models.MaintenancePriority `json:"priority"`
	Status         models.MaintenanceStatus   `json:"status"`
	StaffNotes     string                     `json:"staff_notes"`
	ReportedAt     string                     `json:"reported_at"`
	ResolvedAt     *string                    `json:"resolved_at"`
}

func ToResponse(r models.MaintenanceRequest) Response {
	resp := Response{
		ID:             r.ID,
		LeaseID:        r.LeaseID,
		ContractNumber: r.Lease.ContractNumber,
		TenantName:     r.Lease.Tenant.Name,
		UnitNumber:     r.Lease.Unit.UnitNumber,
		BuildingName:   r.Lease.Unit.Building.Name,
		Title:          r.Title,
		Description:    r.Description,
		Priority:       r.Priority,
		Status:         r.Status,
		StaffNotes:     r.StaffNotes,
		ReportedAt:     r.ReportedAt.Format("2006-01-02 15:04:05"),
	}
	if r.ResolvedAt != nil {
		s := r.ResolvedAt.Format("2006-01-02 15:04:05")
		resp.ResolvedAt = &s
	}
	return resp
}

func ToResponses(rs []models.MaintenanceRequest) []Response {
	out := make([]Response, 0, len(rs))
	for _, r := range rs {
		out = append(out, ToResponse(r))
	}
	return out
}

// ParseCreate reads and validates a new request body.
func ParseCreate(c *fiber.Ctx) (Input, error) {
	var body CreateRequest
	if err := c.BodyParser(&body); err != nil {
		return Input{}, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(body); err != nil {
		return Input{}, err
	}
	return Input{LeaseID: body.LeaseID, Title: body.Title, Description: body.Description, Priority: body.Priority}, nil
}

// FilterFromQuery reads the filters shared by the list and export endpoints.
func FilterFromQuery(c *fiber.Ctx) (Filter, error) {
	f := Filter{
		Status:   models.MaintenanceStatus(c.Query("status")),
		Priority: models.MaintenancePriority(c.Query("priority")),
	}
	var err error
	for name, dst := range map[string]*uint{"lease_id": &f.LeaseID, "tenant_id": &f.TenantID, "building_id": &f.BuildingID} {
		if *dst, err = httpx.QueryUint(c, name); err != nil {
			return f, err
		}
	}
	return f, nil
}

// GET /api/maintenance?status=&priority=&lease_id=&tenant_id=&building_id=
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := FilterFromQuery(c)
		if err != nil {
			return err
		}

		var total int64
		if err := svc.Query(f).Count(&total).Error; err != nil {
			return apperror.Internal(err)
		}
		page := httpx.Paging(c)
		var rows []models.MaintenanceRequest
		if err := svc.Query(f).Preload("Lease.Tenant").Preload("Lease.Unit.Building").
			Order("reported_at desc, id desc").Limit(page.Limit).Offset(page.Offset).
			Find(&rows).Error; err != nil {
			return apperror.Internal(err)
		}
		return c.JSON(fiber.Map{"items": ToResponses(rows), "total": total})
	}
}

// GET /api/maintenance/:id
func GetHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		r, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(*r))
	}
}

// POST /api/maintenance
func CreateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, err := ParseCreate(c)
		if err != nil {
			return err
		}
		r, err := svc.Create(c.UserContext(), in, auth.UserID(c), 0)
		if err != nil {
			return err
		}
		full, err := svc.Get(c.UserContext(), r.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ToResponse(*full))
	}
}

// PATCH /api/maintenance/:id
func UpdateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validation.Struct(body); err != nil {
			return err
		}
		before, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		if _, err := svc.Apply(c.UserContext(), id, Update{Status: body.Status, Priority: body.Priority, StaffNotes: body.StaffNotes}); err != nil {
			return err
		}
		r, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		audit.Record(c, svc.DB(), audit.LogOptions{
			EntityType:  "maintenance_request",
			EntityID:    r.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Maintenance request %d updated (%s)", r.ID, r.Status),
			Before:      ToResponse(*before),
			After:       ToResponse(*r),
		})
		return c.JSON(ToResponse(*r))
	}
}
