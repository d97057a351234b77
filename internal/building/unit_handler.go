package building

import (
	"errors"
	"fmt"
	"strings"

	"rental-backend/internal/apperror"
	"rental-backend/internal/audit"
	"rental-backend/internal/httpx"
	"rental-backend/internal/models"
	"rental-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UnitResponse struct {
	ID           uint              `json:"id"`
	BuildingID   uint              `json:"building_id"`
	BuildingName string            `json:"building_name,omitempty"`
	UnitNumber   string            `json:"unit_number"`
	Type         models.UnitType   `json:"type"`
	Floor        int               `json:"floor"`
	IsAvailable  bool              `json:"is_available"`
	Status       models.UnitStatus `json:"status"`
}

type CreateUnitRequest struct {
	BuildingID uint              `json:"building_id" validate:"required"`
	UnitNumber string            `json:"unit_number" validate:"required,max=20"`
	Type       models.UnitType   `json:"type" validate:"required,oneof=office apartment shop"`
	Floor      int               `json:"floor"`
	Status     models.UnitStatus `json:"status" validate:"omitempty,oneof=ready under_maintenance"`
}

type UpdateUnitRequest struct {
	UnitNumber *string            `json:"unit_number" validate:"omitempty,min=1,max=20"`
	Type       *models.UnitType   `json:"type" validate:"omitempty,oneof=office apartment shop"`
	Floor      *int               `json:"floor"`
	Status     *models.UnitStatus `json:"status" validate:"omitempty,oneof=ready under_maintenance"`
}

func toUnitResponse(u models.Unit) UnitResponse {
	return UnitResponse{
		ID:           u.ID,
		BuildingID:   u.BuildingID,
		BuildingName: u.Building.Name,
		UnitNumber:   u.UnitNumber,
		Type:         u.Type,
		Floor:        u.Floor,
		IsAvailable:  u.IsAvailable,
		Status:       u.Status,
	}
}

func checkUnitNumber(db *gorm.DB, buildingID uint, number string, exceptID uint) error {
	var n int64
	if err := db.Model(&models.Unit{}).
		Where("building_id = ? AND unit_number = ? AND id <> ?", buildingID, number, exceptID).
		Count(&n).Error; err != nil {
		return apperror.Internal(err)
	}
	if n > 0 {
		return apperror.Invalid("unit_number", "already exists in this building")
	}
	return nil
}

// GET /api/units?building_id=&available=&type=&status=
func ListUnitsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := db.Model(&models.Unit{})
		bid, err := httpx.QueryUint(c, "building_id")
		if err != nil {
			return err
		}
		if bid > 0 {
			dbq = dbq.Where("building_id = ?", bid)
		}
		if v := c.Query("available"); v != "" {
			dbq = dbq.Where("is_available = ?", c.QueryBool("available"))
		}
		if t := c.Query("type"); t != "" {
			dbq = dbq.Where("type = ?", t)
		}
		if st := c.Query("status"); st != "" {
			dbq = dbq.Where("status = ?", st)
		}

		var units []models.Unit
		if err := dbq.Preload("Building").Order("building_id, floor, unit_number").Find(&units).Error; err != nil {
			return apperror.Internal(err)
		}
		res := make([]UnitResponse, 0, len(units))
		for _, u := range units {
			res = append(res, toUnitResponse(u))
		}
		return c.JSON(res)
	}
}

// POST /api/units
func CreateUnitHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUnitRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.UnitNumber = strings.TrimSpace(body.UnitNumber)
		if err := validation.Struct(body); err != nil {
			return err
		}
		if body.Status == "" {
			body.Status = models.UnitStatusReady
		}

		var b models.Building
		if err := db.First(&b, body.BuildingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.Invalid("building_id", "building does not exist")
			}
			return apperror.Internal(err)
		}
		if err := checkUnitNumber(db, b.ID, body.UnitNumber, 0); err != nil {
			return err
		}

		u := models.Unit{
			BuildingID:  b.ID,
			UnitNumber:  body.UnitNumber,
			Type:        body.Type,
			Floor:       body.Floor,
			IsAvailable: true,
			Status:      body.Status,
		}
		if err := db.Omit(clause.Associations).Create(&u).Error; err != nil {
			return apperror.Internal(err)
		}
		u.Building = b

		audit.Record(c, db, audit.LogOptions{
			EntityType:  "unit",
			EntityID:    u.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Unit %s created in %s", u.UnitNumber, b.Name),
			After:       toUnitResponse(u),
		})
		return c.Status(fiber.StatusCreated).JSON(toUnitResponse(u))
	}
}

// GET /api/units/:id
func GetUnitHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		var u models.Unit
		if err := db.Preload("Building").First(&u, id).Error; err != nil {
			return apperror.FromDB(err, "unit")
		}
		var leases []models.Lease
		if err := db.Preload("Tenant").Where("unit_id = ?", id).Order("start_date desc").Find(&leases).Error; err != nil {
			return apperror.Internal(err)
		}

		history := make([]fiber.Map, 0, len(leases))
		for _, l := range leases {
			history = append(history, fiber.Map{
				"id":              l.ID,
				"contract_number": l.ContractNumber,
				"tenant_name":     l.Tenant.Name,
				"start_date":      l.StartDate.Format("2006-01-02"),
				"end_date":        l.EndDate.Format("2006-01-02"),
				"status":          l.Status,
				"monthly_rent":    l.MonthlyRent,
			})
		}
		return c.JSON(fiber.Map{"unit": toUnitResponse(u), "leases": history})
	}
}

// PUT /api/units/:id
//
// Availability is owned by the lease service and cannot be set here.
func UpdateUnitHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateUnitRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validation.Struct(body); err != nil {
			return err
		}

		var u models.Unit
		if err := db.Preload("Building").First(&u, id).Error; err != nil {
			return apperror.FromDB(err, "unit")
		}
		before := toUnitResponse(u)

		updates := map[string]interface{}{}
		if body.UnitNumber != nil {
			number := strings.TrimSpace(*body.UnitNumber)
			if err := checkUnitNumber(db, u.BuildingID, number, u.ID); err != nil {
				return err
			}
			updates["unit_number"] = number
			u.UnitNumber = number
		}
		if body.Type != nil {
			updates["type"] = *body.Type
			u.Type = *body.Type
		}
		if body.Floor != nil {
			updates["floor"] = *body.Floor
			u.Floor = *body.Floor
		}
		if body.Status != nil {
			updates["status"] = *body.Status
			u.Status = *body.Status
		}
		if len(updates) > 0 {
			if err := db.Model(&models.Unit{}).Where("id = ?", u.ID).Updates(updates).Error; err != nil {
				return apperror.Internal(err)
			}
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  "unit",
			EntityID:    u.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Unit %s updated", u.UnitNumber),
			Before:      before,
			After:       toUnitResponse(u),
		})
		return c.JSON(toUnitResponse(u))
	}
}

// DELETE /api/units/:id
func DeleteUnitHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		var u models.Unit
		if err := db.First(&u, id).Error; err != nil {
			return apperror.FromDB(err, "unit")
		}
		var leases int64
		if err := db.Model(&models.Lease{}).Where("unit_id = ?", id).Count(&leases).Error; err != nil {
			return apperror.Internal(err)
		}
		if leases > 0 {
			return apperror.Conflict("unit has leases and cannot be deleted")
		}
		if err := db.Delete(&u).Error; err != nil {
			return apperror.Internal(err)
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  "unit",
			EntityID:    u.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Unit %s deleted", u.UnitNumber),
			Before:      toUnitResponse(u),
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
