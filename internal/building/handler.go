// Package building manages buildings and their rentable units.
package building

import (
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

type BuildingResponse struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	UnitCount  int64  `json:"unit_count"`
	VacantUnit int64  `json:"vacant_units"`
	CreatedAt  string `json:"created_at"`
}

type BuildingRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Address string `json:"address" validate:"required"`
}

func toBuildingResponse(b models.Building) BuildingResponse {
	return BuildingResponse{
		ID:        b.ID,
		Name:      b.Name,
		Address:   b.Address,
		CreatedAt: b.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

type unitCount struct {
	BuildingID uint
	Total      int64
	Vacant     int64
}

func countUnits(db *gorm.DB) (map[uint]unitCount, error) {
	var rows []unitCount
	err := db.Model(&models.Unit{}).
		Select("building_id, COUNT(*) AS total, SUM(CASE WHEN is_available THEN 1 ELSE 0 END) AS vacant").
		Group("building_id").
		Scan(&rows).Error
	out := make(map[uint]unitCount, len(rows))
	for _, r := range rows {
		out[r.BuildingID] = r
	}
	return out, err
}

// GET /api/buildings
func ListBuildingsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var buildings []models.Building
		if err := db.Order("name").Find(&buildings).Error; err != nil {
			return apperror.Internal(err)
		}
		counts, err := countUnits(db)
		if err != nil {
			return apperror.Internal(err)
		}

		res := make([]BuildingResponse, 0, len(buildings))
		for _, b := range buildings {
			r := toBuildingResponse(b)
			r.UnitCount = counts[b.ID].Total
			r.VacantUnit = counts[b.ID].Vacant
			res = append(res, r)
		}
		return c.JSON(res)
	}
}

// POST /api/buildings
func CreateBuildingHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BuildingRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		if err := validation.Struct(body); err != nil {
			return err
		}

		b := models.Building{Name: body.Name, Address: strings.TrimSpace(body.Address)}
		if err := db.Create(&b).Error; err != nil {
			return apperror.Internal(err)
		}
		audit.Record(c, db, audit.LogOptions{
			EntityType:  "building",
			EntityID:    b.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Building %s created", b.Name),
			After:       toBuildingResponse(b),
		})
		return c.Status(fiber.StatusCreated).JSON(toBuildingResponse(b))
	}
}

// GET /api/buildings/:id
func GetBuildingHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		var b models.Building
		if err := db.Preload("Units", func(q *gorm.DB) *gorm.DB { return q.Order("floor, unit_number") }).
			First(&b, id).Error; err != nil {
			return apperror.FromDB(err, "building")
		}

		units := make([]UnitResponse, 0, len(b.Units))
		for _, u := range b.Units {
			u.Building = b
			units = append(units, toUnitResponse(u))
		}
		r := toBuildingResponse(b)
		r.UnitCount = int64(len(b.Units))
		for _, u := range b.Units {
			if u.IsAvailable {
				r.VacantUnit++
			}
		}
		return c.JSON(fiber.Map{"building": r, "units": units})
	}
}

// PUT /api/buildings/:id
func UpdateBuildingHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		var b models.Building
		if err := db.First(&b, id).Error; err != nil {
			return apperror.FromDB(err, "building")
		}
		before := toBuildingResponse(b)

		var body BuildingRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		if err := validation.Struct(body); err != nil {
			return err
		}
		b.Name = body.Name
		b.Address = strings.TrimSpace(body.Address)
		if err := db.Omit(clause.Associations).Save(&b).Error; err != nil {
			return apperror.Internal(err)
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  "building",
			EntityID:    b.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Building %s updated", b.Name),
			Before:      before,
			After:       toBuildingResponse(b),
		})
		return c.JSON(toBuildingResponse(b))
	}
}

// DELETE /api/buildings/:id
//
// Refused while any unit still has leases or the building has expenses.
func DeleteBuildingHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		var b models.Building
		if err := db.First(&b, id).Error; err != nil {
			return apperror.FromDB(err, "building")
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			var leases int64
			if err := tx.Model(&models.Lease{}).
				Where("unit_id IN (?)", tx.Model(&models.Unit{}).Select("id").Where("building_id = ?", id)).
				Count(&leases).Error; err != nil {
				return err
			}
			if leases > 0 {
				return apperror.Conflict("building has units with leases")
			}
			var expenses int64
			if err := tx.Model(&models.Expense{}).Where("building_id = ?", id).Count(&expenses).Error; err != nil {
				return err
			}
			if expenses > 0 {
				return apperror.Conflict("building has recorded expenses")
			}
			if err := tx.Where("building_id = ?", id).Delete(&models.Unit{}).Error; err != nil {
				return err
			}
			return tx.Delete(&b).Error
		})
		if err != nil {
			return apperror.FromDB(err, "building")
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  "building",
			EntityID:    b.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Building %s deleted", b.Name),
			Before:      toBuildingResponse(b),
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
