package report

import (
	"strings"

	"rental-backend/internal/apperror"
	"rental-backend/internal/audit"
	"rental-backend/internal/httpx"
	"rental-backend/internal/models"
	"rental-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ContractTemplateRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Body string `json:"body" validate:"required"`
}

type ContractTemplateResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Body string `json:"body"`
}

func toTemplateResponse(t models.ContractTemplate) ContractTemplateResponse {
	return ContractTemplateResponse{ID: t.ID, Name: t.Name, Body: t.Body}
}

func parseTemplate(c *fiber.Ctx, db *gorm.DB, exceptID uint) (ContractTemplateRequest, error) {
	var body ContractTemplateRequest
	if err := c.BodyParser(&body); err != nil {
		return body, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	body.Name = strings.TrimSpace(body.Name)
	if err := validation.Struct(body); err != nil {
		return body, err
	}
	if _, err := ParseContract(body.Body); err != nil {
		return body, apperror.Invalid("body", err.Error())
	}
	var n int64
	if err := db.Model(&models.ContractTemplate{}).Where("name = ? AND id <> ?", body.Name, exceptID).Count(&n).Error; err != nil {
		return body, apperror.Internal(err)
	}
	if n > 0 {
		return body, apperror.Invalid("name", "a template with this name already exists")
	}
	return body, nil
}

// GET /api/contract-templates
func ListTemplatesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []models.ContractTemplate
		if err := db.Order("name").Find(&rows).Error; err != nil {
			return apperror.Internal(err)
		}
		out := make([]ContractTemplateResponse, 0, len(rows))
		for _, t := range rows {
			out = append(out, toTemplateResponse(t))
		}
		return c.JSON(out)
	}
}

// POST /api/contract-templates
func CreateTemplateHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, err := parseTemplate(c, db, 0)
		if err != nil {
			return err
		}
		t := models.ContractTemplate{Name: body.Name, Body: body.Body}
		if err := db.Create(&t).Error; err != nil {
			return apperror.Internal(err)
		}
		audit.Record(c, db, audit.LogOptions{
			EntityType:  "contract_template",
			EntityID:    t.ID,
			Action:      models.AuditActionCreate,
			Description: "Contract template created: " + t.Name,
			After:       toTemplateResponse(t),
		})
		return c.Status(fiber.StatusCreated).JSON(toTemplateResponse(t))
	}
}

// PUT /api/contract-templates/:id
func UpdateTemplateHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		var t models.ContractTemplate
		if err := db.First(&t, id).Error; err != nil {
			return apperror.FromDB(err, "contract template")
		}
		body, err := parseTemplate(c, db, t.ID)
		if err != nil {
			return err
		}
		before := toTemplateResponse(t)
		t.Name, t.Body = body.Name, body.Body
		if err := db.Save(&t).Error; err != nil {
			return apperror.Internal(err)
		}
		audit.Record(c, db, audit.LogOptions{
			EntityType:  "contract_template",
			EntityID:    t.ID,
			Action:      models.AuditActionUpdate,
			Description: "Contract template updated: " + t.Name,
			Before:      before,
			After:       toTemplateResponse(t),
		})
		return c.JSON(toTemplateResponse(t))
	}
}

// DELETE /api/contract-templates/:id
func DeleteTemplateHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		var used int64
		if err := db.Model(&models.Lease{}).Where("template_id = ?", id).Count(&used).Error; err != nil {
			return apperror.Internal(err)
		}
		if used > 0 {
			return apperror.Conflict("template is used by leases")
		}
		res := db.Delete(&models.ContractTemplate{}, id)
		if res.Error != nil {
			return apperror.Internal(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound("contract template")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
