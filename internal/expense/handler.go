package expense

import (
	"fmt"
	"strings"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/audit"
	"rental-backend/internal/httpx"
	"rental-backend/internal/models"
	"rental-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ExpenseCategoryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type CreateExpenseRequest struct {
	Date        string          `json:"expense_date" validate:"required"` // "2025-12-09"
	BuildingID  uint            `json:"building_id" validate:"required"`
	CategoryID  uint            `json:"category_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
}

type ExpenseResponse struct {
	ID            uint            `json:"id"`
	VoucherNumber *string         `json:"voucher_number"`
	BuildingID    uint            `json:"building_id"`
	BuildingName  string          `json:"building_name,omitempty"`
	CategoryID    uint            `json:"category_id"`
	Category      string          `json:"category,omitempty"`
	Date          string          `json:"expense_date"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	HasReceipt    bool            `json:"has_receipt"`
}

func ToResponse(e models.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:            e.ID,
		VoucherNumber: e.VoucherNumber,
		BuildingID:    e.BuildingID,
		BuildingName:  e.Building.Name,
		CategoryID:    e.CategoryID,
		Category:      e.Category.Name,
		Date:          e.Date.Format(time.DateOnly),
		Amount:        e.Amount,
		Description:   e.Description,
		HasReceipt:    e.ReceiptPath != "",
	}
}

// -------------------------
// Categories
// -------------------------

func categoryNameTaken(db *gorm.DB, name string, exceptID uint) error {
	var n int64
	if err := db.Model(&models.ExpenseCategory{}).Where("LOWER(name) = ? AND id <> ?", strings.ToLower(name), exceptID).Count(&n).Error; err != nil {
		return apperror.Internal(err)
	}
	if n > 0 {
		return apperror.Invalid("name", "a category with this name already exists")
	}
	return nil
}

func parseCategory(c *fiber.Ctx) (string, error) {
	var body CategoryRequest
	if err := c.BodyParser(&body); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	body.Name = strings.TrimSpace(body.Name)
	if err := validation.Struct(body); err != nil {
		return "", err
	}
	return body.Name, nil
}

// GET /api/expense-categories
func ListExpenseCategoriesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var cats []models.ExpenseCategory
		if err := db.Order("name asc").Find(&cats).Error; err != nil {
			return apperror.Internal(err)
		}
		resp := make([]ExpenseCategoryResponse, 0, len(cats))
		for _, ct := range cats {
			resp = append(resp, ExpenseCategoryResponse{ID: ct.ID, Name: ct.Name})
		}
		return c.JSON(resp)
	}
}

// POST /api/expense-categories
func CreateExpenseCategoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := parseCategory(c)
		if err != nil {
			return err
		}
		if err := categoryNameTaken(db, name, 0); err != nil {
			return err
		}
		cat := models.ExpenseCategory{Name: name}
		if err := db.Create(&cat).Error; err != nil {
			return apperror.Internal(err)
		}
		return c.Status(fiber.StatusCreated).JSON(ExpenseCategoryResponse{ID: cat.ID, Name: cat.Name})
	}
}

// PUT /api/expense-categories/:id
func UpdateExpenseCategoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		var cat models.ExpenseCategory
		if err := db.First(&cat, id).Error; err != nil {
			return apperror.FromDB(err, "expense category")
		}
		name, err := parseCategory(c)
		if err != nil {
			return err
		}
		if err := categoryNameTaken(db, name, cat.ID); err != nil {
			return err
		}
		cat.Name = name
		if err := db.Save(&cat).Error; err != nil {
			return apperror.Internal(err)
		}
		return c.JSON(ExpenseCategoryResponse{ID: cat.ID, Name: cat.Name})
	}
}

// DELETE /api/expense-categories/:id
func DeleteExpenseCategoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		var used int64
		if err := db.Model(&models.Expense{}).Where("category_id = ?", id).Count(&used).Error; err != nil {
			return apperror.Internal(err)
		}
		if used > 0 {
			return apperror.Conflict("category is used by expenses")
		}
		res := db.Delete(&models.ExpenseCategory{}, id)
		if res.Error != nil {
			return apperror.Internal(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound("expense category")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// -------------------------
// Expenses
// -------------------------

// POST /api/expenses
func CreateExpenseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateExpenseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validation.Struct(body); err != nil {
			return err
		}
		date, err := httpx.Date("expense_date", body.Date)
		if err != nil {
			return err
		}

		e, err := svc.Create(c.UserContext(), Input{
			BuildingID:  body.BuildingID,
			CategoryID:  body.CategoryID,
			Description: body.Description,
			Amount:      body.Amount,
			Date:        date,
		})
		if err != nil {
			return err
		}

		// the raw row is logged so that undo can recreate it
		audit.Record(c, svc.DB(), audit.LogOptions{
			EntityType:  "expense",
			EntityID:    e.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Expense %s of %s recorded", *e.VoucherNumber, e.Amount.StringFixed(2)),
			After:       e,
		})

		full, err := svc.Get(c.UserContext(), e.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ToResponse(*full))
	}
}

// GET /api/expenses?building_id=&category_id=&from=&to=
func ListExpensesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := FilterFromQuery(c, svc.DB())
		if err != nil {
			return err
		}

		var total int64
		if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return apperror.Internal(err)
		}
		var sum struct{ Total decimal.Decimal }
		if err := q.Session(&gorm.Session{}).Select("COALESCE(SUM(amount), 0) AS total").Scan(&sum).Error; err != nil {
			return apperror.Internal(err)
		}

		page := httpx.Paging(c)
		var rows []models.Expense
		if err := q.Session(&gorm.Session{}).Preload("Building").Preload("Category").
			Order("expense_date desc, id desc").
			Limit(page.Limit).Offset(page.Offset).
			Find(&rows).Error; err != nil {
			return apperror.Internal(err)
		}

		items := make([]ExpenseResponse, 0, len(rows))
		for _, e := range rows {
			items = append(items, ToResponse(e))
		}
		return c.JSON(fiber.Map{"items": items, "total": total, "total_amount": sum.Total})
	}
}

// FilterFromQuery builds the expense query shared by the list and export
// endpoints.
func FilterFromQuery(c *fiber.Ctx, db *gorm.DB) (*gorm.DB, error) {
	q := db.Model(&models.Expense{})
	for _, col := range []string{"building_id", "category_id"} {
		id, err := httpx.QueryUint(c, col)
		if err != nil {
			return nil, err
		}
		if id > 0 {
			q = q.Where(col+" = ?", id)
		}
	}
	from, err := httpx.QueryDate(c, "from")
	if err != nil {
		return nil, err
	}
	if from != nil {
		q = q.Where("expense_date >= ?", *from)
	}
	to, err := httpx.QueryDate(c, "to")
	if err != nil {
		return nil, err
	}
	if to != nil {
		q = q.Where("expense_date <= ?", *to)
	}
	return q, nil
}

// GET /api/expenses/:id
func GetExpenseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		e, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(*e))
	}
}

// DELETE /api/expenses/:id (admin)
func DeleteExpenseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		e, err := svc.Delete(c.UserContext(), id)
		if err != nil {
			return err
		}
		audit.Record(c, svc.DB(), audit.LogOptions{
			EntityType:  "expense",
			EntityID:    e.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Expense %d of %s deleted", e.ID, e.Amount.StringFixed(2)),
			Before:      e,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/expenses/:id/receipt (multipart, field "receipt")
func UploadReceiptHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		fh, err := c.FormFile("receipt")
		if err != nil {
			return apperror.Invalid("receipt", "is required")
		}
		e, err := svc.AttachReceipt(c.UserContext(), id, fh)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(*e))
	}
}

// GET /api/expenses/:id/receipt
func DownloadReceiptHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		path, err := svc.ReceiptFile(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.Download(path)
	}
}

// GET /api/expenses/summary/monthly?year=2025&month=12[&building_id=1]
func MonthlyExpenseSummaryHandler(svc *Service, today func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		year, month, err := httpx.YearMonth(c, today())
		if err != nil {
			return err
		}
		bid, err := httpx.QueryUint(c, "building_id")
		if err != nil {
			return err
		}
		sum, err := svc.Summary(c.UserContext(), bid, year, month)
		if err != nil {
			return err
		}
		return c.JSON(sum)
	}
}
