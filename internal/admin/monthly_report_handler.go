package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/audit"
	"rental-backend/internal/auth"
	"rental-backend/internal/datex"
	"rental-backend/internal/expense"
	"rental-backend/internal/httpx"
	"rental-backend/internal/models"
	"rental-backend/internal/report"
	"rental-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CreateMonthlyReportRequest struct {
	Year    int  `json:"year" validate:"required,min=2000,max=2100"`
	Month   int  `json:"month" validate:"required,min=1,max=12"`
	Replace bool `json:"replace"` // recompute an existing snapshot
}

type MonthlyReportResponse struct {
	ID            uint               `json:"id"`
	Year          int                `json:"year"`
	Month         int                `json:"month"`
	ReportDate    string             `json:"report_date"`
	TotalIncome   decimal.Decimal    `json:"total_income"`
	TotalExpenses decimal.Decimal    `json:"total_expenses"`
	NetProfit     decimal.Decimal    `json:"net_profit"`
	Data          *report.ProfitLoss `json:"report_data,omitempty"`
	CreatedAt     string             `json:"created_at"`
}

func toReportResponse(r models.MonthlyReport, withData bool) MonthlyReportResponse {
	resp := MonthlyReportResponse{
		ID:            r.ID,
		Year:          r.Year,
		Month:         r.Month,
		ReportDate:    r.ReportDate.Format("2006-01-02 15:04:05"),
		TotalIncome:   r.TotalIncome,
		TotalExpenses: r.TotalExpenses,
		NetProfit:     r.NetProfit,
		CreatedAt:     r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if withData && len(r.ReportData) > 0 {
		var pl report.ProfitLoss
		if err := json.Unmarshal(r.ReportData, &pl); err == nil {
			resp.Data = &pl
		}
	}
	return resp
}

// Snapshot stores the profit and loss of a closed month. A month can only be
// snapshotted once it has ended; an existing snapshot is replaced only when
// replace is set.
func Snapshot(ctx context.Context, db *gorm.DB, exp *expense.Service, year int, month time.Month, replace bool, userID uint, now time.Time) (*models.MonthlyReport, error) {
	if !datex.MonthOf(now).After(datex.YearMonth{Year: year, Month: month}) {
		return nil, apperror.Invalid("month", "the month has not ended yet")
	}
	pl, err := report.ComputeProfitLoss(ctx, exp, year, month)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(pl)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	var out models.MonthlyReport
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("year = ? AND month = ?", year, int(month)).First(&out).Error
		switch {
		case err == nil && !replace:
			return apperror.Conflict(fmt.Sprintf("a report for %d/%d already exists", int(month), year))
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		out.Year, out.Month = year, int(month)
		out.ReportDate = now
		out.TotalIncome, out.TotalExpenses, out.NetProfit = pl.Income, pl.Expenses, pl.Net
		out.ReportData = datatypes.JSON(data)
		out.CreatedByID = userID
		return tx.Save(&out).Error
	})
	if err != nil {
		return nil, apperror.FromDB(err, "monthly report")
	}
	return &out, nil
}

// POST /api/admin/monthly-reports
func CreateMonthlyReportHandler(db *gorm.DB, exp *expense.Service, now func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateMonthlyReportRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validation.Struct(body); err != nil {
			return err
		}

		r, err := Snapshot(c.UserContext(), db, exp, body.Year, time.Month(body.Month), body.Replace, auth.UserID(c), now())
		if err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  "monthly_report",
			EntityID:    r.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Monthly report created: %d/%d", body.Month, body.Year),
			After:       toReportResponse(*r, false),
		})
		return c.Status(fiber.StatusCreated).JSON(toReportResponse(*r, true))
	}
}

// GET /api/admin/monthly-reports?year=
func ListMonthlyReportsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Order("year DESC, month DESC")
		if y := c.QueryInt("year"); y > 0 {
			q = q.Where("year = ?", y)
		}
		var reports []models.MonthlyReport
		if err := q.Find(&reports).Error; err != nil {
			return apperror.Internal(err)
		}
		resp := make([]MonthlyReportResponse, 0, len(reports))
		for _, r := range reports {
			resp = append(resp, toReportResponse(r, false))
		}
		return c.JSON(resp)
	}
}

// GET /api/admin/monthly-reports/:id
func GetMonthlyReportHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		var r models.MonthlyReport
		if err := db.First(&r, id).Error; err != nil {
			return apperror.FromDB(err, "monthly report")
		}
		return c.JSON(toReportResponse(r, true))
	}
}
