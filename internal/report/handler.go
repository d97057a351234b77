package report

import (
	"errors"
	"fmt"
	"log"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/auth"
	"rental-backend/internal/expense"
	"rental-backend/internal/httpx"
	"rental-backend/internal/lease"
	"rental-backend/internal/maintenance"
	"rental-backend/internal/models"
	"rental-backend/internal/payment"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func sendXLSX(c *fiber.Ctx, name string, today time.Time, data []byte, err error) error {
	if err != nil {
		return apperror.Internal(err)
	}
	c.Set(fiber.HeaderContentType, mimeXLSX)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s_%s.xlsx"`, name, today.Format("20060102")))
	return c.Send(data)
}

// sendDocument writes d as PDF. When rendering fails the same content is
// returned as HTML together with the error.
func sendDocument(c *fiber.Ctx, d *Document, name string, opt Options) error {
	data, err := PDF(d, opt.FontPath)
	if err == nil {
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s.pdf"`, name))
		return c.Send(data)
	}
	log.Printf("[REPORT] pdf %s failed, sending html: %v", name, err)
	page, herr := HTML(d, err)
	if herr != nil {
		return apperror.Internal(errors.Join(err, herr))
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(page)
}

// -------------------------
// Excel exports
// -------------------------

// GET /api/reports/tenants.xlsx
func ExportTenantsHandler(db *gorm.DB, opt Options, today func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := Tenants(db.WithContext(c.UserContext()), opt)
		return sendXLSX(c, "tenants", today(), data, err)
	}
}

// GET /api/reports/leases.xlsx (same filters as the lease list)
func ExportLeasesHandler(db *gorm.DB, opt Options, today func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := lease.FilterFromQuery(c, db.WithContext(c.UserContext()))
		if err != nil {
			return err
		}
		data, err := Leases(q, opt)
		return sendXLSX(c, "leases", today(), data, err)
	}
}

// GET /api/reports/payments.xlsx (same filters as the payment list)
func ExportPaymentsHandler(svc *payment.Service, opt Options, today func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := payment.FilterFromQuery(c)
		if err != nil {
			return err
		}
		data, err := Payments(svc.Query(f).WithContext(c.UserContext()), opt)
		return sendXLSX(c, "payments", today(), data, err)
	}
}

// GET /api/reports/expenses.xlsx (same filters as the expense list)
func ExportExpensesHandler(db *gorm.DB, opt Options, today func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := expense.FilterFromQuery(c, db.WithContext(c.UserContext()))
		if err != nil {
			return err
		}
		data, err := Expenses(q, opt)
		return sendXLSX(c, "expenses", today(), data, err)
	}
}

// GET /api/reports/units.xlsx
func ExportUnitsHandler(db *gorm.DB, opt Options, today func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := Units(db.WithContext(c.UserContext()), opt)
		return sendXLSX(c, "units", today(), data, err)
	}
}

// GET /api/reports/maintenance.xlsx
func ExportMaintenanceHandler(svc *maintenance.Service, opt Options, today func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := maintenance.FilterFromQuery(c)
		if err != nil {
			return err
		}
		data, err := Maintenance(svc.Query(f).WithContext(c.UserContext()), opt)
		return sendXLSX(c, "maintenance", today(), data, err)
	}
}

// -------------------------
// Printable documents
// -------------------------

// GET /api/reports/tenants/:id/statement.pdf
func TenantStatementHandler(db *gorm.DB, opt Options, today func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		d, err := TenantStatement(db.WithContext(c.UserContext()), id, today(), opt)
		if err != nil {
			return err
		}
		return sendDocument(c, d, fmt.Sprintf("statement_%d", id), opt)
	}
}

// GET /api/portal/statement.pdf
func MyStatementHandler(db *gorm.DB, opt Options, today func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tid, ok := auth.TenantID(c)
		if !ok {
			return apperror.Forbidden("this account is not linked to a tenant")
		}
		d, err := TenantStatement(db.WithContext(c.UserContext()), tid, today(), opt)
		if err != nil {
			return err
		}
		return sendDocument(c, d, "statement", opt)
	}
}

// GET /api/reports/payments/:id/receipt.pdf
func PaymentReceiptHandler(db *gorm.DB, opt Options, today func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		if tid, ok := auth.TenantID(c); ok && auth.Role(c) == models.RoleTenant {
			var n int64
			if err := db.Model(&models.Payment{}).
				Where("id = ? AND lease_id IN (?)", id, db.Model(&models.Lease{}).Select("id").Where("tenant_id = ?", tid)).
				Count(&n).Error; err != nil {
				return apperror.Internal(err)
			}
			if n == 0 {
				return apperror.NotFound("payment")
			}
		}
		d, err := PaymentReceipt(db.WithContext(c.UserContext()), id, today(), opt)
		if err != nil {
			return err
		}
		return sendDocument(c, d, fmt.Sprintf("receipt_%d", id), opt)
	}
}

// GET /api/reports/profit-loss?year=&month=&format=json|pdf
func ProfitLossHandler(exp *expense.Service, opt Options, today func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d := today()
		year, month, err := httpx.YearMonth(c, d)
		if err != nil {
			return err
		}
		pl, err := ComputeProfitLoss(c.UserContext(), exp, year, month)
		if err != nil {
			return err
		}
		if c.Query("format") == "pdf" {
			return sendDocument(c, ProfitLossDocument(pl, d, opt), "profit_loss_"+monthLabel(year, int(month)), opt)
		}
		return c.JSON(pl)
	}
}

// GET /api/reports/leases/:id/contract.pdf
func ContractHandler(db *gorm.DB, opt Options, today func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		d, err := Contract(db.WithContext(c.UserContext()), id, today(), opt)
		if errors.Is(err, errTemplate) {
			return apperror.Invalid("template", err.Error())
		}
		if err != nil {
			return err
		}
		return sendDocument(c, d, fmt.Sprintf("contract_%d", id), opt)
	}
}
