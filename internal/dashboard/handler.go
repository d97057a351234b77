package dashboard

import (
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/httpx"
	"rental-backend/internal/maintenance"
	"rental-backend/internal/models"
	"rental-backend/internal/payment"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// GET /api/dashboard
func DashboardHandler(db *gorm.DB, today func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d := today()
		cards, err := LoadCards(db, d)
		if err != nil {
			return apperror.Internal(err)
		}
		trend, err := Trend(db, d, 12)
		if err != nil {
			return apperror.Internal(err)
		}

		var payments []models.Payment
		if err := db.Preload("Lease.Tenant").Preload("Lease.Unit").
			Order("payment_date desc, id desc").Limit(5).Find(&payments).Error; err != nil {
			return apperror.Internal(err)
		}
		var requests []models.MaintenanceRequest
		if err := db.Preload("Lease.Tenant").Preload("Lease.Unit.Building").
			Where("status IN ?", []models.MaintenanceStatus{models.MaintenanceSubmitted, models.MaintenanceInProgress}).
			Order("reported_at desc").Limit(5).Find(&requests).Error; err != nil {
			return apperror.Internal(err)
		}

		return c.JSON(fiber.Map{
			"cards":           cards,
			"trend":           trend,
			"recent_payments": payment.ToResponses(payments),
			"open_requests":   maintenance.ToResponses(requests),
		})
	}
}

// GET /api/dashboard/cash-chart?period=daily&count=7&building_id=1
func CashChartHandler(db *gorm.DB, today func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bid, err := httpx.QueryUint(c, "building_id")
		if err != nil {
			return err
		}
		count := c.QueryInt("count", 0)
		if count < 0 {
			return apperror.Invalid("count", "must be positive")
		}
		chart, err := LoadCashChart(db, today(), c.Query("period", "daily"), count, bid)
		if err != nil {
			return err
		}
		return c.JSON(chart)
	}
}
