// Package dashboard computes the figures shown on the staff dashboard.
package dashboard

import (
	"time"

	"rental-backend/internal/datex"
	"rental-backend/internal/lease"
	"rental-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Cards struct {
	Buildings       int64              `json:"buildings"`
	Units           int64              `json:"units"`
	OccupiedUnits   int64              `json:"occupied_units"`
	VacantUnits     int64              `json:"vacant_units"`
	OccupancyRate   decimal.Decimal    `json:"occupancy_rate"` // percent
	Leases          lease.StatusCounts `json:"leases"`
	ExpectedIncome  decimal.Decimal    `json:"expected_monthly_income"`
	CollectedMonth  decimal.Decimal    `json:"collected_this_month"`
	ExpensesMonth   decimal.Decimal    `json:"expenses_this_month"`
	NetIncomeMonth  decimal.Decimal    `json:"net_income_this_month"`
	OpenMaintenance int64              `json:"open_maintenance_requests"`
	Tenants         int64              `json:"tenants"`
}

type sumRow struct {
	Total decimal.Decimal
}

func sum(q *gorm.DB, expr string) (decimal.Decimal, error) {
	var r sumRow
	if err := q.Select("COALESCE(SUM(" + expr + "), 0) AS total").Scan(&r).Error; err != nil {
		return decimal.Zero, err
	}
	return r.Total, nil
}

// Percent returns part/whole*100 rounded to one decimal, or zero.
func Percent(part, whole int64) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(whole)).Round(1)
}

// LoadCards reads the dashboard headline figures for the month of today.
func LoadCards(db *gorm.DB, today time.Time) (*Cards, error) {
	var c Cards
	var err error
	counts := []struct {
		q   *gorm.DB
		dst *int64
	}{
		{db.Model(&models.Building{}), &c.Buildings},
		{db.Model(&models.Unit{}), &c.Units},
		{db.Model(&models.Unit{}).Where("is_available = ?", false), &c.OccupiedUnits},
		{db.Model(&models.Tenant{}), &c.Tenants},
		{db.Model(&models.MaintenanceRequest{}).Where("status IN ?", []models.MaintenanceStatus{models.MaintenanceSubmitted, models.MaintenanceInProgress}), &c.OpenMaintenance},
	}
	for _, cnt := range counts {
		if err := cnt.q.Count(cnt.dst).Error; err != nil {
			return nil, err
		}
	}
	c.VacantUnits = c.Units - c.OccupiedUnits
	c.OccupancyRate = Percent(c.OccupiedUnits, c.Units)

	if c.Leases, err = lease.CountByStatus(db); err != nil {
		return nil, err
	}
	if c.ExpectedIncome, err = sum(db.Model(&models.Lease{}).Where("status IN ?", models.OccupyingStatuses), "monthly_rent"); err != nil {
		return nil, err
	}

	from, to := datex.MonthStart(today), datex.MonthEnd(today)
	if c.CollectedMonth, err = sum(db.Model(&models.Payment{}).Where("payment_date BETWEEN ? AND ?", from, to), "amount"); err != nil {
		return nil, err
	}
	if c.ExpensesMonth, err = sum(db.Model(&models.Expense{}).Where("expense_date BETWEEN ? AND ?", from, to), "amount"); err != nil {
		return nil, err
	}
	c.NetIncomeMonth = c.CollectedMonth.Sub(c.ExpensesMonth)
	return &c, nil
}

type TrendPoint struct {
	Label    string          `json:"label"` // 2024-03
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

type dayTotal struct {
	Day   time.Time
	Total decimal.Decimal
}

// dailyTotals groups amounts by day; bucketing happens in Go so the same
// query runs on every supported database.
func dailyTotals(q *gorm.DB, dateCol string, from, to time.Time) ([]dayTotal, error) {
	var rows []dayTotal
	err := q.Select(dateCol+" AS day, SUM(amount) AS total").
		Where(dateCol+" BETWEEN ? AND ?", from, to).
		Group(dateCol).
		Scan(&rows).Error
	return rows, err
}

// Trend returns income and expenses for the last n months ending with the
// month of today, oldest first.
func Trend(db *gorm.DB, today time.Time, n int) ([]TrendPoint, error) {
	last := datex.MonthOf(today)
	first := datex.MonthOf(datex.AddMonths(datex.MonthStart(today), -(n - 1)))

	income, err := dailyTotals(db.Model(&models.Payment{}), "payment_date", first.First(), datex.MonthEnd(today))
	if err != nil {
		return nil, err
	}
	expenses, err := dailyTotals(db.Model(&models.Expense{}), "expense_date", first.First(), datex.MonthEnd(today))
	if err != nil {
		return nil, err
	}

	in := map[datex.YearMonth]decimal.Decimal{}
	for _, r := range income {
		ym := datex.MonthOf(r.Day)
		in[ym] = in[ym].Add(r.Total)
	}
	out := map[datex.YearMonth]decimal.Decimal{}
	for _, r := range expenses {
		ym := datex.MonthOf(r.Day)
		out[ym] = out[ym].Add(r.Total)
	}

	points := make([]TrendPoint, 0, n)
	for ym := first; !ym.After(last); ym = ym.Next() {
		points = append(points, TrendPoint{
			Label:    ym.First().Format("2006-01"),
			Income:   in[ym],
			Expenses: out[ym],
			Net:      in[ym].Sub(out[ym]),
		})
	}
	return points, nil
}
