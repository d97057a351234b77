package dashboard

import (
	"sort"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/datex"
	"rental-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CashChartPoint struct {
	Label        string          `json:"label"` // day / week start / month start
	Cash         decimal.Decimal `json:"cash"`
	BankTransfer decimal.Decimal `json:"bank_transfer"`
	Cheque       decimal.Decimal `json:"cheque"`
	Online       decimal.Decimal `json:"online"`
	Total        decimal.Decimal `json:"total"`
}

type CashChart struct {
	BuildingID  uint             `json:"building_id,omitempty"`
	Period      string           `json:"period"` // daily | weekly | monthly
	From        string           `json:"from"`
	To          string           `json:"to"`
	Points      []CashChartPoint `json:"points"`
	GrandTotals CashChartPoint   `json:"grand_totals"`
}

func (p *CashChartPoint) add(m models.PaymentMethod, amount decimal.Decimal) {
	switch m {
	case models.PaymentCash:
		p.Cash = p.Cash.Add(amount)
	case models.PaymentBankTransfer:
		p.BankTransfer = p.BankTransfer.Add(amount)
	case models.PaymentCheque:
		p.Cheque = p.Cheque.Add(amount)
	case models.PaymentOnline:
		p.Online = p.Online.Add(amount)
	}
	p.Total = p.Total.Add(amount)
}

// chartRange returns the first day of the window and the bucket function.
func chartRange(period string, count int, today time.Time) (time.Time, func(time.Time) time.Time) {
	switch period {
	case "weekly":
		monday := func(d time.Time) time.Time {
			return datex.AddDays(d, -((int(d.Weekday()) + 6) % 7))
		}
		return datex.AddDays(monday(today), -7*(count-1)), monday
	case "monthly":
		return datex.AddMonths(datex.MonthStart(today), -(count - 1)), datex.MonthStart
	default:
		return datex.AddDays(today, -(count - 1)), datex.DateOf
	}
}

// LoadCashChart sums rent received per payment method for the last count
// days, weeks or months. A zero buildingID covers every building.
func LoadCashChart(db *gorm.DB, today time.Time, period string, count int, buildingID uint) (*CashChart, error) {
	if count <= 0 {
		switch period {
		case "weekly":
			count = 8
		case "monthly":
			count = 12
		default:
			count = 7
		}
	}
	if count > 366 {
		return nil, apperror.Invalid("count", "is too large")
	}
	if period != "weekly" && period != "monthly" {
		period = "daily"
	}
	start, bucket := chartRange(period, count, today)

	type row struct {
		Day    time.Time
		Method models.PaymentMethod
		Total  decimal.Decimal
	}
	q := db.Model(&models.Payment{}).
		Select("payment_date AS day, method, SUM(amount) AS total").
		Where("payment_date BETWEEN ? AND ?", start, today)
	if buildingID > 0 {
		q = q.Where("lease_id IN (?)", db.Model(&models.Lease{}).Select("id").
			Where("unit_id IN (?)", db.Model(&models.Unit{}).Select("id").Where("building_id = ?", buildingID)))
	}
	var rows []row
	if err := q.Group("payment_date, method").Scan(&rows).Error; err != nil {
		return nil, err
	}

	buckets := map[time.Time]*CashChartPoint{}
	for _, r := range rows {
		key := bucket(datex.DateOf(r.Day))
		p, ok := buckets[key]
		if !ok {
			p = &CashChartPoint{Label: key.Format(time.DateOnly)}
			buckets[key] = p
		}
		p.add(r.Method, r.Total)
	}

	chart := &CashChart{
		BuildingID: buildingID,
		Period:     period,
		From:       start.Format(time.DateOnly),
		To:         today.Format(time.DateOnly),
		Points:     make([]CashChartPoint, 0, len(buckets)),
	}
	for _, p := range buckets {
		chart.Points = append(chart.Points, *p)
	}
	sort.Slice(chart.Points, func(i, j int) bool { return chart.Points[i].Label < chart.Points[j].Label })

	chart.GrandTotals.Label = "total"
	for _, p := range chart.Points {
		chart.GrandTotals.Cash = chart.GrandTotals.Cash.Add(p.Cash)
		chart.GrandTotals.BankTransfer = chart.GrandTotals.BankTransfer.Add(p.BankTransfer)
		chart.GrandTotals.Cheque = chart.GrandTotals.Cheque.Add(p.Cheque)
		chart.GrandTotals.Online = chart.GrandTotals.Online.Add(p.Online)
		chart.GrandTotals.Total = chart.GrandTotals.Total.Add(p.Total)
	}
	return chart, nil
}
