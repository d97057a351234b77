package lease

import (
	"iter"
	"time"

	"rental-backend/internal/datex"
	"rental-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MonthStatus string

const (
	MonthPaid     MonthStatus = "paid"
	MonthPartial  MonthStatus = "partial"
	MonthDue      MonthStatus = "due"
	MonthUpcoming MonthStatus = "upcoming"
)

// MonthRecord is one line of a lease's payment summary.
type MonthRecord struct {
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	MonthName  string          `json:"month_name"`
	RentDue    decimal.Decimal `json:"rent_due"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Balance    decimal.Decimal `json:"balance"`
	Status     MonthStatus     `json:"status"`
}

// Outstanding reports whether the month still has rent to collect and is no
// longer in the future.
func (r MonthRecord) Outstanding() bool {
	return (r.Status == MonthDue || r.Status == MonthPartial) && r.Balance.IsPositive()
}

// PaidByMonth adds up payments per credited calendar month. Several payments
// for the same month are summed.
func PaidByMonth(payments []models.Payment) map[datex.YearMonth]decimal.Decimal {
	out := make(map[datex.YearMonth]decimal.Decimal)
	for _, p := range payments {
		k := datex.YearMonth{Year: p.ForYear, Month: time.Month(p.ForMonth)}
		out[k] = out[k].Add(p.Amount)
	}
	return out
}

// Summary yields one record per calendar month from the lease start to its
// end, inclusive. It holds no state between iterations and can be ranged over
// any number of times.
func Summary(l models.Lease, paid map[datex.YearMonth]decimal.Decimal, today time.Time, locale string) iter.Seq[MonthRecord] {
	current := datex.MonthOf(today)
	return func(yield func(MonthRecord) bool) {
		for ym := range datex.Months(l.StartDate, l.EndDate) {
			amount := paid[ym]
			rec := MonthRecord{
				Year:       ym.Year,
				Month:      int(ym.Month),
				MonthName:  MonthName(ym.Month, locale),
				RentDue:    l.MonthlyRent,
				AmountPaid: amount,
				Balance:    l.MonthlyRent.Sub(amount),
				Status:     classify(amount, l.MonthlyRent, ym.After(current)),
			}
			if !yield(rec) {
				return
			}
		}
	}
}

func classify(paid, rent decimal.Decimal, future bool) MonthStatus {
	switch {
	case paid.GreaterThanOrEqual(rent):
		return MonthPaid
	case paid.IsPositive():
		return MonthPartial
	case future:
		return MonthUpcoming
	default:
		return MonthDue
	}
}

// LoadSummary reads the lease payments from db and returns the summary.
func LoadSummary(db *gorm.DB, l models.Lease, today time.Time, locale string) ([]MonthRecord, error) {
	var payments []models.Payment
	if err := db.Where("lease_id = ?", l.ID).Find(&payments).Error; err != nil {
		return nil, err
	}
	var out []MonthRecord
	for rec := range Summary(l, PaidByMonth(payments), today, locale) {
		out = append(out, rec)
	}
	return out, nil
}

// Totals adds up a summary.
type Totals struct {
	RentDue     decimal.Decimal `json:"rent_due"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	DueMonths   int             `json:"due_months"`
}

func Total(records []MonthRecord) Totals {
	var t Totals
	for _, r := range records {
		t.RentDue = t.RentDue.Add(r.RentDue)
		t.AmountPaid = t.AmountPaid.Add(r.AmountPaid)
		if r.Outstanding() {
			t.Outstanding = t.Outstanding.Add(r.Balance)
		}
		if r.Status == MonthDue {
			t.DueMonths++
		}
	}
	return t
}

var arabicMonths = [...]string{
	"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو",
	"يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر",
}

// MonthName returns the month name for locale ("ar" or anything else for English).
func MonthName(m time.Month, locale string) string {
	if m < time.January || m > time.December {
		return ""
	}
	if locale == "ar" {
		return arabicMonths[m-1]
	}
	return m.String()
}
