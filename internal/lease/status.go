package lease

import (
	"time"

	"rental-backend/internal/datex"
	"rental-backend/internal/models"

	"github.com/shopspring/decimal"
)

var twelve = decimal.NewFromInt(12)

// DeriveStatus returns the status a lease with the given end date has on
// today. Cancelled is terminal and returned unchanged.
func DeriveStatus(current models.LeaseStatus, end, today time.Time, windowMonths int) models.LeaseStatus {
	if current == models.LeaseCancelled {
		return current
	}
	end, today = datex.DateOf(end), datex.DateOf(today)
	switch {
	case end.Before(today):
		return models.LeaseExpired
	case !datex.AddMonths(end, -windowMonths).After(today):
		return models.LeaseExpiringSoon
	default:
		return models.LeaseActive
	}
}

// UpdateStatus applies DeriveStatus to l and reports whether it changed.
func UpdateStatus(l *models.Lease, today time.Time, windowMonths int) bool {
	next := DeriveStatus(l.Status, l.EndDate, today, windowMonths)
	if next == l.Status {
		return false
	}
	l.Status = next
	return true
}

// RegistrationFee is the annualised rent times rate, rounded to 2 places.
func RegistrationFee(monthlyRent, rate decimal.Decimal) decimal.Decimal {
	return monthlyRent.Mul(twelve).Mul(rate).Round(2)
}
