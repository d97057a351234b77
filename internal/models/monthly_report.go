package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MonthlyReport: stored profit & loss snapshot for one calendar month.
type MonthlyReport struct {
	ID         uint      `gorm:"primaryKey"`
	Year       int       `gorm:"not null;uniqueIndex:idx_monthly_report_period"`
	Month      int       `gorm:"not null;uniqueIndex:idx_monthly_report_period"`
	ReportDate time.Time `gorm:"index;not null"`

	TotalIncome   decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	TotalExpenses decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	NetProfit     decimal.Decimal `gorm:"type:numeric(14,2);not null"`

	ReportData datatypes.JSON

	CreatedByID uint
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
