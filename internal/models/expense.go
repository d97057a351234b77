package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExpenseCategory struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null;unique"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expense: append-only ledger entry against a building.
type Expense struct {
	ID            uint `gorm:"primaryKey"`
	BuildingID    uint `gorm:"index;not null"`
	Building      Building
	CategoryID    uint `gorm:"index;not null"`
	Category      ExpenseCategory
	VoucherNumber *string         `gorm:"size:30;uniqueIndex"`
	Description   string          `gorm:"size:255"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Date          time.Time       `gorm:"column:expense_date;type:date;index;not null"`
	ReceiptPath   string          `gorm:"size:255"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
