package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCheque       PaymentMethod = "cheque"
	PaymentOnline       PaymentMethod = "online"
)

type ChequeStatus string

const (
	ChequePending  ChequeStatus = "pending"
	ChequeCashed   ChequeStatus = "cashed"
	ChequeReturned ChequeStatus = "returned"
)

// Payment: money received against a lease, credited to ForMonth/ForYear.
// Several payments may target the same month; the summary adds them up.
type Payment struct {
	ID            uint `gorm:"primaryKey"`
	LeaseID       uint `gorm:"index;not null"`
	Lease         Lease
	VoucherNumber *string         `gorm:"size:30;uniqueIndex"`
	PaymentDate   time.Time       `gorm:"type:date;not null;index"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	ForMonth      int             `gorm:"column:payment_for_month;not null;index:idx_payment_period"`
	ForYear       int             `gorm:"column:payment_for_year;not null;index:idx_payment_period"`
	Method        PaymentMethod   `gorm:"size:20;not null"`

	ChequeNumber  string       `gorm:"size:50"`
	ChequeBank    string       `gorm:"size:100"`
	ChequeDueDate *time.Time   `gorm:"type:date"`
	ChequeStatus  ChequeStatus `gorm:"size:20"`

	Notes        string `gorm:"type:text"`
	RecordedByID *uint
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
