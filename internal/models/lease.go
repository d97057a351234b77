package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LeaseStatus string

const (
	LeaseActive       LeaseStatus = "active"
	LeaseExpiringSoon LeaseStatus = "expiring_soon"
	LeaseExpired      LeaseStatus = "expired"
	LeaseCancelled    LeaseStatus = "cancelled"
)

// Occupies reports whether a lease in this status holds its unit.
func (s LeaseStatus) Occupies() bool {
	return s == LeaseActive || s == LeaseExpiringSoon
}

// OccupyingStatuses lists the statuses that keep a unit unavailable.
var OccupyingStatuses = []LeaseStatus{LeaseActive, LeaseExpiringSoon}

type Lease struct {
	ID                 uint `gorm:"primaryKey"`
	UnitID             uint `gorm:"index;not null"`
	Unit               Unit
	TenantID           uint `gorm:"index;not null"`
	Tenant             Tenant
	TemplateID         *uint
	Template           *ContractTemplate
	ContractNumber     string          `gorm:"size:50;uniqueIndex;not null"`
	ContractFormNumber string          `gorm:"size:50"`
	MonthlyRent        decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	StartDate          time.Time       `gorm:"type:date;not null"`
	EndDate            time.Time       `gorm:"type:date;not null;index"`
	ElectricityMeter   string          `gorm:"size:50"`
	WaterMeter         string          `gorm:"size:50"`
	Status             LeaseStatus     `gorm:"size:20;not null;index"`

	OfficeFee       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	AdminFee        decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	RegistrationFee decimal.Decimal `gorm:"type:numeric(12,2);not null"` // always recomputed on save

	AutoRenew          bool       `gorm:"not null;default:false"`
	CancellationDate   *time.Time `gorm:"type:date"`
	CancellationReason string     `gorm:"size:500"`
	RenewedFromID      *uint      `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Payments []Payment
}
