package models

import "time"

// ContractTemplate: contract body rendered with the lease placeholders
// ({{.TenantName}}, {{.MonthlyRent}}, ...).
type ContractTemplate struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null;unique"`
	Body      string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
