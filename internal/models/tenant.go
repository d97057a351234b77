package models

import "time"

type TenantType string

const (
	TenantIndividual TenantType = "individual"
	TenantCompany    TenantType = "company"
)

type Tenant struct {
	ID                  uint       `gorm:"primaryKey"`
	Name                string     `gorm:"size:150;not null;index"`
	Type                TenantType `gorm:"size:20;not null"`
	Phone               string     `gorm:"size:20;not null"`
	Email               *string    `gorm:"size:150"`
	AuthorizedSignatory string     `gorm:"size:150"` // companies only
	Rating              int        `gorm:"not null;default:5"`
	Notes               string     `gorm:"type:text"`
	UserID              *uint      `gorm:"uniqueIndex"`
	User                *User
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
