package models

import "time"

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleStaff  UserRole = "staff"
	RoleTenant UserRole = "tenant"
)

// IsStaff reports whether the role belongs to the back office.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleStaff
}

type User struct {
	ID           uint     `gorm:"primaryKey"`
	Username     string   `gorm:"size:150;uniqueIndex;not null"`
	Name         string   `gorm:"size:150;not null"`
	Email        *string  `gorm:"size:150;uniqueIndex"`
	Phone        *string  `gorm:"size:20;uniqueIndex"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;not null;index"`
	IsActive     bool     `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
