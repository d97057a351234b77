package models

import "time"

type UnitType string

const (
	UnitTypeOffice    UnitType = "office"
	UnitTypeApartment UnitType = "apartment"
	UnitTypeShop      UnitType = "shop"
)

type UnitStatus string

const (
	UnitStatusReady            UnitStatus = "ready"
	UnitStatusUnderMaintenance UnitStatus = "under_maintenance"
)

// Unit: a rentable space. IsAvailable is derived from the leases that
// reference the unit and is only written by the lease service.
type Unit struct {
	ID          uint `gorm:"primaryKey"`
	BuildingID  uint `gorm:"not null;uniqueIndex:idx_unit_building_number"`
	Building    Building
	UnitNumber  string     `gorm:"size:20;not null;uniqueIndex:idx_unit_building_number"`
	Type        UnitType   `gorm:"size:20;not null"`
	Floor       int        `gorm:"not null"`
	IsAvailable bool       `gorm:"not null;default:true;index"`
	Status      UnitStatus `gorm:"size:20;not null;default:'ready'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
