package models

import "time"

type MaintenancePriority string

const (
	PriorityLow    MaintenancePriority = "low"
	PriorityMedium MaintenancePriority = "medium"
	PriorityHigh   MaintenancePriority = "high"
)

type MaintenanceStatus string

const (
	MaintenanceSubmitted  MaintenanceStatus = "submitted"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

type MaintenanceRequest struct {
	ID          uint `gorm:"primaryKey"`
	LeaseID     uint `gorm:"index;not null"`
	Lease       Lease
	Title       string              `gorm:"size:200;not null"`
	Description string              `gorm:"type:text"`
	Priority    MaintenancePriority `gorm:"size:10;not null"`
	Status      MaintenanceStatus   `gorm:"size:20;not null;index"`
	StaffNotes  string              `gorm:"type:text"`
	ReportedAt  time.Time           `gorm:"index;not null"`
	ResolvedAt  *time.Time
	CreatedByID *uint
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
