// Package maintenance tracks repair requests raised against leases.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/models"
	"rental-backend/internal/notification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// transitions lists the statuses each status may move to.
var transitions = map[models.MaintenanceStatus][]models.MaintenanceStatus{
	models.MaintenanceSubmitted:  {models.MaintenanceInProgress, models.MaintenanceCancelled},
	models.MaintenanceInProgress: {models.MaintenanceCompleted, models.MaintenanceCancelled},
}

func CanMove(from, to models.MaintenanceStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

var statusLabels = map[models.MaintenanceStatus]string{
	models.MaintenanceSubmitted:  "submitted",
	models.MaintenanceInProgress: "in progress",
	models.MaintenanceCompleted:  "completed",
	models.MaintenanceCancelled:  "cancelled",
}

type Service struct {
	db *gorm.DB
	// Clock returns the current time; tests replace it.
	Clock func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, Clock: time.Now}
}

func (s *Service) DB() *gorm.DB { return s.db }

type Input struct {
	LeaseID     uint
	Title       string
	Description string
	Priority    models.MaintenancePriority
}

func (s *Service) Get(ctx context.Context, id uint) (*models.MaintenanceRequest, error) {
	var r models.MaintenanceRequest
	if err := s.db.WithContext(ctx).Preload("Lease.Tenant").Preload("Lease.Unit.Building").First(&r, id).Error; err != nil {
		return nil, apperror.FromDB(err, "maintenance request")
	}
	return &r, nil
}

// Create opens a request and tells every staff user about it. When
// tenantID is non-zero the lease must belong to that tenant.
func (s *Service) Create(ctx context.Context, in Input, createdBy uint, tenantID uint) (*models.MaintenanceRequest, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, apperror.Invalid("title", "is required")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}

	var r models.MaintenanceRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var l models.Lease
		if err := tx.Preload("Unit").First(&l, in.LeaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.Invalid("lease_id", "lease does not exist")
			}
			return err
		}
		if tenantID != 0 && l.TenantID != tenantID {
			return apperror.Forbidden("lease belongs to another tenant")
		}

		r = models.MaintenanceRequest{
			LeaseID:     l.ID,
			Title:       in.Title,
			Description: strings.TrimSpace(in.Description),
			Priority:    in.Priority,
			Status:      models.MaintenanceSubmitted,
			ReportedAt:  s.Clock(),
		}
		if createdBy != 0 {
			r.CreatedByID = &createdBy
		}
		if err := tx.Omit(clause.Associations).Create(&r).Error; err != nil {
			return err
		}

		msg := fmt.Sprintf("New maintenance request for unit %s (%s priority): %s", l.Unit.UnitNumber, r.Priority, r.Title)
		_, err := notification.NotifyStaff(tx, msg, models.MaintenanceRef(r.ID), 0, s.Clock(), false)
		return err
	})
	if err != nil {
		return nil, apperror.FromDB(err, "maintenance request")
	}
	log.Printf("[MAINTENANCE] request %d opened on lease %d", r.ID, r.LeaseID)
	return &r, nil
}

type Update struct {
	Status     *models.MaintenanceStatus
	Priority   *models.MaintenancePriority
	StaffNotes *string
}

// Apply changes a request as staff. A status change must follow the allowed
// transitions and is reported to the tenant.
func (s *Service) Apply(ctx context.Context, id uint, u Update) (*models.MaintenanceRequest, error) {
	var r models.MaintenanceRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Lease.Tenant").First(&r, id).Error; err != nil {
			return err
		}
		changed := false
		if u.Status != nil && *u.Status != r.Status {
			if !CanMove(r.Status, *u.Status) {
				return apperror.Conflict(fmt.Sprintf("cannot move a %s request to %s", statusLabels[r.Status], statusLabels[*u.Status]))
			}
			r.Status = *u.Status
			if r.Status == models.MaintenanceCompleted || r.Status == models.MaintenanceCancelled {
				now := s.Clock()
				r.ResolvedAt = &now
			}
			changed = true
		}
		if u.Priority != nil {
			r.Priority = *u.Priority
		}
		if u.StaffNotes != nil {
			r.StaffNotes = strings.TrimSpace(*u.StaffNotes)
		}
		if err := tx.Omit(clause.Associations).Save(&r).Error; err != nil {
			return err
		}

		if !changed || r.Lease.Tenant.UserID == nil {
			return nil
		}
		msg := fmt.Sprintf("Your maintenance request '%s' is now %s.", r.Title, statusLabels[r.Status])
		_, err := notification.Create(tx, *r.Lease.Tenant.UserID, msg, models.MaintenanceRef(r.ID), nil)
		return err
	})
	if err != nil {
		return nil, apperror.FromDB(err, "maintenance request")
	}
	return &r, nil
}

type Filter struct {
	LeaseID    uint
	TenantID   uint
	BuildingID uint
	Status     models.MaintenanceStatus
	Priority   models.MaintenancePriority
}

func (s *Service) Query(f Filter) *gorm.DB {
	q := s.db.Model(&models.MaintenanceRequest{})
	if f.LeaseID > 0 {
		q = q.Where("lease_id = ?", f.LeaseID)
	}
	if f.TenantID > 0 {
		q = q.Where("lease_id IN (?)", s.db.Model(&models.Lease{}).Select("id").Where("tenant_id = ?", f.TenantID))
	}
	if f.BuildingID > 0 {
		q = q.Where("lease_id IN (?)", s.db.Model(&models.Lease{}).Select("id").
			Where("unit_id IN (?)", s.db.Model(&models.Unit{}).Select("id").Where("building_id = ?", f.BuildingID)))
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	return q
}
