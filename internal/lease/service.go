// Package lease holds the lease lifecycle: status derivation, fees, unit
// availability and the monthly payment summary.
package lease

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/config"
	"rental-backend/internal/database"
	"rental-backend/internal/datex"
	"rental-backend/internal/models"
	"rental-backend/internal/notification"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db     *gorm.DB
	rules  config.LeaseRules
	loc    *time.Location
	locale string

	// Clock returns the current time; tests replace it.
	Clock func() time.Time
}

func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		rules:  cfg.Lease,
		loc:    cfg.Loc,
		locale: cfg.Locale,
		Clock:  time.Now,
	}
}

func (s *Service) DB() *gorm.DB             { return s.db }
func (s *Service) Rules() config.LeaseRules { return s.rules }
func (s *Service) Locale() string           { return s.locale }

// Today is the current calendar date in the configured time zone.
func (s *Service) Today() time.Time {
	loc := s.loc
	if loc == nil {
		loc = time.UTC
	}
	return datex.DateOf(s.Clock().In(loc))
}

type saveOptions struct {
	pinned models.LeaseStatus
}

type SaveOption func(*saveOptions)

// PinStatus stores the lease with status st instead of the derived one.
func PinStatus(st models.LeaseStatus) SaveOption {
	return func(o *saveOptions) { o.pinned = st }
}

// Save persists l in its own transaction. See SaveTx.
func (s *Service) Save(ctx context.Context, l *models.Lease, opts ...SaveOption) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.SaveTx(tx, l, opts...)
	})
}

// SaveTx recomputes the registration fee and status of l, writes it, and
// brings the availability of its unit (and of the unit it was moved away
// from) in line with the leases that reference them. When the save leaves
// the lease expiring soon the tenant is told once.
func (s *Service) SaveTx(tx *gorm.DB, l *models.Lease, opts ...SaveOption) error {
	var o saveOptions
	for _, fn := range opts {
		fn(&o)
	}
	today := s.Today()

	if err := validateLease(l); err != nil {
		return err
	}
	l.StartDate, l.EndDate = datex.DateOf(l.StartDate), datex.DateOf(l.EndDate)
	l.RegistrationFee = RegistrationFee(l.MonthlyRent, s.rules.RegistrationFeeRate)

	var prev *models.Lease
	if l.ID != 0 {
		var p models.Lease
		if err := lockRows(tx).Select("id", "unit_id", "status").First(&p, l.ID).Error; err != nil {
			return apperror.FromDB(err, "lease")
		}
		prev = &p
	}

	if o.pinned != "" {
		l.Status = o.pinned
	} else {
		if l.Status == "" {
			l.Status = models.LeaseActive
		}
		UpdateStatus(l, today, s.rules.ExpiringWindowMonths)
	}

	if l.Status != models.LeaseCancelled {
		if err := checkOverlap(tx, l); err != nil {
			return err
		}
	}

	if err := tx.Omit(clause.Associations).Save(l).Error; err != nil {
		return err
	}

	if err := SyncUnit(tx, l.UnitID); err != nil {
		return err
	}
	if prev != nil && prev.UnitID != l.UnitID {
		if err := SyncUnit(tx, prev.UnitID); err != nil {
			return err
		}
	}

	if l.Status == models.LeaseExpiringSoon && (prev == nil || prev.Status != models.LeaseExpiringSoon) {
		if err := s.notifyExpiring(tx, l); err != nil {
			return err
		}
	}
	return nil
}

func validateLease(l *models.Lease) error {
	fields := map[string]string{}
	if l.UnitID == 0 {
		fields["unit_id"] = "is required"
	}
	if l.TenantID == 0 {
		fields["tenant_id"] = "is required"
	}
	if l.ContractNumber == "" {
		fields["contract_number"] = "is required"
	}
	if !l.MonthlyRent.IsPositive() {
		fields["monthly_rent"] = "must be greater than 0"
	}
	if l.EndDate.Before(l.StartDate) {
		fields["end_date"] = "must not be before start_date"
	}
	if len(fields) > 0 {
		return apperror.Validation(fields)
	}
	return nil
}

// checkOverlap rejects a lease whose dates overlap another non-cancelled
// lease on the same unit.
func checkOverlap(tx *gorm.DB, l *models.Lease) error {
	var other models.Lease
	err := tx.Select("id", "contract_number").
		Where("unit_id = ? AND id <> ? AND status <> ?", l.UnitID, l.ID, models.LeaseCancelled).
		Where("start_date <= ? AND end_date >= ?", l.EndDate, l.StartDate).
		First(&other).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return apperror.Conflict(fmt.Sprintf("unit already leased under contract %s for these dates", other.ContractNumber))
}

// SyncUnit marks the unit unavailable exactly when some lease on it is
// active or expiring soon.
func SyncUnit(tx *gorm.DB, unitID uint) error {
	var unit models.Unit
	if err := lockRows(tx).Select("id").First(&unit, unitID).Error; err != nil {
		return apperror.FromDB(err, "unit")
	}
	var occupied int64
	if err := tx.Model(&models.Lease{}).
		Where("unit_id = ? AND status IN ?", unitID, models.OccupyingStatuses).
		Count(&occupied).Error; err != nil {
		return err
	}
	return tx.Model(&models.Unit{}).Where("id = ?", unitID).
		Update("is_available", occupied == 0).Error
}

func (s *Service) notifyExpiring(tx *gorm.DB, l *models.Lease) error {
	var tenant models.Tenant
	if err := tx.Select("id", "user_id").First(&tenant, l.TenantID).Error; err != nil {
		return apperror.FromDB(err, "tenant")
	}
	if tenant.UserID == nil {
		return nil
	}
	msg := fmt.Sprintf("Your lease %s ends on %s. Please contact the office about renewal.",
		l.ContractNumber, l.EndDate.Format(time.DateOnly))
	_, err := notification.CreateIfAbsent(tx, *tenant.UserID, msg, models.LeaseRef(l.ID), 0, s.Clock())
	return err
}

// lockRows requests FOR UPDATE locks on databases that support them.
func lockRows(tx *gorm.DB) *gorm.DB {
	if database.IsPostgres(tx) {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// Get loads a lease with its unit, building and tenant.
func (s *Service) Get(ctx context.Context, id uint) (*models.Lease, error) {
	var l models.Lease
	err := s.db.WithContext(ctx).
		Preload("Unit.Building").Preload("Tenant").Preload("Template").
		First(&l, id).Error
	if err != nil {
		return nil, apperror.FromDB(err, "lease")
	}
	return &l, nil
}

// CreateInput holds the fields staff enter when signing a lease.
type CreateInput struct {
	UnitID             uint
	TenantID           uint
	TemplateID         *uint
	ContractNumber     string
	ContractFormNumber string
	MonthlyRent        decimal.Decimal
	StartDate          time.Time
	EndDate            time.Time
	ElectricityMeter   string
	WaterMeter         string
	OfficeFee          *decimal.Decimal
	AdminFee           *decimal.Decimal
	AutoRenew          bool
}

// Create signs a new lease. The unit must exist, be ready, and have no
// overlapping lease; the contract number must be unused.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Lease, error) {
	l := &models.Lease{
		UnitID:             in.UnitID,
		TenantID:           in.TenantID,
		TemplateID:         in.TemplateID,
		ContractNumber:     in.ContractNumber,
		ContractFormNumber: in.ContractFormNumber,
		MonthlyRent:        in.MonthlyRent,
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		ElectricityMeter:   in.ElectricityMeter,
		WaterMeter:         in.WaterMeter,
		OfficeFee:          s.rules.DefaultOfficeFee,
		AdminFee:           s.rules.DefaultAdminFee,
		AutoRenew:          in.AutoRenew,
		Status:             models.LeaseActive,
	}
	if in.OfficeFee != nil {
		l.OfficeFee = *in.OfficeFee
	}
	if in.AdminFee != nil {
		l.AdminFee = *in.AdminFee
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkRefs(tx, l); err != nil {
			return err
		}
		if err := checkContractNumber(tx, l.ContractNumber, 0); err != nil {
			return err
		}
		return s.SaveTx(tx, l)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[LEASE] created %s unit=%d tenant=%d status=%s", l.ContractNumber, l.UnitID, l.TenantID, l.Status)
	return l, nil
}

// UpdateInput changes editable lease fields; nil means unchanged.
type UpdateInput struct {
	UnitID             *uint
	TemplateID         *uint
	ContractFormNumber *string
	MonthlyRent        *decimal.Decimal
	StartDate          *time.Time
	EndDate            *time.Time
	ElectricityMeter   *string
	WaterMeter         *string
	OfficeFee          *decimal.Decimal
	AdminFee           *decimal.Decimal
	AutoRenew          *bool
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.Lease, error) {
	var l models.Lease
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&l, id).Error; err != nil {
			return apperror.FromDB(err, "lease")
		}
		if in.UnitID != nil {
			l.UnitID = *in.UnitID
		}
		if in.TemplateID != nil {
			l.TemplateID = in.TemplateID
		}
		if in.ContractFormNumber != nil {
			l.ContractFormNumber = *in.ContractFormNumber
		}
		if in.MonthlyRent != nil {
			l.MonthlyRent = *in.MonthlyRent
		}
		if in.StartDate != nil {
			l.StartDate = *in.StartDate
		}
		if in.EndDate != nil {
			l.EndDate = *in.EndDate
		}
		if in.ElectricityMeter != nil {
			l.ElectricityMeter = *in.ElectricityMeter
		}
		if in.WaterMeter != nil {
			l.WaterMeter = *in.WaterMeter
		}
		if in.OfficeFee != nil {
			l.OfficeFee = *in.OfficeFee
		}
		if in.AdminFee != nil {
			l.AdminFee = *in.AdminFee
		}
		if in.AutoRenew != nil {
			l.AutoRenew = *in.AutoRenew
		}
		if err := s.checkRefs(tx, &l); err != nil {
			return err
		}
		return s.SaveTx(tx, &l)
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Service) checkRefs(tx *gorm.DB, l *models.Lease) error {
	var unit models.Unit
	if err := tx.Select("id", "status").First(&unit, l.UnitID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Invalid("unit_id", "unit does not exist")
		}
		return err
	}
	if l.ID == 0 && unit.Status == models.UnitStatusUnderMaintenance {
		return apperror.Conflict("unit is under maintenance")
	}
	var n int64
	if err := tx.Model(&models.Tenant{}).Where("id = ?", l.TenantID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperror.Invalid("tenant_id", "tenant does not exist")
	}
	if l.TemplateID != nil {
		if err := tx.Model(&models.ContractTemplate{}).Where("id = ?", *l.TemplateID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return apperror.Invalid("template_id", "contract template does not exist")
		}
	}
	return nil
}

func checkContractNumber(tx *gorm.DB, number string, exceptID uint) error {
	var n int64
	if err := tx.Model(&models.Lease{}).Where("contract_number = ? AND id <> ?", number, exceptID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperror.Invalid("contract_number", "contract number already exists")
	}
	return nil
}

// Cancel ends a lease early. The unit becomes available unless another
// lease occupies it.
func (s *Service) Cancel(ctx context.Context, id uint, date time.Time, reason string) (*models.Lease, error) {
	var l models.Lease
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&l, id).Error; err != nil {
			return apperror.FromDB(err, "lease")
		}
		if l.Status == models.LeaseCancelled {
			return apperror.Conflict("lease is already cancelled")
		}
		d := datex.DateOf(date)
		l.Status = models.LeaseCancelled
		l.CancellationDate = &d
		l.CancellationReason = reason
		l.AutoRenew = false
		return s.SaveTx(tx, &l)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[LEASE] cancelled %s on %s", l.ContractNumber, date.Format(time.DateOnly))
	return &l, nil
}

// Reinstate undoes a cancellation and derives the status from the dates again.
func (s *Service) Reinstate(ctx context.Context, id uint) (*models.Lease, error) {
	var l models.Lease
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&l, id).Error; err != nil {
			return apperror.FromDB(err, "lease")
		}
		if l.Status != models.LeaseCancelled {
			return apperror.Conflict("lease is not cancelled")
		}
		l.Status = models.LeaseActive
		l.CancellationDate = nil
		l.CancellationReason = ""
		return s.SaveTx(tx, &l)
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// RefreshStatusTx re-derives the status of one lease inside tx, locking it
// first. It reports whether the stored status changed.
func (s *Service) RefreshStatusTx(tx *gorm.DB, id uint) (bool, error) {
	var l models.Lease
	if err := lockRows(tx).First(&l, id).Error; err != nil {
		return false, apperror.FromDB(err, "lease")
	}
	before := l.Status
	if err := s.SaveTx(tx, &l); err != nil {
		return false, err
	}
	return l.Status != before, nil
}
