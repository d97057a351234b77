package lease

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/datex"
	"rental-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrAlreadyRenewed is returned when the unit already has a lease starting
// after the one being renewed.
var ErrAlreadyRenewed = errors.New("unit already has a later lease")

type Duration string

const (
	OneYear     Duration = "1y"
	SixMonths   Duration = "6m"
	ThreeMonths Duration = "3m"
	Manual      Duration = "manual"
)

func (d Duration) months() (int, bool) {
	switch d {
	case OneYear:
		return 12, true
	case SixMonths:
		return 6, true
	case ThreeMonths:
		return 3, true
	}
	return 0, false
}

// RenewInput describes a renewal made by staff.
type RenewInput struct {
	Duration    Duration
	EndDate     *time.Time // required for Manual
	MonthlyRent *decimal.Decimal
	AutoRenew   bool
}

// Renew creates the successor of lease id starting the day after it ends
// and retires the original as expired.
func (s *Service) Renew(ctx context.Context, id uint, in RenewInput) (*models.Lease, error) {
	var next *models.Lease
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old models.Lease
		if err := lockRows(tx).First(&old, id).Error; err != nil {
			return apperror.FromDB(err, "lease")
		}
		if old.Status == models.LeaseCancelled {
			return apperror.Conflict("a cancelled lease cannot be renewed")
		}

		start := datex.AddDays(old.EndDate, 1)
		var end time.Time
		if n, ok := in.Duration.months(); ok {
			end = datex.AddDays(datex.AddMonths(start, n), -1)
		} else if in.Duration == Manual {
			if in.EndDate == nil {
				return apperror.Invalid("end_date", "is required for a manual renewal")
			}
			end = datex.DateOf(*in.EndDate)
			if !end.After(start) {
				return apperror.Invalid("end_date", "must be after "+start.Format(time.DateOnly))
			}
		} else {
			return apperror.Invalid("duration", "must be one of: 1y 6m 3m manual")
		}

		rent := old.MonthlyRent
		if in.MonthlyRent != nil {
			rent = *in.MonthlyRent
		}
		var err error
		next, err = s.renewTx(tx, &old, start, end, rent, old.ContractNumber+"-R", in.AutoRenew)
		if errors.Is(err, ErrAlreadyRenewed) {
			return apperror.Conflict("this lease has already been renewed")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[LEASE] renewed lease %d as %s (%s to %s)", id, next.ContractNumber,
		next.StartDate.Format(time.DateOnly), next.EndDate.Format(time.DateOnly))
	return next, nil
}

// AutoRenewTx renews old for the same calendar duration it originally ran.
// The successor is numbered {old}-R{current year} and keeps
// auto-renew on. It returns ErrAlreadyRenewed when a later lease exists.
func (s *Service) AutoRenewTx(tx *gorm.DB, old *models.Lease) (*models.Lease, error) {
	months, days := datex.CalendarDiff(old.StartDate, old.EndDate)
	start := datex.AddDays(old.EndDate, 1)
	end := datex.AddCalendar(start, months, days)
	number := fmt.Sprintf("%s-R%d", old.ContractNumber, s.Today().Year())
	return s.renewTx(tx, old, start, end, old.MonthlyRent, number, true)
}

func (s *Service) renewTx(tx *gorm.DB, old *models.Lease, start, end time.Time, rent decimal.Decimal, number string, autoRenew bool) (*models.Lease, error) {
	var later int64
	if err := tx.Model(&models.Lease{}).
		Where("unit_id = ? AND start_date > ? AND status <> ?", old.UnitID, old.EndDate, models.LeaseCancelled).
		Count(&later).Error; err != nil {
		return nil, err
	}
	if later > 0 {
		return nil, ErrAlreadyRenewed
	}
	if err := checkContractNumber(tx, number, 0); err != nil {
		return nil, err
	}

	old.AutoRenew = false
	if err := s.SaveTx(tx, old, PinStatus(models.LeaseExpired)); err != nil {
		return nil, err
	}

	oldID := old.ID
	next := &models.Lease{
		UnitID:             old.UnitID,
		TenantID:           old.TenantID,
		TemplateID:         old.TemplateID,
		ContractNumber:     number,
		ContractFormNumber: old.ContractFormNumber,
		MonthlyRent:        rent,
		StartDate:          start,
		EndDate:            end,
		ElectricityMeter:   old.ElectricityMeter,
		WaterMeter:         old.WaterMeter,
		OfficeFee:          old.OfficeFee,
		AdminFee:           old.AdminFee,
		AutoRenew:          autoRenew,
		RenewedFromID:      &oldID,
		Status:             models.LeaseActive,
	}
	if err := s.SaveTx(tx, next); err != nil {
		return nil, err
	}
	return next, nil
}
