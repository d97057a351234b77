// Package payment records rent received against leases.
package payment

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/config"
	"rental-backend/internal/models"
	"rental-backend/internal/notification"
	"rental-backend/internal/voucher"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db     *gorm.DB
	strict bool
	// Clock returns the current time; tests replace it.
	Clock func() time.Time
}

func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{db: db, strict: cfg.StrictVouchers, Clock: time.Now}
}

func (s *Service) DB() *gorm.DB { return s.db }

type Input struct {
	LeaseID       uint
	PaymentDate   time.Time
	Amount        decimal.Decimal
	ForMonth      int
	ForYear       int
	Method        models.PaymentMethod
	ChequeNumber  string
	ChequeBank    string
	ChequeDueDate *time.Time
	Notes         string
}

func validate(in Input) error {
	fields := map[string]string{}
	if !in.Amount.IsPositive() {
		fields["amount"] = "must be greater than 0"
	}
	if in.ForMonth < 1 || in.ForMonth > 12 {
		fields["payment_for_month"] = "must be between 1 and 12"
	}
	if in.ForYear < 2000 || in.ForYear > 2100 {
		fields["payment_for_year"] = "is out of range"
	}
	if in.Method == models.PaymentCheque && strings.TrimSpace(in.ChequeNumber) == "" {
		fields["cheque_number"] = "is required for cheque payments"
	}
	if len(fields) > 0 {
		return apperror.Validation(fields)
	}
	return nil
}

func (in Input) apply(p *models.Payment) {
	p.LeaseID = in.LeaseID
	p.PaymentDate = in.PaymentDate
	p.Amount = in.Amount.Round(2)
	p.ForMonth = in.ForMonth
	p.ForYear = in.ForYear
	p.Method = in.Method
	p.Notes = in.Notes
	if in.Method == models.PaymentCheque {
		p.ChequeNumber = strings.TrimSpace(in.ChequeNumber)
		p.ChequeBank = strings.TrimSpace(in.ChequeBank)
		p.ChequeDueDate = in.ChequeDueDate
		if p.ChequeStatus == "" {
			p.ChequeStatus = models.ChequePending
		}
		return
	}
	p.ChequeNumber, p.ChequeBank, p.ChequeDueDate, p.ChequeStatus = "", "", nil, ""
}

func checkLease(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&models.Lease{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperror.Invalid("lease_id", "lease does not exist")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.WithContext(ctx).Preload("Lease.Tenant").Preload("Lease.Unit.Building").First(&p, id).Error; err != nil {
		return nil, apperror.FromDB(err, "payment")
	}
	return &p, nil
}

// Create stores the payment with the next voucher number of its year.
// Several payments may credit the same month.
func (s *Service) Create(ctx context.Context, in Input, recordedBy uint) (*models.Payment, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	var p models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkLease(tx, in.LeaseID); err != nil {
			return err
		}
		in.apply(&p)
		number, err := voucher.Next(tx, voucher.Payment, in.PaymentDate.Year())
		if err != nil {
			return err
		}
		p.VoucherNumber = &number
		if recordedBy > 0 {
			p.RecordedByID = &recordedBy
		}
		return tx.Omit(clause.Associations).Create(&p).Error
	})
	if err != nil {
		return nil, apperror.FromDB(err, "payment")
	}
	log.Printf("[PAYMENT] %s lease=%d amount=%s for %02d/%d", *p.VoucherNumber, p.LeaseID, p.Amount.StringFixed(2), p.ForMonth, p.ForYear)
	return &p, nil
}

// Update edits a payment. With strict vouchers on, a payment that carries a
// voucher number is final.
func (s *Service) Update(ctx context.Context, id uint, in Input) (*models.Payment, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	var p models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			return err
		}
		if s.strict && p.VoucherNumber != nil {
			return apperror.Conflict(fmt.Sprintf("payment %s has a voucher number and cannot be edited", *p.VoucherNumber))
		}
		if err := checkLease(tx, in.LeaseID); err != nil {
			return err
		}
		in.apply(&p)
		return tx.Omit(clause.Associations).Save(&p).Error
	})
	if err != nil {
		return nil, apperror.FromDB(err, "payment")
	}
	return &p, nil
}

// SetChequeStatus moves a cheque between pending, cashed and returned. A
// returned cheque is reported to staff.
func (s *Service) SetChequeStatus(ctx context.Context, id uint, status models.ChequeStatus) (*models.Payment, error) {
	var p models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Lease").First(&p, id).Error; err != nil {
			return err
		}
		if p.Method != models.PaymentCheque {
			return apperror.Conflict("payment was not made by cheque")
		}
		if p.ChequeStatus == status {
			return nil
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", id).Update("cheque_status", status).Error; err != nil {
			return err
		}
		p.ChequeStatus = status
		if status != models.ChequeReturned {
			return nil
		}
		msg := fmt.Sprintf("Cheque %s (%s) for lease %s was returned.", p.ChequeNumber, p.Amount.StringFixed(2), p.Lease.ContractNumber)
		_, err := notification.NotifyStaff(tx, msg, models.PaymentRef(p.ID), 0, s.Clock(), false)
		return err
	})
	if err != nil {
		return nil, apperror.FromDB(err, "payment")
	}
	return &p, nil
}

type Filter struct {
	LeaseID      uint
	TenantID     uint
	BuildingID   uint
	Method       models.PaymentMethod
	ChequeStatus models.ChequeStatus
	From, To     *time.Time
	Year, Month  int
}

// Query returns the filtered payments query.
func (s *Service) Query(f Filter) *gorm.DB {
	q := s.db.Model(&models.Payment{})
	if f.LeaseID > 0 {
		q = q.Where("payments.lease_id = ?", f.LeaseID)
	}
	if f.TenantID > 0 {
		q = q.Where("payments.lease_id IN (?)", s.db.Model(&models.Lease{}).Select("id").Where("tenant_id = ?", f.TenantID))
	}
	if f.BuildingID > 0 {
		q = q.Where("payments.lease_id IN (?)", s.db.Model(&models.Lease{}).Select("id").
			Where("unit_id IN (?)", s.db.Model(&models.Unit{}).Select("id").Where("building_id = ?", f.BuildingID)))
	}
	if f.Method != "" {
		q = q.Where("payments.method = ?", f.Method)
	}
	if f.ChequeStatus != "" {
		q = q.Where("payments.cheque_status = ?", f.ChequeStatus)
	}
	if f.From != nil {
		q = q.Where("payments.payment_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("payments.payment_date <= ?", *f.To)
	}
	if f.Year > 0 {
		q = q.Where("payments.payment_for_year = ?", f.Year)
	}
	if f.Month > 0 {
		q = q.Where("payments.payment_for_month = ?", f.Month)
	}
	return q
}
