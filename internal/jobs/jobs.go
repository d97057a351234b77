// Package jobs contains the scheduled batch work: lease status refresh,
// payment reminders and automatic renewals. Every lease is handled in its
// own transaction; a failing lease is logged and counted, never fatal.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"rental-backend/internal/config"
	"rental-backend/internal/lease"
	"rental-backend/internal/models"

	"gorm.io/gorm"
)

// Result summarises one run.
type Result struct {
	Scanned int `json:"scanned"`
	Changed int `json:"changed"`
	Created int `json:"created"`
	Failed  int `json:"failed"`
}

func (r Result) String() string {
	return fmt.Sprintf("scanned=%d changed=%d created=%d failed=%d", r.Scanned, r.Changed, r.Created, r.Failed)
}

type Runner struct {
	db       *gorm.DB
	leases   *lease.Service
	notice   config.NoticeRules
	currency string
}

func NewRunner(db *gorm.DB, leases *lease.Service, cfg *config.Config) *Runner {
	return &Runner{
		db:       db,
		leases:   leases,
		notice:   cfg.Notice,
		currency: cfg.Lease.CurrencyLabel,
	}
}

func (r *Runner) dedupWindow() time.Duration {
	return time.Duration(r.notice.DedupDays) * 24 * time.Hour
}

func (r *Runner) leaseIDs(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]uint, error) {
	var ids []uint
	err := scope(r.db.WithContext(ctx).Model(&models.Lease{})).Order("id").Pluck("id", &ids).Error
	return ids, err
}

// eachLease runs fn for every id in its own transaction.
func (r *Runner) eachLease(ctx context.Context, tag string, ids []uint, res *Result, fn func(tx *gorm.DB, id uint) error) {
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			log.Printf("[%s] stopped: %v", tag, err)
			return
		}
		res.Scanned++
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(tx, id)
		})
		if err != nil {
			res.Failed++
			log.Printf("[%s] lease %d skipped: %v", tag, id, err)
		}
	}
}

// UpdateLeaseStatuses re-derives the status of every lease that is neither
// expired nor cancelled and syncs unit availability.
func (r *Runner) UpdateLeaseStatuses(ctx context.Context) (Result, error) {
	var res Result
	ids, err := r.leaseIDs(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("status NOT IN ?", []models.LeaseStatus{models.LeaseExpired, models.LeaseCancelled})
	})
	if err != nil {
		return res, err
	}

	r.eachLease(ctx, "LEASE-STATUS", ids, &res, func(tx *gorm.DB, id uint) error {
		changed, err := r.leases.RefreshStatusTx(tx, id)
		if changed {
			res.Changed++
		}
		return err
	})
	log.Printf("[LEASE-STATUS] done: %s", res)
	return res, nil
}
