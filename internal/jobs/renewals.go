package jobs

import (
	"context"
	"errors"
	"log"

	"rental-backend/internal/lease"
	"rental-backend/internal/models"

	"gorm.io/gorm"
)

var renewable = []models.LeaseStatus{models.LeaseActive, models.LeaseExpiringSoon, models.LeaseExpired}

// ProcessRenewals renews every auto-renew lease that has reached its end
// date. Leases whose unit already has a later lease are skipped, which
// keeps repeated runs from creating duplicates.
func (r *Runner) ProcessRenewals(ctx context.Context) (Result, error) {
	var res Result
	today := r.leases.Today()
	ids, err := r.leaseIDs(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("end_date <= ? AND status IN ? AND auto_renew = ?", today, renewable, true)
	})
	if err != nil {
		return res, err
	}

	r.eachLease(ctx, "RENEWALS", ids, &res, func(tx *gorm.DB, id uint) error {
		var old models.Lease
		if err := tx.First(&old, id).Error; err != nil {
			return err
		}
		if !old.AutoRenew {
			return nil
		}
		next, err := r.leases.AutoRenewTx(tx, &old)
		if errors.Is(err, lease.ErrAlreadyRenewed) {
			log.Printf("[RENEWALS] skipping %s, unit already has a later lease", old.ContractNumber)
			return nil
		}
		if err != nil {
			return err
		}
		res.Created++
		res.Changed++
		log.Printf("[RENEWALS] renewed %s as %s", old.ContractNumber, next.ContractNumber)
		return nil
	})
	log.Printf("[RENEWALS] done: %s", res)
	return res, nil
}
