package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"rental-backend/internal/datex"
	"rental-backend/internal/lease"
	"rental-backend/internal/models"
	"rental-backend/internal/notification"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SendReminders refreshes each open lease and creates the expiring,
// upcoming-rent, overdue and escalation notices that apply today. Messages
// already sent to the same user within the dedup window are skipped. A lease
// whose status cannot be saved is counted as failed but still reminded,
// using the status derived in memory.
func (r *Runner) SendReminders(ctx context.Context) (Result, error) {
	var res Result
	ids, err := r.leaseIDs(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("status IN ?", models.OccupyingStatuses)
	})
	if err != nil {
		return res, err
	}

	r.eachLease(ctx, "REMINDERS", ids, &res, func(tx *gorm.DB, id uint) error {
		created, refreshErr, err := r.remindLease(tx, id)
		if err != nil {
			return err
		}
		res.Created += created
		if refreshErr != nil {
			res.Failed++
			log.Printf("[REMINDERS] lease %d status not saved: %v", id, refreshErr)
		}
		return nil
	})
	log.Printf("[REMINDERS] done: %s", res)
	return res, nil
}

type reminder struct {
	r       *Runner
	tx      *gorm.DB
	l       models.Lease
	today   time.Time
	now     time.Time
	created int
}

// remindLease returns the number of notices created. refreshErr is the
// status save failure, which is rolled back to a savepoint so the notices
// can still go out.
func (r *Runner) remindLease(tx *gorm.DB, id uint) (created int, refreshErr error, err error) {
	refreshErr = tx.Transaction(func(sp *gorm.DB) error {
		_, err := r.leases.RefreshStatusTx(sp, id)
		return err
	})
	var l models.Lease
	if err := tx.Preload("Tenant").First(&l, id).Error; err != nil {
		return 0, refreshErr, err
	}
	if refreshErr != nil {
		lease.UpdateStatus(&l, r.leases.Today(), r.leases.Rules().ExpiringWindowMonths)
	}
	if !l.Status.Occupies() {
		return 0, refreshErr, nil
	}

	rm := &reminder{r: r, tx: tx, l: l, today: r.leases.Today(), now: r.leases.Clock()}
	steps := []func() error{rm.expiring, rm.upcoming, rm.overdue, rm.escalation}
	for _, step := range steps {
		if err := step(); err != nil {
			return rm.created, refreshErr, err
		}
	}
	return rm.created, refreshErr, nil
}

func (rm *reminder) toUser(userID uint, msg string) error {
	ok, err := notification.CreateIfAbsent(rm.tx, userID, msg, models.LeaseRef(rm.l.ID), rm.r.dedupWindow(), rm.now)
	if ok {
		rm.created++
	}
	return err
}

func (rm *reminder) toStaff(msg string) error {
	return rm.toStaffWithin(msg, rm.r.dedupWindow())
}

// toStaffOnce sends msg unless a staff user ever received it.
func (rm *reminder) toStaffOnce(msg string) error {
	return rm.toStaffWithin(msg, 0)
}

func (rm *reminder) toStaffWithin(msg string, window time.Duration) error {
	n, err := notification.NotifyStaff(rm.tx, msg, models.LeaseRef(rm.l.ID), window, rm.now, true)
	rm.created += n
	return err
}

func (rm *reminder) money(d decimal.Decimal) string {
	return d.StringFixed(2) + " " + rm.r.currency
}

func (rm *reminder) monthName(m time.Month) string {
	return lease.MonthName(m, rm.r.leases.Locale())
}

func (rm *reminder) expiring() error {
	if rm.l.Status != models.LeaseExpiringSoon {
		return nil
	}
	msg := fmt.Sprintf("Lease %s of tenant '%s' ends on %s.",
		rm.l.ContractNumber, rm.l.Tenant.Name, rm.l.EndDate.Format(time.DateOnly))
	return rm.toStaffOnce(msg)
}

func (rm *reminder) upcoming() error {
	if rm.l.Tenant.UserID == nil {
		return nil
	}
	firstOfNext := datex.MonthStart(datex.AddMonths(rm.today, 1))
	if !rm.today.Equal(datex.AddDays(firstOfNext, -rm.r.notice.ReminderLeadDays)) {
		return nil
	}
	if !datex.Between(firstOfNext, rm.l.StartDate, rm.l.EndDate) {
		return nil
	}
	msg := fmt.Sprintf("Reminder: rent for %s %d is due soon. Amount: %s",
		rm.monthName(firstOfNext.Month()), firstOfNext.Year(), rm.money(rm.l.MonthlyRent))
	return rm.toUser(*rm.l.Tenant.UserID, msg)
}

func (rm *reminder) overdueDay() bool {
	day := rm.today.Day()
	if rm.r.notice.OverdueWindow {
		return day <= rm.r.notice.OverdueDay
	}
	return day == rm.r.notice.OverdueDay
}

func (rm *reminder) overdue() error {
	current := datex.MonthOf(rm.today)
	if datex.MonthOf(rm.l.StartDate).After(current) || !rm.overdueDay() {
		return nil
	}

	var payments []models.Payment
	if err := rm.tx.Where("lease_id = ? AND payment_for_year = ? AND payment_for_month = ?",
		rm.l.ID, current.Year, int(current.Month)).Find(&payments).Error; err != nil {
		return err
	}
	paid := lease.PaidByMonth(payments)[current]
	if paid.GreaterThanOrEqual(rm.l.MonthlyRent) {
		return nil
	}
	balance := rm.l.MonthlyRent.Sub(paid)
	month := fmt.Sprintf("%s %d", rm.monthName(current.Month), current.Year)

	if rm.l.Tenant.UserID != nil {
		msg := fmt.Sprintf("Overdue: rent for %s has not been paid in full. Remaining: %s", month, rm.money(balance))
		if err := rm.toUser(*rm.l.Tenant.UserID, msg); err != nil {
			return err
		}
	}
	msg := fmt.Sprintf("Late payment: tenant '%s' (lease %s) has not paid rent for %s in full. Remaining: %s",
		rm.l.Tenant.Name, rm.l.ContractNumber, month, rm.money(balance))
	return rm.toStaff(msg)
}

// escalation warns when several months are due with nothing paid. It goes
// to the tenant, or to staff when the tenant has no login.
func (rm *reminder) escalation() error {
	records, err := lease.LoadSummary(rm.tx, rm.l, rm.today, rm.r.leases.Locale())
	if err != nil {
		return err
	}
	due := 0
	total := decimal.Zero
	for _, rec := range records {
		if rec.Status == lease.MonthDue && rec.Balance.IsPositive() {
			due++
			total = total.Add(rec.Balance)
		}
	}
	if due < rm.r.notice.EscalationMonths {
		return nil
	}

	msg := fmt.Sprintf("Warning: rent for lease %s is unpaid for %d months. Total outstanding: %s",
		rm.l.ContractNumber, due, rm.money(total))
	if rm.l.Tenant.UserID != nil {
		return rm.toUser(*rm.l.Tenant.UserID, msg)
	}
	return rm.toStaff(msg)
}
