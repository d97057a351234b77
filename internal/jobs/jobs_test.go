package jobs

import (
	"context"
	"strings"
	"testing"
	"time"

	"rental-backend/internal/config"
	"rental-backend/internal/datex"
	"rental-backend/internal/lease"
	"rental-backend/internal/models"
	"rental-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	leases *lease.Service
	runner *Runner
	unit   models.Unit
	tenant models.Tenant
	user   models.User
	staff  models.User
}

func newFixture(t *testing.T, today time.Time) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := config.Defaults()
	f := &fixture{db: db, leases: lease.NewService(db, cfg)}
	f.setToday(today)
	f.runner = NewRunner(db, f.leases, cfg)

	b := models.Building{Name: "Ruwi Plaza", Address: "Ruwi"}
	require.NoError(t, db.Create(&b).Error)
	f.unit = models.Unit{BuildingID: b.ID, UnitNumber: "12", Type: models.UnitTypeApartment, Floor: 3, IsAvailable: true, Status: models.UnitStatusReady}
	require.NoError(t, db.Create(&f.unit).Error)

	f.staff = models.User{Username: "clerk", Name: "Clerk", PasswordHash: "x", Role: models.RoleStaff, IsActive: true}
	require.NoError(t, db.Create(&f.staff).Error)
	f.user = models.User{Username: "user_91234567", Name: "Huda", PasswordHash: "x", Role: models.RoleTenant, IsActive: true}
	require.NoError(t, db.Create(&f.user).Error)
	f.tenant = models.Tenant{Name: "Huda Al Balushi", Type: models.TenantIndividual, Phone: "+96891234567", Rating: 5, UserID: &f.user.ID}
	require.NoError(t, db.Create(&f.tenant).Error)
	return f
}

func (f *fixture) setToday(d time.Time) {
	f.leases.Clock = func() time.Time { return d.Add(9 * time.Hour) }
}

func (f *fixture) lease(t *testing.T, number string, start, end time.Time, autoRenew bool) *models.Lease {
	t.Helper()
	l, err := f.leases.Create(context.Background(), lease.CreateInput{
		UnitID:         f.unit.ID,
		TenantID:       f.tenant.ID,
		ContractNumber: number,
		MonthlyRent:    decimal.RequireFromString("250"),
		StartDate:      start,
		EndDate:        end,
		AutoRenew:      autoRenew,
	})
	require.NoError(t, err)
	return l
}

func (f *fixture) pay(t *testing.T, l *models.Lease, year int, month time.Month, amount string) {
	t.Helper()
	p := models.Payment{
		LeaseID:     l.ID,
		PaymentDate: datex.Date(year, month, 1),
		Amount:      decimal.RequireFromString(amount),
		ForYear:     year,
		ForMonth:    int(month),
		Method:      models.PaymentCash,
	}
	require.NoError(t, f.db.Create(&p).Error)
}

func (f *fixture) messages(t *testing.T, userID uint) []string {
	t.Helper()
	var ns []models.Notification
	require.NoError(t, f.db.Where("user_id = ?", userID).Order("id").Find(&ns).Error)
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Message
	}
	return out
}

func countPrefix(msgs []string, prefix string) int {
	n := 0
	for _, m := range msgs {
		if strings.HasPrefix(m, prefix) {
			n++
		}
	}
	return n
}

func TestUpdateLeaseStatuses(t *testing.T) {
	f := newFixture(t, datex.Date(2024, 1, 10))
	l := f.lease(t, "C-100", datex.Date(2024, 1, 1), datex.Date(2024, 3, 31), false)
	require.Equal(t, models.LeaseActive, l.Status)

	f.setToday(datex.Date(2024, 3, 1))
	res, err := f.runner.UpdateLeaseStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Scanned: 1, Changed: 1}, res)

	var got models.Lease
	require.NoError(t, f.db.First(&got, l.ID).Error)
	assert.Equal(t, models.LeaseExpiringSoon, got.Status)

	f.setToday(datex.Date(2024, 4, 1))
	res, err = f.runner.UpdateLeaseStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Changed)

	require.NoError(t, f.db.First(&got, l.ID).Error)
	assert.Equal(t, models.LeaseExpired, got.Status)
	var u models.Unit
	require.NoError(t, f.db.First(&u, f.unit.ID).Error)
	assert.True(t, u.IsAvailable)

	// expired leases are no longer scanned
	res, err = f.runner.UpdateLeaseStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestSendRemindersOverdueIsDeduplicated(t *testing.T) {
	f := newFixture(t, datex.Date(2024, 3, 5))
	l := f.lease(t, "C-200", datex.Date(2024, 1, 1), datex.Date(2024, 12, 31), false)
	f.pay(t, l, 2024, time.January, "250")
	f.pay(t, l, 2024, time.February, "250")
	f.pay(t, l, 2024, time.March, "100")

	res, err := f.runner.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 2, res.Created)

	tenantMsgs := f.messages(t, f.user.ID)
	require.Len(t, tenantMsgs, 1)
	assert.Contains(t, tenantMsgs[0], "150.00 OMR")
	assert.Equal(t, 1, countPrefix(f.messages(t, f.staff.ID), "Late payment"))

	res, err = f.runner.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Len(t, f.messages(t, f.user.ID), 1)
}

func TestSendRemindersSkipsPaidMonth(t *testing.T) {
	f := newFixture(t, datex.Date(2024, 3, 5))
	l := f.lease(t, "C-201", datex.Date(2024, 1, 1), datex.Date(2024, 12, 31), false)
	for _, m := range []time.Month{time.January, time.February, time.March} {
		f.pay(t, l, 2024, m, "250")
	}

	res, err := f.runner.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Created)
}

func TestSendRemindersUpcomingRent(t *testing.T) {
	// seven days before the first of April
	f := newFixture(t, datex.Date(2024, 3, 25))
	l := f.lease(t, "C-300", datex.Date(2024, 3, 1), datex.Date(2025, 2, 28), false)
	f.pay(t, l, 2024, time.March, "250")

	_, err := f.runner.SendReminders(context.Background())
	require.NoError(t, err)

	msgs := f.messages(t, f.user.ID)
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasPrefix(msgs[0], "Reminder:"))
	assert.Contains(t, msgs[0], "2024")
	assert.Contains(t, msgs[0], "250.00 OMR")
}

func TestSendRemindersEscalation(t *testing.T) {
	f := newFixture(t, datex.Date(2024, 3, 10))
	f.lease(t, "C-400", datex.Date(2023, 12, 1), datex.Date(2024, 11, 30), false)

	_, err := f.runner.SendReminders(context.Background())
	require.NoError(t, err)

	msgs := f.messages(t, f.user.ID)
	require.Equal(t, 1, countPrefix(msgs, "Warning:"))
	assert.Contains(t, msgs[0], "4 months")
	assert.Contains(t, msgs[0], "1000.00 OMR")
}

func TestSendRemindersEscalatesToStaffWithoutTenantLogin(t *testing.T) {
	f := newFixture(t, datex.Date(2024, 3, 10))
	require.NoError(t, f.db.Model(&f.tenant).Update("user_id", nil).Error)
	f.lease(t, "C-401", datex.Date(2023, 12, 1), datex.Date(2024, 11, 30), false)

	_, err := f.runner.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, countPrefix(f.messages(t, f.staff.ID), "Warning:"))
}

func TestSendRemindersExpiringAlertsStaff(t *testing.T) {
	f := newFixture(t, datex.Date(2024, 3, 10))
	l := f.lease(t, "C-500", datex.Date(2023, 4, 1), datex.Date(2024, 3, 31), false)
	for m := range datex.Months(l.StartDate, datex.Date(2024, 3, 1)) {
		f.pay(t, l, m.Year, m.Month, "250")
	}

	_, err := f.runner.SendReminders(context.Background())
	require.NoError(t, err)
	staff := f.messages(t, f.staff.ID)
	require.Len(t, staff, 1)
	assert.Contains(t, staff[0], "C-500")
	assert.Contains(t, staff[0], "2024-03-31")
}

func TestProcessRenewalsIsIdempotent(t *testing.T) {
	f := newFixture(t, datex.Date(2024, 1, 10))
	old := f.lease(t, "C-600", datex.Date(2023, 4, 1), datex.Date(2024, 3, 31), true)
	f.setToday(datex.Date(2024, 4, 2))

	res, err := f.runner.ProcessRenewals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 1, res.Created)

	var next models.Lease
	require.NoError(t, f.db.Where("renewed_from_id = ?", old.ID).First(&next).Error)
	assert.Equal(t, "C-600-R2024", next.ContractNumber)
	assert.True(t, next.StartDate.Equal(datex.Date(2024, 4, 1)))
	assert.True(t, next.EndDate.Equal(datex.Date(2025, 3, 31)))

	require.NoError(t, f.db.First(old, old.ID).Error)
	assert.False(t, old.AutoRenew)
	assert.Equal(t, models.LeaseExpired, old.Status)

	res, err = f.runner.ProcessRenewals(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Created)

	var count int64
	require.NoError(t, f.db.Model(&models.Lease{}).Where("unit_id = ?", f.unit.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestSendRemindersExpiringAlertIsSentOnce(t *testing.T) {
	f := newFixture(t, datex.Date(2024, 1, 10))
	l := f.lease(t, "C-9", datex.Date(2023, 4, 1), datex.Date(2024, 3, 31), false)
	for m := range datex.Months(l.StartDate, l.EndDate) {
		f.pay(t, l, m.Year, m.Month, "250")
	}

	// the expiring window (2024-02-29 to 2024-03-31) is longer than the dedup window
	for d := datex.Date(2024, 2, 29); !d.After(l.EndDate); d = datex.AddDays(d, 1) {
		f.setToday(d)
		_, err := f.runner.SendReminders(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, countPrefix(f.messages(t, f.staff.ID), "Lease C-9 "))
}

func (f *fixture) insertLease(t *testing.T, unitID uint, number, rent string, start, end time.Time) *models.Lease {
	t.Helper()
	l := models.Lease{
		UnitID:         unitID,
		TenantID:       f.tenant.ID,
		ContractNumber: number,
		MonthlyRent:    decimal.RequireFromString(rent),
		StartDate:      start,
		EndDate:        end,
		Status:         models.LeaseActive,
	}
	require.NoError(t, f.db.Create(&l).Error)
	return &l
}

func TestSendRemindersContinuesPastFailingLease(t *testing.T) {
	f := newFixture(t, datex.Date(2024, 3, 5))
	good := f.lease(t, "C-700", datex.Date(2024, 1, 1), datex.Date(2024, 12, 31), false)
	f.pay(t, good, 2024, time.January, "250")
	f.pay(t, good, 2024, time.February, "250")

	other := models.Unit{BuildingID: f.unit.BuildingID, UnitNumber: "13", Type: models.UnitTypeApartment, Floor: 3, IsAvailable: true, Status: models.UnitStatusReady}
	require.NoError(t, f.db.Create(&other).Error)
	// a zero rent fails validation when the status is saved
	f.insertLease(t, other.ID, "C-701", "0", datex.Date(2024, 1, 1), datex.Date(2024, 12, 31))

	res, err := f.runner.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, countPrefix(f.messages(t, f.user.ID), "Overdue:"))
	assert.Equal(t, 1, countPrefix(f.messages(t, f.staff.ID), "Late payment"))
}

func TestSendRemindersStillRemindsWhenStatusSaveFails(t *testing.T) {
	f := newFixture(t, datex.Date(2024, 3, 5))
	l := f.lease(t, "C-710", datex.Date(2024, 1, 1), datex.Date(2024, 12, 31), false)
	f.pay(t, l, 2024, time.January, "250")
	f.pay(t, l, 2024, time.February, "250")
	// overlapping lease written behind the service's back
	f.insertLease(t, f.unit.ID, "C-711", "250", datex.Date(2024, 6, 1), datex.Date(2025, 5, 31))

	res, err := f.runner.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 2, res.Failed)

	var late []string
	for _, m := range f.messages(t, f.staff.ID) {
		if strings.HasPrefix(m, "Late payment") {
			late = append(late, m)
		}
	}
	require.Len(t, late, 1)
	assert.Contains(t, late[0], "C-710")

	var got models.Lease
	require.NoError(t, f.db.First(&got, l.ID).Error)
	assert.Equal(t, models.LeaseActive, got.Status)
}
