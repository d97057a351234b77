package payment

import (
	"context"
	"testing"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/config"
	"rental-backend/internal/datex"
	"rental-backend/internal/models"
	"rental-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seed(t *testing.T, db *gorm.DB) (models.Lease, models.User) {
	t.Helper()
	staff := models.User{Username: "clerk", Name: "Clerk", PasswordHash: "x", Role: models.RoleStaff, IsActive: true}
	require.NoError(t, db.Create(&staff).Error)
	b := models.Building{Name: "Azaiba Court", Address: "Azaiba"}
	require.NoError(t, db.Create(&b).Error)
	u := models.Unit{BuildingID: b.ID, UnitNumber: "3", Type: models.UnitTypeApartment, IsAvailable: true, Status: models.UnitStatusReady}
	require.NoError(t, db.Create(&u).Error)
	tn := models.Tenant{Name: "Khalid", Type: models.TenantIndividual, Phone: "+96890001111", Rating: 5}
	require.NoError(t, db.Create(&tn).Error)
	l := models.Lease{
		UnitID: u.ID, TenantID: tn.ID, ContractNumber: "P-1", Status: models.LeaseActive,
		MonthlyRent: dec("300"), StartDate: datex.Date(2024, 1, 1), EndDate: datex.Date(2024, 12, 31),
	}
	require.NoError(t, db.Omit("Unit", "Tenant").Create(&l).Error)
	return l, staff
}

func cash(leaseID uint, month int, amount string) Input {
	return Input{
		LeaseID:     leaseID,
		PaymentDate: datex.Date(2024, time.Month(month), 3),
		Amount:      dec(amount),
		ForMonth:    month,
		ForYear:     2024,
		Method:      models.PaymentCash,
	}
}

func TestCreateAssignsSequentialVouchers(t *testing.T) {
	db := testutil.NewDB(t)
	l, staff := seed(t, db)
	svc := NewService(db, config.Defaults())
	ctx := context.Background()

	p1, err := svc.Create(ctx, cash(l.ID, 1, "300"), staff.ID)
	require.NoError(t, err)
	p2, err := svc.Create(ctx, cash(l.ID, 2, "100"), staff.ID)
	require.NoError(t, err)
	p3, err := svc.Create(ctx, cash(l.ID, 2, "200"), staff.ID)
	require.NoError(t, err)

	assert.Equal(t, "PAY-2024-0001", *p1.VoucherNumber)
	assert.Equal(t, "PAY-2024-0002", *p2.VoucherNumber)
	assert.Equal(t, "PAY-2024-0003", *p3.VoucherNumber)
	require.NotNil(t, p1.RecordedByID)
	assert.Equal(t, staff.ID, *p1.RecordedByID)

	// several payments may credit the same month
	var feb int64
	require.NoError(t, svc.Query(Filter{LeaseID: l.ID, Year: 2024, Month: 2}).Count(&feb).Error)
	assert.EqualValues(t, 2, feb)
}

func TestCreateValidates(t *testing.T) {
	db := testutil.NewDB(t)
	l, staff := seed(t, db)
	svc := NewService(db, config.Defaults())

	in := cash(l.ID, 13, "0")
	in.Method = models.PaymentCheque
	_, err := svc.Create(context.Background(), in, staff.ID)
	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "amount")
	assert.Contains(t, ve.Fields, "payment_for_month")
	assert.Contains(t, ve.Fields, "cheque_number")

	_, err = svc.Create(context.Background(), cash(999, 1, "10"), staff.ID)
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "lease_id")

	var n int64
	require.NoError(t, db.Model(&models.VoucherSequence{}).Count(&n).Error)
	assert.Zero(t, n, "a failed payment must not consume a voucher number")
}

func TestStrictVouchersBlockUpdate(t *testing.T) {
	db := testutil.NewDB(t)
	l, staff := seed(t, db)
	svc := NewService(db, config.Defaults())
	p, err := svc.Create(context.Background(), cash(l.ID, 1, "300"), staff.ID)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), p.ID, cash(l.ID, 1, "250"))
	var ce *apperror.ConflictError
	assert.ErrorAs(t, err, &ce)

	cfg := config.Defaults()
	cfg.StrictVouchers = false
	lenient := NewService(db, cfg)
	got, err := lenient.Update(context.Background(), p.ID, cash(l.ID, 1, "250"))
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(dec("250")))
	assert.Equal(t, "PAY-2024-0001", *got.VoucherNumber)
}

func TestReturnedChequeNotifiesStaff(t *testing.T) {
	db := testutil.NewDB(t)
	l, staff := seed(t, db)
	svc := NewService(db, config.Defaults())

	in := cash(l.ID, 1, "300")
	in.Method = models.PaymentCheque
	in.ChequeNumber = "000123"
	in.ChequeBank = "Bank Muscat"
	p, err := svc.Create(context.Background(), in, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChequePending, p.ChequeStatus)

	p, err = svc.SetChequeStatus(context.Background(), p.ID, models.ChequeReturned)
	require.NoError(t, err)
	assert.Equal(t, models.ChequeReturned, p.ChequeStatus)

	var ns []models.Notification
	require.NoError(t, db.Where("user_id = ?", staff.ID).Find(&ns).Error)
	require.Len(t, ns, 1)
	assert.Contains(t, ns[0].Message, "000123")
	require.NotNil(t, ns[0].PaymentID)
	assert.Equal(t, p.ID, *ns[0].PaymentID)

	cashPayment, err := svc.Create(context.Background(), cash(l.ID, 2, "300"), staff.ID)
	require.NoError(t, err)
	_, err = svc.SetChequeStatus(context.Background(), cashPayment.ID, models.ChequeCashed)
	var ce *apperror.ConflictError
	assert.ErrorAs(t, err, &ce)
}

func TestQueryFilters(t *testing.T) {
	db := testutil.NewDB(t)
	l, staff := seed(t, db)
	svc := NewService(db, config.Defaults())
	for m := 1; m <= 3; m++ {
		_, err := svc.Create(context.Background(), cash(l.ID, m, "300"), staff.ID)
		require.NoError(t, err)
	}

	from := datex.Date(2024, 2, 1)
	var n int64
	require.NoError(t, svc.Query(Filter{From: &from}).Count(&n).Error)
	assert.EqualValues(t, 2, n)
	require.NoError(t, svc.Query(Filter{TenantID: l.TenantID, Month: 3}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
	require.NoError(t, svc.Query(Filter{BuildingID: 999}).Count(&n).Error)
	assert.Zero(t, n)
}
