package maintenance

import (
	"context"
	"testing"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/models"
	"rental-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	svc    *Service
	lease  models.Lease
	tenant models.Tenant
	user   models.User
	staff  models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{db: db, svc: NewService(db)}
	f.svc.Clock = func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }

	f.staff = models.User{Username: "clerk", Name: "Clerk", PasswordHash: "x", Role: models.RoleStaff, IsActive: true}
	f.user = models.User{Username: "tenant", Name: "Tenant", PasswordHash: "x", Role: models.RoleTenant, IsActive: true}
	require.NoError(t, db.Create(&f.staff).Error)
	require.NoError(t, db.Create(&f.user).Error)

	b := models.Building{Name: "Mawaleh Block", Address: "Mawaleh"}
	require.NoError(t, db.Create(&b).Error)
	u := models.Unit{BuildingID: b.ID, UnitNumber: "G2", Type: models.UnitTypeShop, Status: models.UnitStatusReady}
	require.NoError(t, db.Create(&u).Error)
	f.tenant = models.Tenant{Name: "Fatma", Type: models.TenantIndividual, Phone: "+96892223333", Rating: 5, UserID: &f.user.ID}
	require.NoError(t, db.Create(&f.tenant).Error)
	f.lease = models.Lease{
		UnitID: u.ID, TenantID: f.tenant.ID, ContractNumber: "M-1", Status: models.LeaseActive,
		MonthlyRent: decimal.NewFromInt(200),
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Omit("Unit", "Tenant").Create(&f.lease).Error)
	return f
}

func (f *fixture) inbox(t *testing.T, userID uint) []models.Notification {
	t.Helper()
	var ns []models.Notification
	require.NoError(t, f.db.Where("user_id = ?", userID).Order("id").Find(&ns).Error)
	return ns
}

func TestCanMove(t *testing.T) {
	tests := []struct {
		from, to models.MaintenanceStatus
		want     bool
	}{
		{models.MaintenanceSubmitted, models.MaintenanceInProgress, true},
		{models.MaintenanceSubmitted, models.MaintenanceCancelled, true},
		{models.MaintenanceSubmitted, models.MaintenanceCompleted, false},
		{models.MaintenanceInProgress, models.MaintenanceCompleted, true},
		{models.MaintenanceInProgress, models.MaintenanceCancelled, true},
		{models.MaintenanceCompleted, models.MaintenanceInProgress, false},
		{models.MaintenanceCancelled, models.MaintenanceSubmitted, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanMove(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestCreateNotifiesStaff(t *testing.T) {
	f := newFixture(t)
	r, err := f.svc.Create(context.Background(), Input{LeaseID: f.lease.ID, Title: " Leaking tap "}, f.user.ID, f.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceSubmitted, r.Status)
	assert.Equal(t, models.PriorityMedium, r.Priority)
	assert.Equal(t, "Leaking tap", r.Title)

	ns := f.inbox(t, f.staff.ID)
	require.Len(t, ns, 1)
	assert.Contains(t, ns[0].Message, "G2")
	require.NotNil(t, ns[0].MaintenanceRequestID)
	assert.Equal(t, r.ID, *ns[0].MaintenanceRequestID)
	assert.Empty(t, f.inbox(t, f.user.ID))
}

func TestCreateForOtherTenantsLeaseIsForbidden(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), Input{LeaseID: f.lease.ID, Title: "x"}, f.user.ID, f.tenant.ID+1)
	var fe *apperror.ForbiddenError
	assert.ErrorAs(t, err, &fe)
}

func TestStatusFlowNotifiesTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.svc.Create(ctx, Input{LeaseID: f.lease.ID, Title: "AC broken", Priority: models.PriorityHigh}, f.staff.ID, 0)
	require.NoError(t, err)

	done := models.MaintenanceCompleted
	_, err = f.svc.Apply(ctx, r.ID, Update{Status: &done})
	var ce *apperror.ConflictError
	require.ErrorAs(t, err, &ce)

	working := models.MaintenanceInProgress
	notes := "technician booked"
	r, err = f.svc.Apply(ctx, r.ID, Update{Status: &working, StaffNotes: &notes})
	require.NoError(t, err)
	assert.Nil(t, r.ResolvedAt)
	assert.Equal(t, notes, r.StaffNotes)

	r, err = f.svc.Apply(ctx, r.ID, Update{Status: &done})
	require.NoError(t, err)
	require.NotNil(t, r.ResolvedAt)

	ns := f.inbox(t, f.user.ID)
	require.Len(t, ns, 2)
	assert.Contains(t, ns[0].Message, "in progress")
	assert.Contains(t, ns[1].Message, "completed")

	// notes alone do not notify
	more := "invoice filed"
	_, err = f.svc.Apply(ctx, r.ID, Update{StaffNotes: &more})
	require.NoError(t, err)
	assert.Len(t, f.inbox(t, f.user.ID), 2)
}
