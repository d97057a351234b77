package portal

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"rental-backend/internal/config"
	"rental-backend/internal/lease"
	"rental-backend/internal/maintenance"
	"rental-backend/internal/models"
	"rental-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type world struct {
	db     *gorm.DB
	h      *Handlers
	user   models.User
	mine   models.Lease
	theirs models.Lease
}

func newWorld(t *testing.T) *world {
	t.Helper()
	db := testutil.NewDB(t)
	leases := lease.NewService(db, config.Defaults())
	leases.Clock = func() time.Time { return time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC) }
	w := &world{db: db, h: &Handlers{Leases: leases, Maintenance: maintenance.NewService(db)}}

	w.user = models.User{Username: "tenant", Name: "Tenant", PasswordHash: "x", Role: models.RoleTenant, IsActive: true}
	require.NoError(t, db.Create(&w.user).Error)
	b := models.Building{Name: "Hail Towers", Address: "Al Hail"}
	require.NoError(t, db.Create(&b).Error)

	mk := func(n int, userID *uint) models.Lease {
		u := models.Unit{BuildingID: b.ID, UnitNumber: fmt.Sprint(n), Type: models.UnitTypeApartment, Status: models.UnitStatusReady}
		require.NoError(t, db.Create(&u).Error)
		tn := models.Tenant{Name: fmt.Sprintf("T%d", n), Type: models.TenantIndividual, Phone: fmt.Sprintf("+9689000000%d", n), Rating: 5, UserID: userID}
		require.NoError(t, db.Create(&tn).Error)
		l := models.Lease{
			UnitID: u.ID, TenantID: tn.ID, ContractNumber: fmt.Sprintf("L-%d", n), Status: models.LeaseActive,
			MonthlyRent: decimal.NewFromInt(150),
			StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, db.Omit("Unit", "Tenant").Create(&l).Error)
		return l
	}
	w.mine = mk(1, &w.user.ID)
	w.theirs = mk(2, nil)
	return w
}

func (w *world) app() *fiber.App {
	tid := w.mine.TenantID
	app := testutil.NewApp(testutil.Caller{UserID: w.user.ID, Role: models.RoleTenant, TenantID: &tid})
	app.Get("/leases", w.h.ListLeases())
	app.Get("/leases/:id", w.h.GetLease())
	app.Get("/maintenance", w.h.ListMaintenance())
	app.Post("/maintenance", w.h.CreateMaintenance())
	return app
}

func TestPortalSeesOnlyOwnLeases(t *testing.T) {
	w := newWorld(t)
	app := w.app()

	var list []map[string]any
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodGet, "/leases", nil, &list))
	require.Len(t, list, 1)

	var detail map[string]any
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodGet, fmt.Sprintf("/leases/%d", w.mine.ID), nil, &detail))
	assert.Len(t, detail["payment_summary"], 12)

	assert.Equal(t, http.StatusNotFound, testutil.Do(t, app, http.MethodGet, fmt.Sprintf("/leases/%d", w.theirs.ID), nil, nil))
}

func TestPortalMaintenance(t *testing.T) {
	w := newWorld(t)
	app := w.app()

	status := testutil.Do(t, app, http.MethodPost, "/maintenance", maintenance.CreateRequest{LeaseID: w.theirs.ID, Title: "Door"}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	var created maintenance.Response
	status = testutil.Do(t, app, http.MethodPost, "/maintenance", maintenance.CreateRequest{LeaseID: w.mine.ID, Title: "Door", Priority: models.PriorityLow}, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, models.MaintenanceSubmitted, created.Status)
	assert.Equal(t, "1", created.UnitNumber)

	var list []maintenance.Response
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodGet, "/maintenance", nil, &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestPortalRequiresTenantLink(t *testing.T) {
	w := newWorld(t)
	app := testutil.NewApp(testutil.Caller{UserID: w.user.ID, Role: models.RoleTenant})
	app.Get("/leases", w.h.ListLeases())
	assert.Equal(t, http.StatusForbidden, testutil.Do(t, app, http.MethodGet, "/leases", nil, nil))
}
